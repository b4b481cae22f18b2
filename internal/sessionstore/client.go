package sessionstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// Wire responses.
const (
	ReplyNotFound = "not found"
	ReplyOK       = "OK"
	ReplyErr      = "ERR "
)

const defaultTimeout = 5 * time.Second

// maxLine bounds a single protocol line (a whole SessionRecord).
const maxLine = 1 << 20

// ServerError is an ERR reply from the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server: " + e.Message
}

// Client speaks the line protocol over one persistent TCP connection.
// Every request is one line and gets exactly one reply line; requests are
// serialized so replies cannot be attributed to the wrong caller.
type Client struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request deadline used when ctx has none.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Dial connects to the server at addr. A failure here means the store is
// unusable.
func Dial(ctx context.Context, addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		addr:    addr,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	var d net.Dialer
	dctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	conn, err := d.DialContext(dctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial session store %s: %w", c.addr, err)
	}
	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, 64*1024)
	return nil
}

// Get returns the value stored under key or ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	reply, err := c.roundTrip(ctx, "GET "+key+"\n")
	if err != nil {
		return nil, err
	}
	switch {
	case reply == ReplyNotFound:
		return nil, ErrNotFound
	case strings.HasPrefix(reply, ReplyErr):
		return nil, &ServerError{Message: strings.TrimPrefix(reply, ReplyErr)}
	}
	return []byte(reply), nil
}

// Set stores a JSON document under key.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	// compacting also strips any newline the document could contain
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return fmt.Errorf("set %s: value is not JSON: %w", key, err)
	}

	reply, err := c.roundTrip(ctx, "SET "+key+" "+buf.String()+"\n")
	if err != nil {
		return err
	}
	if reply == ReplyOK {
		return nil
	}
	if strings.HasPrefix(reply, ReplyErr) {
		return &ServerError{Message: strings.TrimPrefix(reply, ReplyErr)}
	}
	return fmt.Errorf("set %s: unexpected reply %q", key, reply)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) roundTrip(ctx context.Context, line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}
	// a previous exchange broke the stream; start over on a fresh one
	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return "", err
		}
		c.logger.Info("session store reconnected", "addr", c.addr)
	}

	conn := c.conn
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", c.fail(err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write([]byte(line)); err != nil {
		return "", c.fail(ctxErr(ctx, err))
	}
	reply, err := readLine(c.reader)
	if err != nil {
		return "", c.fail(ctxErr(ctx, err))
	}
	return reply, nil
}

// fail drops the connection after an I/O error; the reply stream can no
// longer be trusted.
func (c *Client) fail(err error) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	return fmt.Errorf("session store: %w", err)
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Join(ctx.Err(), err)
	}
	// the socket deadline can fire just before the context's timer
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return errors.Join(context.DeadlineExceeded, err)
	}
	return err
}

// readLine reads one reply line without its terminator.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}
		buf = append(buf, chunk...)
		if len(buf) > maxLine {
			return "", errors.New("reply line too long")
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}
