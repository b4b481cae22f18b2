package kvserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/anticine/anticine/internal/sessionstore"
)

const maxLine = 1 << 20

// Server serves a Store over TCP. Each connection is handled by its own
// goroutine; requests on a connection are answered in order.
type Server struct {
	store  *Store
	logger *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server for store.
func NewServer(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled. It closes ln and
// every open connection before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("session store listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.track(conn, true)
		if ctx.Err() != nil {
			// raced with shutdown after the close sweep
			_ = conn.Close()
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
		return
	}
	delete(s.conns, c)
	_ = c.Close()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	log := s.logger.With("remote", conn.RemoteAddr().String())
	log.Debug("connection opened")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		reply := s.Exec(ctx, scanner.Text())
		if _, err := w.WriteString(reply + "\n"); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn("connection read failed", "error", err)
	}
	log.Debug("connection closed")
}

// Exec runs one request line and returns its reply line.
func (s *Server) Exec(ctx context.Context, line string) string {
	line = strings.TrimRight(line, "\r")
	cmd, rest, _ := strings.Cut(line, " ")

	switch strings.ToUpper(cmd) {
	case "GET":
		key := strings.TrimSpace(rest)
		if !sessionstore.ValidKey(key) {
			return sessionstore.ReplyErr + "invalid key"
		}
		value, err := s.store.Get(ctx, key)
		if errors.Is(err, sessionstore.ErrNotFound) {
			return sessionstore.ReplyNotFound
		}
		if err != nil {
			s.logger.Error("get failed", "key", key, "error", err)
			return sessionstore.ReplyErr + "storage failure"
		}
		return string(value)

	case "SET":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || !sessionstore.ValidKey(key) {
			return sessionstore.ReplyErr + "usage: SET <key> <json>"
		}
		if !json.Valid([]byte(value)) {
			return sessionstore.ReplyErr + "invalid json"
		}
		if err := s.store.Set(ctx, key, []byte(value)); err != nil {
			s.logger.Error("set failed", "key", key, "error", err)
			return sessionstore.ReplyErr + "storage failure"
		}
		return sessionstore.ReplyOK

	default:
		return sessionstore.ReplyErr + "unknown command"
	}
}
