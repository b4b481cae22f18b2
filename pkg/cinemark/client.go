package cinemark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.cinemark-peru.com"
	defaultTimeout = 5 * time.Second
)

// Sentinel errors for upstream responses.
var (
	// ErrUnavailable covers transport failures, timeouts, unexpected status
	// codes and undecodable bodies.
	ErrUnavailable = errors.New("cinemark api unavailable")

	// ErrNoConcessions is matched by an APIError: the venue answered with an
	// explicit error code, which means it has no concession catalog.
	ErrNoConcessions = errors.New("venue has no concessions")
)

// APIError is an explicit error payload returned by the API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cinemark api error %d: %s", e.Code, e.Description)
}

// Is reports APIError as ErrNoConcessions.
func (e *APIError) Is(target error) bool {
	return target == ErrNoConcessions
}

// The upstream rejects requests that do not look like they come from its
// own web frontend.
var defaultHeaders = map[string]string{
	"Accept":           "*/*",
	"Accept-Language":  "en-US,en;q=0.9,es;q=0.8",
	"Referer":          "https://www.cinemark-peru.com/",
	"User-Agent":       "Mozilla/5.0 (X11; OpenBSD i386) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/43.0.2357.81 Safari/537.36",
	"X-Requested-With": "XMLHttpRequest",
}

// Client is a Cinemark API client. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "cinemark")
	}
}

// NewClient creates a new Cinemark API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		log:        slog.Default().With("component", "cinemark"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Theatres fetches the venue listing grouped by city.
func (c *Client) Theatres(ctx context.Context) ([]TheatreGroup, error) {
	var groups []TheatreGroup
	if err := c.get(ctx, "/api/vista/data/theatres", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ConcessionItems fetches the concession catalog of a venue.
// An explicit upstream error yields an *APIError matching ErrNoConcessions.
func (c *Client) ConcessionItems(ctx context.Context, venueID string) (*ConcessionResponse, error) {
	params := url.Values{"cinema_id": {venueID}}

	var resp ConcessionResponse
	if err := c.get(ctx, "/api/vista/ticketing/concession/items", params, &resp); err != nil {
		return nil, err
	}

	if resp.ResponseCode != 0 {
		desc := ""
		if resp.ErrorDescription != nil {
			desc = *resp.ErrorDescription
		}
		return nil, &APIError{Code: resp.ResponseCode, Description: desc}
	}
	return &resp, nil
}

// Billboard fetches every billboard day of a venue.
func (c *Client) Billboard(ctx context.Context, venueID string) ([]BillboardItem, error) {
	params := url.Values{"cinema_id": {venueID}}

	var items []BillboardItem
	if err := c.get(ctx, "/api/vista/data/billboard", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("api unexpected status", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	c.log.Debug("api request complete", "path", path, "params", params.Encode(), "duration_ms", time.Since(start).Milliseconds())
	return nil
}
