// Package geo resolves client IP addresses to a city and coordinates.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrUnknownLocation is returned when an address cannot be located.
var ErrUnknownLocation = errors.New("unknown location")

// Location is where a client appears to be.
type Location struct {
	IP      string  `json:"ip"`
	Country string  `json:"country"`
	Region  string  `json:"region"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Locator resolves an IP address.
type Locator interface {
	Locate(ctx context.Context, ip string) (*Location, error)
}

// Static always answers with the same place.
type Static struct {
	Location Location
}

// DefaultStatic is central Lima.
var DefaultStatic = Static{Location: Location{
	Country: "Peru",
	Region:  "Lima",
	City:    "Lima",
	Lat:     -12.10925,
	Lon:     -77.01641,
}}

// Locate returns the configured location tagged with ip.
func (s Static) Locate(_ context.Context, ip string) (*Location, error) {
	loc := s.Location
	loc.IP = ip
	return &loc, nil
}

const defaultIPGeoURL = "https://api.ipgeolocation.io"

// IPGeolocation queries the ipgeolocation.io API.
type IPGeolocation struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures an IPGeolocation client.
type Option func(*IPGeolocation)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *IPGeolocation) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *IPGeolocation) {
		c.httpClient = hc
	}
}

// NewIPGeolocation creates a client for the given API key.
func NewIPGeolocation(apiKey string, opts ...Option) *IPGeolocation {
	c := &IPGeolocation{
		apiKey:     apiKey,
		baseURL:    defaultIPGeoURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ipgeoResponse struct {
	IP          string `json:"ip"`
	CountryName string `json:"country_name"`
	StateProv   string `json:"state_prov"`
	City        string `json:"city"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
}

// Locate looks ip up. Venues are grouped by region, so the region name is
// reported as the city when present.
func (c *IPGeolocation) Locate(ctx context.Context, ip string) (*Location, error) {
	q := url.Values{"apiKey": {c.apiKey}, "ip": {ip}, "fields": {"geo"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ipgeo?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnknownLocation, ip, resp.Status)
	}

	var out ipgeoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	lat, errLat := strconv.ParseFloat(out.Latitude, 64)
	lon, errLon := strconv.ParseFloat(out.Longitude, 64)
	if errLat != nil || errLon != nil {
		return nil, fmt.Errorf("%w: %s: no coordinates", ErrUnknownLocation, ip)
	}

	city := out.StateProv
	if city == "" {
		city = out.City
	}
	return &Location{
		IP:      ip,
		Country: out.CountryName,
		Region:  out.StateProv,
		City:    city,
		Lat:     lat,
		Lon:     lon,
	}, nil
}

// Cached remembers lookups of an inner Locator for a while. Failures are
// not cached.
type Cached struct {
	inner Locator
	cache *expirable.LRU[string, *Location]
}

// NewCached wraps inner with an LRU of size entries expiring after ttl
// (zero ttl never expires).
func NewCached(inner Locator, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 1024
	}
	return &Cached{
		inner: inner,
		cache: expirable.NewLRU[string, *Location](size, nil, ttl),
	}
}

// Locate serves ip from cache or asks the inner Locator.
func (c *Cached) Locate(ctx context.Context, ip string) (*Location, error) {
	if loc, ok := c.cache.Get(ip); ok {
		cp := *loc
		return &cp, nil
	}
	loc, err := c.inner.Locate(ctx, ip)
	if err != nil {
		return nil, err
	}
	cp := *loc
	c.cache.Add(ip, &cp)
	return loc, nil
}

// Len returns the number of cached addresses.
func (c *Cached) Len() int {
	return c.cache.Len()
}
