package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Locate(t *testing.T) {
	loc, err := DefaultStatic.Locate(context.Background(), "190.12.1.1")
	require.NoError(t, err)
	assert.Equal(t, "190.12.1.1", loc.IP)
	assert.Equal(t, "Lima", loc.City)
	assert.InDelta(t, -12.10925, loc.Lat, 1e-9)
	assert.InDelta(t, -77.01641, loc.Lon, 1e-9)
	assert.Empty(t, DefaultStatic.Location.IP, "receiver not mutated")
}

func TestIPGeolocation_Locate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipgeo", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "200.1.2.3", r.URL.Query().Get("ip"))
		_, _ = w.Write([]byte(`{"ip":"200.1.2.3","country_name":"Peru","state_prov":"Arequipa","city":"Cayma","latitude":"-16.39","longitude":"-71.53"}`))
	}))
	defer server.Close()

	c := NewIPGeolocation("secret", WithBaseURL(server.URL))
	loc, err := c.Locate(context.Background(), "200.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "Arequipa", loc.City)
	assert.Equal(t, "Arequipa", loc.Region)
	assert.InDelta(t, -16.39, loc.Lat, 1e-9)
}

func TestIPGeolocation_Locate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		is      error
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusLocked)
		}, ErrUnknownLocation},
		{"no coordinates", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ip":"10.0.0.1","latitude":"","longitude":""}`))
		}, ErrUnknownLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewIPGeolocation("k", WithBaseURL(server.URL)).Locate(context.Background(), "10.0.0.1")
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

type countingLocator struct {
	calls int
	err   error
}

func (c *countingLocator) Locate(_ context.Context, ip string) (*Location, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Location{IP: ip, City: "Lima"}, nil
}

func TestCached_Locate(t *testing.T) {
	inner := &countingLocator{}
	c := NewCached(inner, 2, time.Hour)
	ctx := context.Background()

	for range 3 {
		loc, err := c.Locate(ctx, "1.1.1.1")
		require.NoError(t, err)
		assert.Equal(t, "Lima", loc.City)
	}
	assert.Equal(t, 1, inner.calls)

	// callers cannot poison the cache
	loc, _ := c.Locate(ctx, "1.1.1.1")
	loc.City = "Cusco"
	loc, _ = c.Locate(ctx, "1.1.1.1")
	assert.Equal(t, "Lima", loc.City)

	_, _ = c.Locate(ctx, "2.2.2.2")
	_, _ = c.Locate(ctx, "3.3.3.3")
	assert.Equal(t, 2, c.Len())
}

func TestCached_Locate_ErrorsNotCached(t *testing.T) {
	inner := &countingLocator{err: errors.New("quota exceeded")}
	c := NewCached(inner, 8, time.Hour)

	_, err := c.Locate(context.Background(), "1.1.1.1")
	assert.Error(t, err)
	_, err = c.Locate(context.Background(), "1.1.1.1")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, c.Len())
}
