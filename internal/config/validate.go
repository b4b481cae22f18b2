package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validAIProviders = map[string]bool{
	"ollama": true, "static": true,
}

var validStoreDrivers = map[string]bool{
	"anticinedb": true, "redis": true, "memory": true,
}

var validGeoProviders = map[string]bool{
	"static": true, "ipgeolocation": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.Server.EventHistory < 0 {
		errs = append(errs, fmt.Sprintf("server.event_history: must not be negative, got %d", c.Server.EventHistory))
	}

	// Upstream
	if u, err := url.Parse(c.Upstream.BaseURL); c.Upstream.BaseURL != "" && (err != nil || u.Scheme == "" || u.Host == "") {
		errs = append(errs, fmt.Sprintf("upstream.base_url: invalid URL %q", c.Upstream.BaseURL))
	}
	if c.Upstream.RequestTimeout < 0 {
		errs = append(errs, "upstream.request_timeout: must not be negative")
	}
	if c.Upstream.MaxConcurrency < 0 {
		errs = append(errs, fmt.Sprintf("upstream.max_concurrency: must not be negative, got %d", c.Upstream.MaxConcurrency))
	}

	// Refresh
	for name, d := range map[string]int64{
		"venues":      int64(c.Refresh.Venues),
		"concessions": int64(c.Refresh.Concessions),
		"boards":      int64(c.Refresh.Boards),
	} {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("refresh.%s: must not be negative", name))
		}
	}
	if b := c.Refresh.Blackout; b.Enabled {
		if b.StartHour < 0 || b.StartHour > 23 {
			errs = append(errs, fmt.Sprintf("refresh.blackout.start_hour: must be between 0 and 23, got %d", b.StartHour))
		}
		if b.EndHour < 0 || b.EndHour > 23 {
			errs = append(errs, fmt.Sprintf("refresh.blackout.end_hour: must be between 0 and 23, got %d", b.EndHour))
		}
		if b.UTCOffset < -12 || b.UTCOffset > 14 {
			errs = append(errs, fmt.Sprintf("refresh.blackout.utc_offset: must be between -12 and 14, got %d", b.UTCOffset))
		}
	}

	// Enrichment
	if c.Enrichment.Enabled {
		ai := c.Enrichment.AI
		if !validAIProviders[ai.Provider] {
			errs = append(errs, fmt.Sprintf("enrichment.ai.provider: must be one of ollama, static; got %q", ai.Provider))
		}
		if ai.Provider == "ollama" {
			if ai.URL == "" {
				errs = append(errs, "enrichment.ai.url: required when provider is ollama")
			}
			if ai.Model == "" {
				errs = append(errs, "enrichment.ai.model: required when provider is ollama")
			}
		}
		if th := c.Enrichment.Thumbnail; th.Enabled {
			if th.Width <= 0 || th.Height <= 0 {
				errs = append(errs, fmt.Sprintf("enrichment.thumbnail: width and height must be positive, got %dx%d", th.Width, th.Height))
			}
			if th.Height%2 != 0 {
				errs = append(errs, fmt.Sprintf("enrichment.thumbnail.height: must be even, got %d", th.Height))
			}
			if th.CacheDir == "" {
				errs = append(errs, "enrichment.thumbnail.cache_dir: required when thumbnails are enabled")
			}
		}
	}

	// Session store
	if !validStoreDrivers[c.SessionStore.Driver] {
		errs = append(errs, fmt.Sprintf("session_store.driver: must be one of anticinedb, redis, memory; got %q", c.SessionStore.Driver))
	} else if c.SessionStore.Driver != "memory" && c.SessionStore.Addr == "" {
		errs = append(errs, fmt.Sprintf("session_store.addr: required for driver %s", c.SessionStore.Driver))
	}

	// Geo
	if !validGeoProviders[c.Geo.Provider] {
		errs = append(errs, fmt.Sprintf("geo.provider: must be one of static, ipgeolocation; got %q", c.Geo.Provider))
	}
	if c.Geo.Provider == "ipgeolocation" && c.Geo.APIKey == "" {
		errs = append(errs, "geo.api_key: required when provider is ipgeolocation")
	}
	if c.Geo.Lat < -90 || c.Geo.Lat > 90 || c.Geo.Lon < -180 || c.Geo.Lon > 180 {
		errs = append(errs, fmt.Sprintf("geo: coordinates out of range (%g, %g)", c.Geo.Lat, c.Geo.Lon))
	}

	return errs
}
