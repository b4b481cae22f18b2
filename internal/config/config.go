// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Upstream     UpstreamConfig     `toml:"upstream"`
	Refresh      RefreshConfig      `toml:"refresh"`
	Enrichment   EnrichmentConfig   `toml:"enrichment"`
	SessionStore SessionStoreConfig `toml:"session_store"`
	DB           DBConfig           `toml:"db"`
	Geo          GeoConfig          `toml:"geo"`
}

type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	LogLevel   string `toml:"log_level"`
	TrustProxy bool   `toml:"trust_proxy"`
	// ReadTimeout bounds how long a request waits for a catalog that is
	// still loading.
	ReadTimeout time.Duration `toml:"read_timeout"`
	// EventHistory is how many recent events GET /events can return.
	EventHistory int `toml:"event_history"`
}

type UpstreamConfig struct {
	BaseURL        string        `toml:"base_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MaxConcurrency int           `toml:"max_concurrency"`
	Brand          string        `toml:"brand"`
	PosterBase     string        `toml:"poster_base"`
}

// RefreshConfig sets how often each snapshot is rebuilt. Zero runs the
// job once at startup only.
type RefreshConfig struct {
	Venues      time.Duration  `toml:"venues"`
	Concessions time.Duration  `toml:"concessions"`
	Boards      time.Duration  `toml:"boards"`
	Blackout    BlackoutConfig `toml:"blackout"`
}

type BlackoutConfig struct {
	Enabled   bool `toml:"enabled"`
	StartHour int  `toml:"start_hour"`
	EndHour   int  `toml:"end_hour"`
	UTCOffset int  `toml:"utc_offset"`
}

type EnrichmentConfig struct {
	Enabled     bool            `toml:"enabled"`
	UnknownTag  string          `toml:"unknown_tag"`
	Concurrency int             `toml:"concurrency"`
	AI          AIConfig        `toml:"ai"`
	Thumbnail   ThumbnailConfig `toml:"thumbnail"`
}

type AIConfig struct {
	Provider    string  `toml:"provider"`
	URL         string  `toml:"url"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	StaticReply string  `toml:"static_reply"`
}

type ThumbnailConfig struct {
	Enabled  bool   `toml:"enabled"`
	CacheDir string `toml:"cache_dir"`
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
}

type SessionStoreConfig struct {
	Driver   string        `toml:"driver"`
	Addr     string        `toml:"addr"`
	Password string        `toml:"password"`
	DB       int           `toml:"db"`
	Timeout  time.Duration `toml:"timeout"`
}

// DBConfig configures the key/value server run by "anticine db serve".
type DBConfig struct {
	Listen string `toml:"listen"`
	Path   string `toml:"path"`
}

type GeoConfig struct {
	Provider  string        `toml:"provider"`
	APIKey    string        `toml:"api_key"`
	City      string        `toml:"city"`
	Lat       float64       `toml:"lat"`
	Lon       float64       `toml:"lon"`
	CacheSize int           `toml:"cache_size"`
	CacheTTL  time.Duration `toml:"cache_ttl"`
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file and applies
// defaults. Unresolved environment variables are still an error.
func LoadWithoutValidation(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.EventHistory == 0 {
		c.Server.EventHistory = 256
	}

	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://api.cinemark-peru.com"
	}
	if c.Upstream.RequestTimeout == 0 {
		c.Upstream.RequestTimeout = 5 * time.Second
	}
	if c.Upstream.MaxConcurrency == 0 {
		c.Upstream.MaxConcurrency = 8
	}
	if c.Upstream.Brand == "" {
		c.Upstream.Brand = "Anticine"
	}
	if c.Upstream.PosterBase == "" {
		c.Upstream.PosterBase = "https://cinemarkmedia.modyocdn.com/pe/300x400"
	}

	if c.Enrichment.UnknownTag == "" {
		c.Enrichment.UnknownTag = "❓"
	}
	if c.Enrichment.Concurrency == 0 {
		c.Enrichment.Concurrency = 4
	}
	if c.Enrichment.AI.Provider == "" {
		c.Enrichment.AI.Provider = "static"
	}
	if c.Enrichment.AI.URL == "" {
		c.Enrichment.AI.URL = "http://localhost:11434"
	}
	if c.Enrichment.AI.Temperature == 0 {
		c.Enrichment.AI.Temperature = 0.27
	}
	if c.Enrichment.AI.StaticReply == "" {
		c.Enrichment.AI.StaticReply = "⛄🏰👸🏔️🥶"
	}
	if c.Enrichment.Thumbnail.CacheDir == "" {
		c.Enrichment.Thumbnail.CacheDir = "./data/posters"
	}
	if c.Enrichment.Thumbnail.Width == 0 {
		c.Enrichment.Thumbnail.Width = 24
	}
	if c.Enrichment.Thumbnail.Height == 0 {
		c.Enrichment.Thumbnail.Height = 36
	}

	if c.SessionStore.Driver == "" {
		c.SessionStore.Driver = "anticinedb"
	}
	if c.SessionStore.Addr == "" && c.SessionStore.Driver == "anticinedb" {
		c.SessionStore.Addr = "127.0.0.1:7070"
	}
	if c.SessionStore.Timeout == 0 {
		c.SessionStore.Timeout = 5 * time.Second
	}

	if c.DB.Listen == "" {
		c.DB.Listen = "127.0.0.1:7070"
	}
	if c.DB.Path == "" {
		c.DB.Path = "./data/anticine.db"
	}

	if c.Geo.Provider == "" {
		c.Geo.Provider = "static"
	}
	if c.Geo.City == "" && c.Geo.Lat == 0 && c.Geo.Lon == 0 {
		c.Geo.City, c.Geo.Lat, c.Geo.Lon = "Lima", -12.10925, -77.01641
	}
	if c.Geo.CacheSize == 0 {
		c.Geo.CacheSize = 1024
	}
	if c.Geo.CacheTTL == 0 {
		c.Geo.CacheTTL = 6 * time.Hour
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces environment references in content. It returns
// the substituted content and the references that could not be resolved;
// those are left unchanged.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, set := os.LookupEnv(name)

		switch op {
		case ":-":
			if value == "" {
				return arg
			}
			return value
		case ":?":
			if value == "" {
				missing = append(missing, name+": "+arg)
				return match
			}
			return value
		}
		if !set {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}
