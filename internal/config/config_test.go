package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("ANTICINE_TEST_SET", "from_env")
	t.Setenv("ANTICINE_TEST_EMPTY", "")

	tests := []struct {
		name    string
		in      string
		want    string
		missing []string
	}{
		{"plain", "k = ${ANTICINE_TEST_SET}", "k = from_env", nil},
		{"empty is set", "k = '${ANTICINE_TEST_EMPTY}'", "k = ''", nil},
		{"unset left unchanged", "k = ${ANTICINE_TEST_NONEXISTENT_12345}", "k = ${ANTICINE_TEST_NONEXISTENT_12345}", []string{"ANTICINE_TEST_NONEXISTENT_12345"}},
		{"default on empty", "k = ${ANTICINE_TEST_EMPTY:-fallback}", "k = fallback", nil},
		{"default overridden", "k = ${ANTICINE_TEST_SET:-fallback}", "k = from_env", nil},
		{"empty default", "k = '${ANTICINE_TEST_NONEXISTENT_12345:-}'", "k = ''", nil},
		{"required", "k = ${ANTICINE_TEST_EMPTY:?api key is required}", "k = ${ANTICINE_TEST_EMPTY:?api key is required}", []string{"ANTICINE_TEST_EMPTY: api key is required"}},
		{"required set", "k = ${ANTICINE_TEST_SET:?x}", "k = from_env", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := substituteEnvVars(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.missing, missing)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[server]\nport = 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Upstream.RequestTimeout)
	assert.Equal(t, "Anticine", cfg.Upstream.Brand)
	assert.Equal(t, "anticinedb", cfg.SessionStore.Driver)
	assert.Equal(t, "127.0.0.1:7070", cfg.SessionStore.Addr)
	assert.Equal(t, "Lima", cfg.Geo.City)
	assert.Equal(t, 256, cfg.Server.EventHistory)
	assert.Zero(t, cfg.Refresh.Boards, "unset interval runs once")
}

func TestLoad_Durations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[refresh]
venues = "24h"
boards = "30m"

[refresh.blackout]
enabled = true
start_hour = 22
end_hour = 6
utc_offset = -5
`))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Refresh.Venues)
	assert.Equal(t, 30*time.Minute, cfg.Refresh.Boards)
	assert.Equal(t, 22, cfg.Refresh.Blackout.StartHour)
}

func TestLoad_MissingEnvVar(t *testing.T) {
	path := writeConfig(t, `
[geo]
provider = "ipgeolocation"
api_key = "${ANTICINE_TEST_MISSING_KEY}"
`)
	_, err := Load(path)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, []string{"ANTICINE_TEST_MISSING_KEY"}, cfgErr.Missing)
	assert.Equal(t, path, cfgErr.Path)
	assert.Contains(t, err.Error(), "ANTICINE_TEST_MISSING_KEY")
}

func TestLoad_ValidationError(t *testing.T) {
	_, err := Load(writeConfig(t, "[session_store]\ndriver = \"etcd\"\n"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, containsError(cfgErr.Errors, "session_store.driver"), "got %v", cfgErr.Errors)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "[server\n"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{Enrichment: EnrichmentConfig{Enabled: true, Thumbnail: ThumbnailConfig{Enabled: true}}}
		cfg.applyDefaults()
		return cfg
	}
	require.Empty(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 99999 }, "server.port"},
		{"log level", func(c *Config) { c.Server.LogLevel = "verbose" }, "log_level"},
		{"event history", func(c *Config) { c.Server.EventHistory = -1 }, "server.event_history"},
		{"base url", func(c *Config) { c.Upstream.BaseURL = "not a url" }, "upstream.base_url"},
		{"negative interval", func(c *Config) { c.Refresh.Boards = -time.Second }, "refresh.boards"},
		{"blackout hour", func(c *Config) {
			c.Refresh.Blackout = BlackoutConfig{Enabled: true, StartHour: 24}
		}, "start_hour"},
		{"ai provider", func(c *Config) { c.Enrichment.AI.Provider = "gpt" }, "enrichment.ai.provider"},
		{"ollama model", func(c *Config) { c.Enrichment.AI.Provider = "ollama" }, "enrichment.ai.model"},
		{"odd height", func(c *Config) { c.Enrichment.Thumbnail.Height = 35 }, "must be even"},
		{"store addr", func(c *Config) {
			c.SessionStore = SessionStoreConfig{Driver: "redis"}
		}, "session_store.addr"},
		{"geo key", func(c *Config) { c.Geo.Provider = "ipgeolocation" }, "geo.api_key"},
		{"geo range", func(c *Config) { c.Geo.Lat = 120 }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			errs := cfg.Validate()
			assert.True(t, containsError(errs, tt.want), "expected %q in %v", tt.want, errs)
		})
	}

	// disabled sections are not checked
	cfg := valid()
	cfg.Enrichment.Enabled = false
	cfg.Enrichment.AI.Provider = "gpt"
	assert.Empty(t, cfg.Validate())
}

func TestConfigError(t *testing.T) {
	assert.Empty(t, (&ConfigError{Path: "c.toml"}).Error())

	e := &ConfigError{Path: "c.toml", Missing: []string{"API_KEY", "SECRET"}, Errors: []string{"server.port: invalid"}}
	got := e.Error()
	assert.True(t, e.HasErrors())
	assert.Contains(t, got, "missing environment variables: API_KEY, SECRET")
	assert.Contains(t, got, "validation failed")
	assert.Contains(t, got, "  - server.port: invalid")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/anticine/config.toml", DefaultPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, DefaultPath(), filepath.Join(".config", "anticine", "config.toml"))
}

func TestDiscover_EnvVar(t *testing.T) {
	path := writeConfig(t, "[server]")
	t.Setenv("ANTICINE_CONFIG", path)

	got, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, path, got)

	t.Setenv("ANTICINE_CONFIG", "/nonexistent/config.toml")
	_, err = Discover()
	assert.ErrorContains(t, err, "ANTICINE_CONFIG")
}

func TestDiscover_CurrentDir(t *testing.T) {
	t.Setenv("ANTICINE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[server]"), 0o644))
	t.Chdir(dir)

	got, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, "./config.toml", got)
}

func TestWriteDefault_LoadsAndValidates(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "nested", "anticine", "config.toml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Enrichment.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Refresh.Venues)
	assert.Equal(t, "⛄🏰👸🏔️🥶", cfg.Enrichment.AI.StaticReply)

	err = WriteDefault(path, false)
	assert.ErrorIs(t, err, ErrExists)
	assert.NoError(t, WriteDefault(path, true))
}

func TestConfig_Write_RoundTrip(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[upstream]\nbrand = \"Cineplanet\"\n[refresh]\nboards = \"15m\"\n"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "config.toml")
	require.NoError(t, cfg.Write(path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
