package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Duration)
}

func TestLoadFromReader(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PORT", "")

	yamlDoc := `
server:
  addr: ":9000"
  require_company: true
scraper:
  timeout: 3s
  render_js: true
links:
  cache_ttl: 90
cache:
  backend: " Memory "
suggest:
  base_url: "http://llm.local/v1/"
logging:
  level: DEBUG
`
	cfg, err := LoadFromReader(strings.NewReader(yamlDoc))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.RequireCompany)
	assert.Equal(t, 3*time.Second, cfg.Scraper.Timeout.Duration)
	assert.True(t, cfg.Scraper.RenderJS)
	assert.Equal(t, 90*time.Second, cfg.Links.CacheTTL.Duration)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "http://llm.local/v1", cfg.Suggest.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched defaults survive
	assert.Equal(t, 10, cfg.Links.Concurrency)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  nope: 1\n"))
	assert.Error(t, err)
}

func TestLoadEmptyDocument(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default().Store.Path, cfg.Store.Path)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RENDER_JS", "true")
	t.Setenv("SEO_DB_PATH", "/tmp/x.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Suggest.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.Scraper.RenderJS)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: custom.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Store.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero rps", func(c *Config) { c.Server.RateLimitRPS = 0 }},
		{"empty store", func(c *Config) { c.Store.Path = "" }},
		{"bad backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }},
		{"zero concurrency", func(c *Config) { c.Links.Concurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
