package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures everything the dashboard backend needs at startup.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Scraper ScraperConfig `yaml:"scraper"`
	Links   LinksConfig   `yaml:"links"`
	Suggest SuggestConfig `yaml:"suggest"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Stats   StatsConfig   `yaml:"stats"`
}

// ServerConfig controls the HTTP listener and request admission.
type ServerConfig struct {
	Addr           string  `yaml:"addr"`
	GinMode        string  `yaml:"gin_mode"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	RequireCompany bool    `yaml:"require_company"`
	DevMode        bool    `yaml:"dev_mode"`
}

// StoreConfig locates the analysis record database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ScraperConfig tunes page fetching.
type ScraperConfig struct {
	UserAgent     string   `yaml:"user_agent"`
	Timeout       Duration `yaml:"timeout"`
	MaxBodyBytes  int64    `yaml:"max_body_bytes"`
	RenderJS      bool     `yaml:"render_js"`
	RenderTimeout Duration `yaml:"render_timeout"`
}

// LinksConfig tunes broken-link checking.
type LinksConfig struct {
	Timeout     Duration `yaml:"timeout"`
	Concurrency int      `yaml:"concurrency"`
	CacheTTL    Duration `yaml:"cache_ttl"`
	Skip        bool     `yaml:"skip"`
}

// SuggestConfig points at an OpenAI-compatible chat completion endpoint.
// An empty APIKey selects the offline heuristic generator.
type SuggestConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Timeout     Duration `yaml:"timeout"`
	Temperature float64  `yaml:"temperature"`
}

// CacheConfig selects the scrape result cache backend.
type CacheConfig struct {
	Backend       string   `yaml:"backend"` // memory or redis
	TTL           Duration `yaml:"ttl"`
	MaxEntries    int      `yaml:"max_entries"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	RedisDB       int      `yaml:"redis_db"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// StatsConfig locates the statistics files.
type StatsConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8082",
			GinMode:        "release",
			RateLimitRPS:   2,
			RateLimitBurst: 5,
		},
		Store: StoreConfig{
			Path: "data/analyses.db",
		},
		Scraper: ScraperConfig{
			UserAgent:     "SEODashboard/1.0",
			Timeout:       DurationFrom(15 * time.Second),
			MaxBodyBytes:  6 * 1024 * 1024,
			RenderTimeout: DurationFrom(30 * time.Second),
		},
		Links: LinksConfig{
			Timeout:     DurationFrom(5 * time.Second),
			Concurrency: 10,
			CacheTTL:    DurationFrom(10 * time.Minute),
		},
		Suggest: SuggestConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Timeout:     DurationFrom(60 * time.Second),
			Temperature: 0.2,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        DurationFrom(30 * time.Minute),
			MaxEntries: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Stats: StatsConfig{
			DataDir: "data",
		},
	}
}

// LoadEnv loads .env.development, falling back to .env. A missing file is
// not an error.
func LoadEnv() error {
	if err := godotenv.Load(".env.development"); err == nil {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer fh.Close()
		if err := decodeYAML(fh, &cfg); err != nil {
			return nil, err
		}
	}
	return finish(cfg)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg Config) (*Config, error) {
	cfg.applyEnv()
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		c.Server.GinMode = mode
	}
	if dev := os.Getenv("DEV_MODE"); dev != "" {
		c.Server.DevMode = dev == "true"
	}
	if v := os.Getenv("SEO_DB_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("SEO_DATA_DIR"); v != "" {
		c.Stats.DataDir = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.Suggest.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.Suggest.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.Suggest.Model = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("RENDER_JS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Scraper.RenderJS = b
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalise() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Server.GinMode = strings.ToLower(strings.TrimSpace(c.Server.GinMode))
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	c.Scraper.UserAgent = strings.TrimSpace(c.Scraper.UserAgent)
	c.Suggest.BaseURL = strings.TrimRight(strings.TrimSpace(c.Suggest.BaseURL), "/")
	c.Suggest.APIKey = strings.TrimSpace(c.Suggest.APIKey)
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate enforces required invariants for the configuration.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("server.rate_limit_rps must be > 0 (got %v)", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("server.rate_limit_burst must be > 0 (got %d)", c.Server.RateLimitBurst)
	}
	if c.Store.Path == "" {
		return errors.New("store.path must be set")
	}
	if c.Scraper.UserAgent == "" {
		return errors.New("scraper.user_agent must be set")
	}
	if c.Scraper.MaxBodyBytes <= 0 {
		return fmt.Errorf("scraper.max_body_bytes must be > 0 (got %d)", c.Scraper.MaxBodyBytes)
	}
	if c.Links.Concurrency <= 0 {
		return fmt.Errorf("links.concurrency must be > 0 (got %d)", c.Links.Concurrency)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none (got %q)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr must be set when cache.backend is redis")
	}
	if c.Suggest.APIKey != "" && c.Suggest.BaseURL == "" {
		return errors.New("suggest.base_url must be set when suggest.api_key is set")
	}
	return nil
}
