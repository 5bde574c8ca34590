package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile selects where credentials and the site name come from.
type Profile string

const (
	ProfileProduction Profile = "production"
	// ProfileTest reads AUTH_EMAIL / AUTH_KEY and CLOUDFLARE_DUMMY_SITE, for CI runs.
	ProfileTest Profile = "test"
)

const (
	DefaultBaseURL     = "https://api.cloudflare.com/client/v4"
	DefaultTimeout     = 10 * time.Second
	DefaultBatchSize   = 30
	// MaxBatchSize is the most files Cloudflare accepts in one purge_cache request.
	MaxBatchSize       = 30
	DefaultConcurrency = 1
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/53.0.2785.143 Safari/537.36"
	DefaultMetricsPath = "/metrics"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Profile    Profile    `yaml:"profile"`
	Site       Site       `yaml:"site"`
	Cloudflare Cloudflare `yaml:"cloudflare"`
	Cache      Cache      `yaml:"cache"`
	Purge      Purge      `yaml:"purge"`
	Log        LogConfig  `yaml:"log"`
	Metrics    Metrics    `yaml:"metrics"`
	Telegram   Telegram   `yaml:"telegram"`
}

type Site struct {
	ServerName   string   `yaml:"server_name"`
	DocumentRoot string   `yaml:"document_root"`
	PagesFile    string   `yaml:"pages_file"`
	Exclude      []string `yaml:"exclude"`
}

type Cloudflare struct {
	BaseURL            string   `yaml:"base_url"`
	Timeout            Duration `yaml:"timeout"`
	CacheEnabled       bool     `yaml:"cache_enabled"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	UserAgent          string   `yaml:"user_agent"`
}

type Cache struct {
	Backend string   `yaml:"backend"`
	TTL     Duration `yaml:"ttl"`
	Redis   Redis    `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Purge struct {
	BatchSize   int      `yaml:"batch_size"`
	Concurrency int      `yaml:"concurrency"`
	Variants    Variants `yaml:"variants"`
}

// Variants adds extra URLs for every expanded input on top of the plain http:// one.
type Variants struct {
	HTTPS bool `yaml:"https"`
	WWW   bool `yaml:"www"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

type Telegram struct {
	BotToken string `yaml:"botToken"`
	ChatID   int64  `yaml:"chatID"`
}

// Load reads and validates the YAML file at path. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("unknown configuration field (check for typos): %w", err)
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills in defaults and rejects values the purge pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Profile {
	case "":
		c.Profile = ProfileProduction
	case ProfileProduction, ProfileTest:
	default:
		return fmt.Errorf("invalid profile %q (want %q or %q)", c.Profile, ProfileProduction, ProfileTest)
	}

	if c.Cloudflare.BaseURL == "" {
		c.Cloudflare.BaseURL = DefaultBaseURL
	}
	c.Cloudflare.BaseURL = strings.TrimRight(c.Cloudflare.BaseURL, "/")
	if c.Cloudflare.Timeout < 0 {
		return fmt.Errorf("cloudflare.timeout must not be negative")
	}
	if c.Cloudflare.Timeout == 0 {
		c.Cloudflare.Timeout = Duration(DefaultTimeout)
	}
	if c.Cloudflare.UserAgent == "" {
		c.Cloudflare.UserAgent = DefaultUserAgent
	}

	switch c.Cache.Backend {
	case "":
		c.Cache.Backend = CacheBackendMemory
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.backend is %q", CacheBackendRedis)
		}
	default:
		return fmt.Errorf("invalid cache.backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	if c.Purge.BatchSize < 0 {
		return fmt.Errorf("purge.batch_size must not be negative")
	}
	if c.Purge.BatchSize == 0 {
		c.Purge.BatchSize = DefaultBatchSize
	}
	if c.Purge.BatchSize > MaxBatchSize {
		return fmt.Errorf("purge.batch_size must not exceed %d", MaxBatchSize)
	}
	if c.Purge.Concurrency < 0 {
		return fmt.Errorf("purge.concurrency must not be negative")
	}
	if c.Purge.Concurrency == 0 {
		c.Purge.Concurrency = DefaultConcurrency
	}

	if c.Metrics.Enabled {
		if c.Metrics.Listen == "" {
			return fmt.Errorf("metrics.listen is required when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			c.Metrics.Path = DefaultMetricsPath
		}
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chatID is required when telegram.botToken is set")
	}

	if err := c.Log.validate(); err != nil {
		return err
	}
	return nil
}
