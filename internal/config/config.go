// Package config provides configuration loading for the catalog viewer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/app"
	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/pkg/client"
	"github.com/Sternrassler/catalog-viewer/pkg/fanout"
	"github.com/Sternrassler/catalog-viewer/pkg/logging"
	"github.com/Sternrassler/catalog-viewer/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent identifies the viewer to the catalog API.
const DefaultUserAgent = "catalog-viewer/1.0 (+https://github.com/Sternrassler/catalog-viewer)"

// Config holds static configuration (read-only after load).
type Config struct {
	API       APIConfig       `yaml:"api"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Fanout    FanoutConfig    `yaml:"fanout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig configures the remote catalog API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CatalogConfig configures loading and paging.
type CatalogConfig struct {
	FetchLimit    int           `yaml:"fetch_limit"`
	PageSize      int           `yaml:"page_size"`
	DetailTimeout time.Duration `yaml:"detail_timeout"`
}

// FanoutConfig bounds concurrent detail fetches.
type FanoutConfig struct {
	// MaxConcurrency of 0 fetches every item at once
	MaxConcurrency int           `yaml:"max_concurrency"`
	ItemTimeout    time.Duration `yaml:"item_timeout"`
}

// RateLimitConfig configures the client-side limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CacheConfig configures the optional Redis response cache.
type CacheConfig struct {
	// RedisAddr enables the cache when set (host:port)
	RedisAddr string        `yaml:"redis_addr,omitempty"`
	RedisDB   int           `yaml:"redis_db"`
	MaxTTL    time.Duration `yaml:"max_ttl"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	MaxSessions     int           `yaml:"max_sessions"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty"`
	SecureCookies   bool          `yaml:"secure_cookies"`

	// AdminToken enables POST /admin/reload for bearers of this token
	AdminToken string `yaml:"admin_token,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config with default values.
func Default() *Config {
	fan := fanout.DefaultConfig()
	limit := ratelimit.DefaultConfig()
	appCfg := app.DefaultConfig()

	return &Config{
		API: APIConfig{
			BaseURL:   client.DefaultBaseURL,
			UserAgent: DefaultUserAgent,
			Timeout:   30 * time.Second,
		},
		Catalog: CatalogConfig{
			FetchLimit:    catalog.DefaultFetchLimit,
			PageSize:      catalog.DefaultPageSize,
			DetailTimeout: appCfg.DetailTimeout,
		},
		Fanout: FanoutConfig{
			MaxConcurrency: fan.MaxConcurrency,
			ItemTimeout:    fan.Timeout,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: limit.RequestsPerSecond,
			Burst:             limit.Burst,
		},
		Cache: CacheConfig{
			MaxTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Port:            8080,
			SessionTTL:      appCfg.SessionTTL,
			MaxSessions:     appCfg.MaxSessions,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path uses the defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CATALOG_API_BASE"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CATALOG_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("CATALOG_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects settings the viewer cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.UserAgent == "" {
		errs = append(errs, errors.New("api.user_agent is required"))
	}
	if c.Catalog.FetchLimit <= 0 {
		errs = append(errs, fmt.Errorf("catalog.fetch_limit must be positive (got %d)", c.Catalog.FetchLimit))
	}
	if c.Catalog.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("catalog.page_size must be positive (got %d)", c.Catalog.PageSize))
	}
	if c.Fanout.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("fanout.max_concurrency must be >= 0 (got %d)", c.Fanout.MaxConcurrency))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be >= 0 (got %v)", c.RateLimit.RequestsPerSecond))
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions must be >= 0 (got %d)", c.Server.MaxSessions))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range (got %d)", c.Server.Port))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Redis returns a Redis client for the response cache, nil when disabled.
func (c *Config) Redis() *redis.Client {
	if c.Cache.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: c.Cache.RedisAddr,
		DB:   c.Cache.RedisDB,
	})
}

// ClientConfig returns the catalog API client settings.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(redisClient, c.API.UserAgent)
	cfg.BaseURL = c.API.BaseURL
	cfg.Timeout = c.API.Timeout
	cfg.CacheMaxTTL = c.Cache.MaxTTL
	cfg.RateLimit = ratelimit.Config{
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Burst:             c.RateLimit.Burst,
	}
	return cfg
}

// FanoutConfig returns the fan-out settings.
func (c *Config) FanoutConfig() fanout.Config {
	return fanout.Config{
		MaxConcurrency: c.Fanout.MaxConcurrency,
		Timeout:        c.Fanout.ItemTimeout,
	}
}

// AppConfig returns the application settings.
func (c *Config) AppConfig() app.Config {
	return app.Config{
		FetchLimit:    c.Catalog.FetchLimit,
		PageSize:      c.Catalog.PageSize,
		SessionTTL:    c.Server.SessionTTL,
		MaxSessions:   c.Server.MaxSessions,
		DetailTimeout: c.Catalog.DetailTimeout,
	}
}

// LoggingConfig returns the logger settings.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}
