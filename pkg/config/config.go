package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Backend struct {
		BaseURL        string        `yaml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"backend"`

	Bootstrap struct {
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"bootstrap"`

	Socket struct {
		PingInterval    time.Duration `yaml:"ping_interval"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		BackoffBase     time.Duration `yaml:"backoff_base"`
		BackoffMax      time.Duration `yaml:"backoff_max"`
		MaxAttempts     int           `yaml:"max_attempts"`
		TypingPerSecond float64       `yaml:"typing_per_second"`
		TypingBurst     int           `yaml:"typing_burst"`
	} `yaml:"socket"`

	Store struct {
		TypingTTL     time.Duration `yaml:"typing_ttl"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"store"`

	Persistence struct {
		Backend  string `yaml:"backend"` // memory | file | redis
		FilePath string `yaml:"file_path"`
		Redis    struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
		} `yaml:"redis"`
	} `yaml:"persistence"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	MockBackend struct {
		Address        string        `yaml:"address"`
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
		SessionShape   string        `yaml:"session_shape"` // "current" or "legacy"
		RateLimiting   struct {
			Enabled           bool    `yaml:"enabled"`
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"rate_limiting"`
	} `yaml:"mock_backend"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be > 0")
	}

	if c.Bootstrap.RetryDelay <= 0 {
		return fmt.Errorf("bootstrap.retry_delay must be > 0")
	}

	if c.Socket.PingInterval <= 0 {
		return fmt.Errorf("socket.ping_interval must be > 0")
	}
	if c.Socket.WriteTimeout <= 0 {
		return fmt.Errorf("socket.write_timeout must be > 0")
	}
	if c.Socket.BackoffBase <= 0 {
		return fmt.Errorf("socket.backoff_base must be > 0")
	}
	if c.Socket.BackoffMax < c.Socket.BackoffBase {
		return fmt.Errorf("socket.backoff_max must be >= socket.backoff_base")
	}
	if c.Socket.MaxAttempts <= 0 {
		return fmt.Errorf("socket.max_attempts must be > 0")
	}
	if c.Socket.TypingPerSecond <= 0 {
		return fmt.Errorf("socket.typing_per_second must be > 0")
	}
	if c.Socket.TypingBurst <= 0 {
		return fmt.Errorf("socket.typing_burst must be > 0")
	}

	if c.Store.TypingTTL <= 0 {
		return fmt.Errorf("store.typing_ttl must be > 0")
	}
	if c.Store.SweepInterval <= 0 {
		return fmt.Errorf("store.sweep_interval must be > 0")
	}

	switch c.Persistence.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("persistence.backend must be one of memory, file, redis")
	}
	if c.Persistence.Backend == "file" && c.Persistence.FilePath == "" {
		return fmt.Errorf("persistence.file_path must not be empty when backend=file")
	}
	if c.Persistence.Backend == "redis" {
		if c.Persistence.Redis.Address == "" {
			return fmt.Errorf("persistence.redis.address must not be empty when backend=redis")
		}
		if c.Persistence.Redis.PoolSize <= 0 {
			return fmt.Errorf("persistence.redis.pool_size must be > 0 when backend=redis")
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in (0, 1]")
		}
	}

	if c.MockBackend.Address == "" {
		return fmt.Errorf("mock_backend.address must not be empty")
	}
	if c.MockBackend.JWTSecret == "" {
		return fmt.Errorf("mock_backend.jwt_secret must not be empty")
	}
	if c.MockBackend.AccessTokenTTL <= 0 {
		return fmt.Errorf("mock_backend.access_token_ttl must be > 0")
	}
	if c.MockBackend.SessionShape != "current" && c.MockBackend.SessionShape != "legacy" {
		return fmt.Errorf("mock_backend.session_shape must be 'current' or 'legacy'")
	}
	if c.MockBackend.RateLimiting.Enabled {
		if c.MockBackend.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("mock_backend.rate_limiting.requests_per_second must be > 0 when enabled")
		}
		if c.MockBackend.RateLimiting.Burst <= 0 {
			return fmt.Errorf("mock_backend.rate_limiting.burst must be > 0 when enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Backend.BaseURL = "http://localhost:8080"
	cfg.Backend.RequestTimeout = 10 * time.Second

	cfg.Bootstrap.RetryDelay = 2500 * time.Millisecond

	cfg.Socket.PingInterval = 30 * time.Second
	cfg.Socket.WriteTimeout = 10 * time.Second
	cfg.Socket.BackoffBase = 1 * time.Second
	cfg.Socket.BackoffMax = 30 * time.Second
	cfg.Socket.MaxAttempts = 5
	cfg.Socket.TypingPerSecond = 2
	cfg.Socket.TypingBurst = 4

	cfg.Store.TypingTTL = 3 * time.Second
	cfg.Store.SweepInterval = 1 * time.Second

	cfg.Persistence.Backend = "memory"
	cfg.Persistence.FilePath = "digis-state.json"
	cfg.Persistence.Redis.Address = "localhost:6379"
	cfg.Persistence.Redis.DB = 0
	cfg.Persistence.Redis.PoolSize = 10

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.MockBackend.Address = ":8080"
	cfg.MockBackend.JWTSecret = "change-me-in-production"
	cfg.MockBackend.AccessTokenTTL = 15 * time.Minute
	cfg.MockBackend.SessionShape = "current"
	cfg.MockBackend.RateLimiting.Enabled = false
	cfg.MockBackend.RateLimiting.RequestsPerSecond = 50
	cfg.MockBackend.RateLimiting.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if url := os.Getenv("DIGIS_BACKEND_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if level := os.Getenv("DIGIS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if backend := os.Getenv("DIGIS_PERSISTENCE_BACKEND"); backend != "" {
		c.Persistence.Backend = backend
	}
	if addr := os.Getenv("DIGIS_REDIS_ADDRESS"); addr != "" {
		c.Persistence.Redis.Address = addr
	}
	if secret := os.Getenv("DIGIS_JWT_SECRET"); secret != "" {
		c.MockBackend.JWTSecret = secret
	}
}
