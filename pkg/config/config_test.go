package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "backend url must not be empty",
			mutate: func(c *Config) { c.Backend.BaseURL = "" },
		},
		{
			name:   "bootstrap retry delay must be > 0",
			mutate: func(c *Config) { c.Bootstrap.RetryDelay = 0 },
		},
		{
			name:   "backoff max must be >= base",
			mutate: func(c *Config) { c.Socket.BackoffMax = c.Socket.BackoffBase / 2 },
		},
		{
			name:   "socket max attempts must be > 0",
			mutate: func(c *Config) { c.Socket.MaxAttempts = 0 },
		},
		{
			name:   "typing ttl must be > 0",
			mutate: func(c *Config) { c.Store.TypingTTL = 0 },
		},
		{
			name:   "persistence backend must be a known value",
			mutate: func(c *Config) { c.Persistence.Backend = "localstorage" },
		},
		{
			name: "file backend requires a path",
			mutate: func(c *Config) {
				c.Persistence.Backend = "file"
				c.Persistence.FilePath = ""
			},
		},
		{
			name: "redis backend requires an address",
			mutate: func(c *Config) {
				c.Persistence.Backend = "redis"
				c.Persistence.Redis.Address = ""
			},
		},
		{
			name: "tracing sample rate must be in (0, 1]",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 1.5
			},
		},
		{
			name:   "mock backend session shape must be known",
			mutate: func(c *Config) { c.MockBackend.SessionShape = "v3" },
		},
		{
			name: "mock backend rate limiting rps must be > 0 when enabled",
			mutate: func(c *Config) {
				c.MockBackend.RateLimiting.Enabled = true
				c.MockBackend.RateLimiting.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got error: %v", err)
	}
	if cfg.Bootstrap.RetryDelay != 2500*time.Millisecond {
		t.Errorf("expected default retry delay, got %v", cfg.Bootstrap.RetryDelay)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("backend:\n  base_url: https://api.example.com\nsocket:\n  max_attempts: 7\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.example.com" {
		t.Errorf("expected overridden base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Socket.MaxAttempts != 7 {
		t.Errorf("expected overridden max attempts, got %d", cfg.Socket.MaxAttempts)
	}
	// Untouched values keep their defaults.
	if cfg.Socket.PingInterval != 30*time.Second {
		t.Errorf("expected default ping interval, got %v", cfg.Socket.PingInterval)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DIGIS_BACKEND_URL", "https://env.example.com")
	t.Setenv("DIGIS_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://env.example.com" {
		t.Errorf("expected env override for base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env override for log level, got %s", cfg.Logging.Level)
	}
}
