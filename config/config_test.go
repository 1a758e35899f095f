package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero max results",
			mutate:  func(cfg *Config) { cfg.MaxResults = 0 },
			wantErr: "max results",
		},
		{
			name:    "negative timeout",
			mutate:  func(cfg *Config) { cfg.Timeout = -1 * time.Second },
			wantErr: "timeout",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 3 * time.Second
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "cannot exceed",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(cfg *Config) { cfg.CacheBackend = "memcached" },
			wantErr: "cache backend",
		},
		{
			name: "redis without address",
			mutate: func(cfg *Config) {
				cfg.CacheBackend = "redis"
				cfg.RedisAddr = ""
			},
			wantErr: "redis address",
		},
		{
			name:    "unknown browser mode",
			mutate:  func(cfg *Config) { cfg.BrowserMode = "pooled" },
			wantErr: "browser mode",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(cfg *Config) { cfg.OutputFormat = "postgres" },
			wantErr: "postgres dsn",
		},
		{
			name: "csv without file",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "csv"
				cfg.OutputFile = ""
			},
			wantErr: "output file",
		},
		{
			name:    "unknown format",
			mutate:  func(cfg *Config) { cfg.OutputFormat = "xml" },
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.MaxResults != 10 || cfg.SearchCacheTTL != 30*time.Minute || cfg.AnalysisCacheTTL != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRICESCOUT_MAX_RESULTS", "25")
	t.Setenv("PRICESCOUT_SEARCH_CACHE_TTL", "5m")
	t.Setenv("PRICESCOUT_TIMEOUT", "1500")
	t.Setenv("PRICESCOUT_CACHE_BACKEND", "redis")
	t.Setenv("PRICESCOUT_VERBOSE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxResults != 25 {
		t.Fatalf("max results = %d, want 25", cfg.MaxResults)
	}
	if cfg.SearchCacheTTL != 5*time.Minute {
		t.Fatalf("search ttl = %s, want 5m", cfg.SearchCacheTTL)
	}
	if cfg.Timeout != 1500*time.Millisecond {
		t.Fatalf("timeout = %s, want 1.5s", cfg.Timeout)
	}
	if cfg.CacheBackend != "redis" || !cfg.Verbose {
		t.Fatalf("backend/verbose = %q/%v", cfg.CacheBackend, cfg.Verbose)
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	env := "PRICESCOUT_MAX_RESULTS=7\nPRICESCOUT_BROWSER_MODE=isolated\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PRICESCOUT_MAX_RESULTS", "3")
	t.Cleanup(func() { os.Unsetenv("PRICESCOUT_BROWSER_MODE") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxResults != 3 {
		t.Fatalf("max results = %d, want the process value 3", cfg.MaxResults)
	}
	if cfg.BrowserMode != "isolated" {
		t.Fatalf("browser mode = %q, want isolated from .env", cfg.BrowserMode)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRICESCOUT_CACHE_SIZE", "lots")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PRICESCOUT_CACHE_SIZE") {
		t.Fatalf("expected cache size error, got %v", err)
	}
}
