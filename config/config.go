// Package config holds pricescout settings. Values come from defaults, then
// a .env file and PRICESCOUT_* variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "PRICESCOUT_"

// Config holds search, cache, browser and output settings.
type Config struct {
	MaxResults        int
	Timeout           time.Duration
	NavigationTimeout time.Duration
	SelectorWait      time.Duration
	QuickTimeout      time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration
	UserAgent         string

	SearchCacheTTL   time.Duration
	AnalysisCacheTTL time.Duration
	CacheSize        int
	CacheBackend     string // memory or redis
	RedisAddr        string

	BrowserMode   string // shared or isolated
	ChromeBin     string
	ShutdownGrace time.Duration

	OutputFile   string
	OutputFormat string // csv, json, dual, postgres, or none
	PostgresDSN  string
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		MaxResults:        10,
		Timeout:           10 * time.Second,
		NavigationTimeout: 20 * time.Second,
		SelectorWait:      5 * time.Second,
		QuickTimeout:      12 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      time.Second,
		RetryBackoffMax:   5 * time.Second,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		SearchCacheTTL:    30 * time.Minute,
		AnalysisCacheTTL:  time.Hour,
		CacheSize:         1024,
		CacheBackend:      "memory",
		RedisAddr:         "localhost:6379",
		BrowserMode:       "shared",
		ShutdownGrace:     10 * time.Second,
		OutputFile:        "output/listings.csv",
		OutputFormat:      "none",
	}
}

// Load reads an optional .env file and applies PRICESCOUT_* variables on
// top of the defaults. Variables already set in the environment win over
// the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	ints := map[string]*int{
		"MAX_RESULTS": &c.MaxResults,
		"MAX_RETRIES": &c.MaxRetries,
		"CACHE_SIZE":  &c.CacheSize,
	}
	for name, dst := range ints {
		v, ok, err := EnvInt(envPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":            &c.Timeout,
		"NAVIGATION_TIMEOUT": &c.NavigationTimeout,
		"SELECTOR_WAIT":      &c.SelectorWait,
		"QUICK_TIMEOUT":      &c.QuickTimeout,
		"RETRY_BACKOFF":      &c.RetryBackoff,
		"RETRY_BACKOFF_MAX":  &c.RetryBackoffMax,
		"SEARCH_CACHE_TTL":   &c.SearchCacheTTL,
		"ANALYSIS_CACHE_TTL": &c.AnalysisCacheTTL,
		"SHUTDOWN_GRACE":     &c.ShutdownGrace,
	}
	for name, dst := range durations {
		v, ok, err := EnvDuration(envPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
	}

	strs := map[string]*string{
		"USER_AGENT":    &c.UserAgent,
		"CACHE_BACKEND": &c.CacheBackend,
		"REDIS_ADDR":    &c.RedisAddr,
		"BROWSER_MODE":  &c.BrowserMode,
		"CHROME_BIN":    &c.ChromeBin,
		"OUTPUT":        &c.OutputFile,
		"FORMAT":        &c.OutputFormat,
		"POSTGRES_DSN":  &c.PostgresDSN,
		"METRICS_ADDR":  &c.MetricsAddr,
	}
	for name, dst := range strs {
		if v, ok := EnvString(envPrefix + name); ok {
			*dst = v
		}
	}

	v, ok, err := EnvBool(envPrefix + "VERBOSE")
	if err != nil {
		return err
	}
	if ok {
		c.Verbose = v
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.SelectorWait < 0 {
		return fmt.Errorf("selector wait cannot be negative")
	}
	if c.QuickTimeout <= 0 {
		return fmt.Errorf("quick timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.SearchCacheTTL < 0 || c.AnalysisCacheTTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	switch c.CacheBackend {
	case "memory":
		if c.CacheSize <= 0 {
			return fmt.Errorf("cache size must be positive")
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
	default:
		return fmt.Errorf("cache backend must be memory or redis")
	}
	if c.BrowserMode != "shared" && c.BrowserMode != "isolated" {
		return fmt.Errorf("browser mode must be shared or isolated")
	}
	if c.ShutdownGrace <= 0 {
		return fmt.Errorf("shutdown grace must be positive")
	}
	switch c.OutputFormat {
	case "none":
	case "csv", "json", "dual":
		if c.OutputFile == "" {
			return fmt.Errorf("output file cannot be empty")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn cannot be empty")
		}
	default:
		return fmt.Errorf("output format must be csv, json, dual, postgres, or none")
	}
	return nil
}

// EnvInt reads an integer variable. ok is false when it is unset or blank.
func EnvInt(name string) (int, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return v, true, nil
}

// EnvString reads a trimmed variable. ok is false when it is unset or blank.
func EnvString(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", false
	}
	return v, true
}

// EnvDuration reads a duration such as "30s" or "1h". A bare integer is
// taken as milliseconds.
func EnvDuration(name string) (time.Duration, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, true, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return d, true, nil
}

func EnvBool(name string) (bool, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return false, false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", name, err)
	}
	return v, true, nil
}
