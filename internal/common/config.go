package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Cartera
type Config struct {
	Environment string        `toml:"environment"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Refresh     RefreshConfig `toml:"refresh"`
	Logging     LoggingConfig `toml:"logging"`
}

// StorageConfig selects the snapshot backend.
// Backend is one of "badger" (default), "sqlite", "file" or "memory".
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	Key     string `toml:"key"` // key the whole snapshot is stored under
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Quote HTTPClientConfig `toml:"quote"`
	Rate  HTTPClientConfig `toml:"rate"`
}

// HTTPClientConfig holds base URL, throttling and timeout for an upstream API
type HTTPClientConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *HTTPClientConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// RefreshConfig controls the price refresh scheduler
type RefreshConfig struct {
	Debounce      string  `toml:"debounce"`
	PollInterval  string  `toml:"poll_interval"`
	RateInterval  string  `toml:"rate_interval"`
	FetchTimeout  string  `toml:"fetch_timeout"`
	AutoPrice     bool    `toml:"auto_price"`
	ReferenceRate float64 `toml:"reference_rate"` // manual CCL override, 0 = fetch
}

// GetDebounce returns the quiet period after an edit before a fetch fires
func (c *RefreshConfig) GetDebounce() time.Duration {
	return parseDuration(c.Debounce, time.Second)
}

// GetPollInterval returns the per-investment polling period
func (c *RefreshConfig) GetPollInterval() time.Duration {
	return parseDuration(c.PollInterval, 5*time.Second)
}

// GetRateInterval returns the reference rate refresh period
func (c *RefreshConfig) GetRateInterval() time.Duration {
	return parseDuration(c.RateInterval, 10*time.Minute)
}

// GetFetchTimeout bounds a single quote or rate request
func (c *RefreshConfig) GetFetchTimeout() time.Duration {
	return parseDuration(c.FetchTimeout, 15*time.Second)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "data/cartera",
			Key:     "stocksApp",
		},
		Clients: ClientsConfig{
			Quote: HTTPClientConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			Rate: HTTPClientConfig{
				BaseURL:   "https://dolarapi.com",
				RateLimit: 1,
				Timeout:   "10s",
			},
		},
		Refresh: RefreshConfig{
			Debounce:     "1s",
			PollInterval: "5s",
			RateInterval: "10m",
			FetchTimeout: "15s",
			AutoPrice:    true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"console"},
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateStorageBackend(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CARTERA_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("CARTERA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("CARTERA_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if path := os.Getenv("CARTERA_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "cartera")
	}

	if u := os.Getenv("CARTERA_QUOTE_BASE_URL"); u != "" {
		config.Clients.Quote.BaseURL = u
	}

	if u := os.Getenv("CARTERA_RATE_BASE_URL"); u != "" {
		config.Clients.Rate.BaseURL = u
	}

	if v := os.Getenv("CARTERA_AUTO_PRICE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Refresh.AutoPrice = b
		}
	}

	if v := os.Getenv("CARTERA_REFERENCE_RATE"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			config.Refresh.ReferenceRate = r
		}
	}
}

// validateStorageBackend falls back to badger for unknown backends.
func validateStorageBackend(config *Config) {
	switch strings.ToLower(config.Storage.Backend) {
	case "badger", "sqlite", "file", "memory":
		config.Storage.Backend = strings.ToLower(config.Storage.Backend)
	default:
		config.Storage.Backend = "badger"
	}
	if config.Storage.Key == "" {
		config.Storage.Key = "stocksApp"
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
