package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Storage.Backend != "badger" {
		t.Errorf("Storage.Backend default = %q, want %q", cfg.Storage.Backend, "badger")
	}
	if cfg.Storage.Key != "stocksApp" {
		t.Errorf("Storage.Key default = %q, want %q", cfg.Storage.Key, "stocksApp")
	}
	if got := cfg.Refresh.GetDebounce(); got != time.Second {
		t.Errorf("GetDebounce() = %v, want 1s", got)
	}
	if got := cfg.Refresh.GetPollInterval(); got != 5*time.Second {
		t.Errorf("GetPollInterval() = %v, want 5s", got)
	}
	if !cfg.Refresh.AutoPrice {
		t.Error("AutoPrice should default to true")
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	r := RefreshConfig{Debounce: "bogus", PollInterval: "-3s", RateInterval: ""}
	if got := r.GetDebounce(); got != time.Second {
		t.Errorf("GetDebounce() = %v, want fallback 1s", got)
	}
	if got := r.GetPollInterval(); got != 5*time.Second {
		t.Errorf("GetPollInterval() = %v, want fallback 5s", got)
	}
	if got := r.GetRateInterval(); got != 10*time.Minute {
		t.Errorf("GetRateInterval() = %v, want fallback 10m", got)
	}

	c := HTTPClientConfig{Timeout: "250ms"}
	if got := c.GetTimeout(); got != 250*time.Millisecond {
		t.Errorf("GetTimeout() = %v, want 250ms", got)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cartera.toml")
	content := `
environment = "production"

[storage]
backend = "sqlite"
path = "/var/lib/cartera/db.sqlite"

[refresh]
debounce = "2s"
auto_price = false

[clients.quote]
base_url = "http://quotes.local"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CARTERA_LOG_LEVEL", "debug")
	t.Setenv("CARTERA_REFERENCE_RATE", "1185.5")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Refresh.GetDebounce() != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", cfg.Refresh.GetDebounce())
	}
	if cfg.Refresh.AutoPrice {
		t.Error("AutoPrice should be false from file")
	}
	if cfg.Clients.Quote.BaseURL != "http://quotes.local" {
		t.Errorf("Quote.BaseURL = %q", cfg.Clients.Quote.BaseURL)
	}
	// untouched defaults survive a partial file
	if cfg.Clients.Rate.BaseURL != "https://dolarapi.com" {
		t.Errorf("Rate.BaseURL = %q, want default", cfg.Clients.Rate.BaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Refresh.ReferenceRate != 1185.5 {
		t.Errorf("ReferenceRate = %v, want 1185.5", cfg.Refresh.ReferenceRate)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Backend != "badger" {
		t.Errorf("Storage.Backend = %q, want badger", cfg.Storage.Backend)
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[storage\nbackend="), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_UnknownBackendFallsBack(t *testing.T) {
	t.Setenv("CARTERA_STORAGE_BACKEND", "surreal")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Backend != "badger" {
		t.Errorf("Storage.Backend = %q, want badger fallback", cfg.Storage.Backend)
	}
}

func TestConfig_AutoPriceEnvOverride(t *testing.T) {
	t.Setenv("CARTERA_AUTO_PRICE", "false")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Refresh.AutoPrice {
		t.Error("AutoPrice should be disabled by env override")
	}
}
