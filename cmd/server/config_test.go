package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Source.URL = "http://alerts.local:9000"
	cfg.Transport.APIURL = "https://gateway.local/messages"
	cfg.Transport.From = "PlantSentry"
	return cfg
}

func TestConfigValidate_AcceptsMinimalConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
}

func TestConfigValidate_RequiresSourceURL(t *testing.T) {
	cfg := validConfig()
	cfg.Source.URL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing source.url")
	}
}

func TestConfigValidate_RequiresTransport(t *testing.T) {
	cfg := validConfig()
	cfg.Transport.APIURL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing transport.api_url")
	}

	cfg = validConfig()
	cfg.Transport.From = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing transport.from")
	}
}

func TestConfigValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for log.level")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("http_address = %q", cfg.Server.HTTPAddress)
	}
	if cfg.Source.PollInterval != time.Second {
		t.Errorf("poll_interval = %v, want 1s", cfg.Source.PollInterval)
	}
	if cfg.Source.BackoffInterval != 10*time.Second {
		t.Errorf("backoff_interval = %v, want 10s", cfg.Source.BackoffInterval)
	}
	if cfg.Source.FreshnessWindow != 5*time.Second {
		t.Errorf("freshness_window = %v, want 5s", cfg.Source.FreshnessWindow)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  http_address: ":8081"
source:
  url: "http://alerts.local:9000"
  fetch_limit: 50
transport:
  api_url: "https://gateway.local/messages"
  from: "PlantSentry"
registry:
  file: "/var/lib/plantsentry/subscribers.txt"
  admins:
    - "01012345678"
notify:
  action_link_base: "https://ops.local/actions"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.HTTPAddress != ":8081" {
		t.Errorf("http_address = %q", cfg.Server.HTTPAddress)
	}
	if cfg.Source.FetchLimit != 50 {
		t.Errorf("fetch_limit = %d", cfg.Source.FetchLimit)
	}
	if len(cfg.Registry.Admins) != 1 || cfg.Registry.Admins[0] != "01012345678" {
		t.Errorf("admins = %v", cfg.Registry.Admins)
	}
	// Defaults fill unspecified fields.
	if cfg.Source.PollInterval != time.Second {
		t.Errorf("poll_interval = %v, want default 1s", cfg.Source.PollInterval)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
