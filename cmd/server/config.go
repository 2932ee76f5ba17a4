// Package main provides the PlantSentry server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Transport TransportConfig `yaml:"transport"`
	Shortener ShortenerConfig `yaml:"shortener"`
	Registry  RegistryConfig  `yaml:"registry"`
	Policy    PolicyConfig    `yaml:"policy"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains listen addresses.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`    // REST API listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"`
}

// SourceConfig points at the upstream alert source.
type SourceConfig struct {
	URL             string        `yaml:"url"`
	FetchLimit      int           `yaml:"fetch_limit"`      // alerts per poll (default: 20)
	PollInterval    time.Duration `yaml:"poll_interval"`    // default: 1s
	BackoffInterval time.Duration `yaml:"backoff_interval"` // default: 10s
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // default: 5s
	FreshnessWindow time.Duration `yaml:"freshness_window"` // default: 5s
}

// TransportConfig configures the SMS gateway. Credentials come from the
// environment, not the file.
type TransportConfig struct {
	APIURL string `yaml:"api_url"`
	From   string `yaml:"from"`
}

// ShortenerConfig configures the link shortener service.
type ShortenerConfig struct {
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // default: 5s
}

// RegistryConfig configures the subscriber registry.
type RegistryConfig struct {
	File   string   `yaml:"file"`
	Admins []string `yaml:"admins"` // seeded on first run
}

// PolicyConfig points at the notification policy file.
type PolicyConfig struct {
	File string `yaml:"file"` // optional; built-in defaults when empty
}

// NotifyConfig configures dispatch behavior.
type NotifyConfig struct {
	MaxPerMinute   int    `yaml:"max_per_minute"` // 0 disables outbound throttle
	ActionLinkBase string `yaml:"action_link_base"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // json or console (default: json)
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Server.RateLimitPerIP <= 0 {
		c.Server.RateLimitPerIP = 120
	}
	if c.Source.FetchLimit <= 0 {
		c.Source.FetchLimit = 20
	}
	if c.Source.PollInterval <= 0 {
		c.Source.PollInterval = time.Second
	}
	if c.Source.BackoffInterval <= 0 {
		c.Source.BackoffInterval = 10 * time.Second
	}
	if c.Source.RequestTimeout <= 0 {
		c.Source.RequestTimeout = 5 * time.Second
	}
	if c.Source.FreshnessWindow <= 0 {
		c.Source.FreshnessWindow = 5 * time.Second
	}
	if c.Shortener.RequestTimeout <= 0 {
		c.Shortener.RequestTimeout = 5 * time.Second
	}
	if c.Registry.File == "" {
		c.Registry.File = "subscribers.txt"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Transport.APIURL == "" {
		return fmt.Errorf("transport.api_url is required")
	}
	if c.Transport.From == "" {
		return fmt.Errorf("transport.from is required")
	}
	if c.Notify.MaxPerMinute < 0 {
		return fmt.Errorf("notify.max_per_minute must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q is not json or console", c.Log.Format)
	}
	return nil
}
