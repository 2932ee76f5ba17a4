package alerting

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plantops/plantsentry/internal/models"
)

// Policy configures the cooldown gate: one window per severity plus the
// relative value-change threshold that overrides an active window.
type Policy struct {
	// Cooldowns maps severity to the minimum time between repeat
	// notifications for the same identity (e.g., "20s").
	Cooldowns map[string]string `yaml:"cooldowns"`
	// ValueChangeThreshold is the relative change between the current
	// value and the value at last notification that permits a
	// notification inside the cooldown window.
	ValueChangeThreshold float64 `yaml:"value_change_threshold"`

	// parsed windows (internal use).
	windows map[models.Severity]time.Duration
}

// Default cooldown windows per severity.
const (
	DefaultErrorCooldown   = 20 * time.Second
	DefaultWarningCooldown = 30 * time.Second
	DefaultInfoCooldown    = 60 * time.Second

	// DefaultValueChangeThreshold is the default relative change that
	// bypasses an active cooldown window.
	DefaultValueChangeThreshold = 0.1
)

// DefaultPolicy returns the built-in gate policy.
func DefaultPolicy() *Policy {
	return &Policy{
		ValueChangeThreshold: DefaultValueChangeThreshold,
		windows: map[models.Severity]time.Duration{
			models.SeverityError:   DefaultErrorCooldown,
			models.SeverityWarning: DefaultWarningCooldown,
			models.SeverityInfo:    DefaultInfoCooldown,
		},
	}
}

// Validate parses and checks the policy configuration. Severities absent
// from the file keep their default window.
func (p *Policy) Validate() error {
	defaults := DefaultPolicy()
	p.windows = defaults.windows

	if p.ValueChangeThreshold == 0 {
		p.ValueChangeThreshold = DefaultValueChangeThreshold
	}
	if p.ValueChangeThreshold < 0 {
		return fmt.Errorf("value_change_threshold must be non-negative, got %v", p.ValueChangeThreshold)
	}

	for sevName, raw := range p.Cooldowns {
		sev := models.Severity(sevName)
		if !sev.Valid() {
			return fmt.Errorf("unknown severity %q in cooldowns", sevName)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid cooldown %q for severity %q: %w", raw, sevName, err)
		}
		if d < 0 {
			return fmt.Errorf("cooldown for severity %q must be non-negative", sevName)
		}
		p.windows[sev] = d
	}

	return nil
}

// Window returns the cooldown window for a severity.
func (p *Policy) Window(severity models.Severity) time.Duration {
	if d, ok := p.windows[severity]; ok {
		return d
	}
	return DefaultInfoCooldown
}

// LoadPolicyFromFile loads a gate policy from a YAML file.
func LoadPolicyFromFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()

	return LoadPolicy(f)
}

// LoadPolicy loads a gate policy from a reader.
func LoadPolicy(r io.Reader) (*Policy, error) {
	var p Policy
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse policy YAML: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	return &p, nil
}
