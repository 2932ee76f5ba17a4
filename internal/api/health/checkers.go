package health

import (
	"context"
	"fmt"
	"os"
)

// Pinger is implemented by collaborators that can verify reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SourceChecker checks the upstream alert source.
type SourceChecker struct {
	pinger Pinger
}

// NewSourceChecker creates a health checker for the alert source.
func NewSourceChecker(p Pinger) *SourceChecker {
	return &SourceChecker{pinger: p}
}

// Name returns the checker name.
func (c *SourceChecker) Name() string {
	return "alert_source"
}

// Check verifies the alert source is reachable.
func (c *SourceChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return fmt.Errorf("alert source not configured")
	}
	return c.pinger.Ping(ctx)
}

// RegistryFileChecker checks the subscriber file is present on disk.
type RegistryFileChecker struct {
	path string
}

// NewRegistryFileChecker creates a health checker for the subscriber file.
func NewRegistryFileChecker(path string) *RegistryFileChecker {
	return &RegistryFileChecker{path: path}
}

// Name returns the checker name.
func (c *RegistryFileChecker) Name() string {
	return "subscriber_file"
}

// Check verifies the subscriber file exists and is a regular file.
func (c *RegistryFileChecker) Check(ctx context.Context) error {
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("subscriber file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("subscriber file %s is a directory", c.path)
	}
	return nil
}

// PollerChecker reports whether the polling loop is healthy.
type PollerChecker struct {
	inBackoff func() bool
}

// NewPollerChecker creates a health checker for the polling loop.
// inBackoff reports whether the poller is currently backing off.
func NewPollerChecker(inBackoff func() bool) *PollerChecker {
	return &PollerChecker{inBackoff: inBackoff}
}

// Name returns the checker name.
func (c *PollerChecker) Name() string {
	return "poller"
}

// Check fails while the poller is backing off from source failures.
func (c *PollerChecker) Check(ctx context.Context) error {
	if c.inBackoff == nil {
		return fmt.Errorf("poller not running")
	}
	if c.inBackoff() {
		return fmt.Errorf("poller in backoff")
	}
	return nil
}
