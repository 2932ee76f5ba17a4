package alerting

import (
	"math"
	"sync"
	"time"

	"github.com/plantops/plantsentry/internal/models"
)

// Gate decides whether a notification may be sent for an alert identity.
// A notification is permitted when any of the following holds:
//
//   - no prior notification exists for the hash key
//   - the severity's cooldown window has elapsed since the last one
//   - the value moved by more than the relative change threshold since
//     the last one
//
// On permit, the gate records the notification time and value against the
// identity's history.
type Gate struct {
	mu     sync.RWMutex
	policy *Policy
	store  *IdentityStore
}

// NewGate creates a gate over the given store. A nil policy selects the
// built-in defaults.
func NewGate(store *IdentityStore, policy *Policy) *Gate {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Gate{policy: policy, store: store}
}

// SetPolicy atomically replaces the gate policy. Used by the hot-reload
// watcher; in-flight decisions finish under the old policy.
func (g *Gate) SetPolicy(policy *Policy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policy = policy
}

// Policy returns the current policy.
func (g *Gate) Policy() *Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy
}

// Allow reports whether a notification may be sent now for the identity.
func (g *Gate) Allow(hashKey string, severity models.Severity, value float64) bool {
	return g.AllowAt(hashKey, severity, value, time.Now())
}

// AllowAt is Allow with an explicit clock (useful for testing).
func (g *Gate) AllowAt(hashKey string, severity models.Severity, value float64, now time.Time) bool {
	g.mu.RLock()
	policy := g.policy
	g.mu.RUnlock()

	lastAt, lastValue, ok := g.store.lastNotification(hashKey)
	if ok {
		withinWindow := now.Sub(lastAt) <= policy.Window(severity)
		if withinWindow && !exceedsRelativeChange(lastValue, value, policy.ValueChangeThreshold) {
			return false
		}
	}

	g.store.recordNotification(hashKey, now, value)
	return true
}

// exceedsRelativeChange reports whether current differs from previous by
// more than the given relative threshold. A previous value of zero is
// treated as exceeded for any non-zero current value, since the relative
// change is unbounded.
func exceedsRelativeChange(previous, current, threshold float64) bool {
	if previous == 0 {
		return current != 0
	}
	change := math.Abs(current-previous) / math.Abs(previous)
	return change > threshold
}
