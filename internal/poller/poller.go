// Package poller runs the control loop that pulls alerts from the
// external source, filters and deduplicates them, and hands qualifying
// alerts to the notification dispatcher.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/plantsentry/internal/alerting"
	"github.com/plantops/plantsentry/internal/metrics"
	"github.com/plantops/plantsentry/internal/models"
	"github.com/plantops/plantsentry/internal/notifier"
)

// State is the scheduler state of the polling loop.
type State string

const (
	// StatePolling is the normal fixed-cadence state.
	StatePolling State = "polling"
	// StateBackoff is entered after a source fetch failure.
	StateBackoff State = "backoff"
)

// Dispatcher sends the notification fan-out for one alert.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert) []notifier.Outcome
}

// Config configures the polling loop.
type Config struct {
	// Interval is the normal polling cadence (default: 1s).
	Interval time.Duration
	// BackoffInterval is the retry cadence after a source failure
	// (default: 10s).
	BackoffInterval time.Duration
	// FetchLimit bounds the window of recent alerts per fetch
	// (default: 20).
	FetchLimit int
	// FreshnessWindow rejects alerts older than this relative to
	// wall-clock time (default: 5s).
	FreshnessWindow time.Duration
	// MaxSeen caps the processed-id set (default: 1000).
	MaxSeen int
	// TrimTo is the set size kept after an overflow truncation
	// (default: 500).
	TrimTo int
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.BackoffInterval <= 0 {
		c.BackoffInterval = 10 * time.Second
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 20
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = 5 * time.Second
	}
	if c.MaxSeen <= 0 {
		c.MaxSeen = 1000
	}
	if c.TrimTo <= 0 || c.TrimTo > c.MaxSeen {
		c.TrimTo = c.MaxSeen / 2
	}
}

// pollerStats tracks loop counters using atomics for lock-free snapshot
// reads.
type pollerStats struct {
	Cycles     atomic.Int64
	Fetched    atomic.Int64
	Ingested   atomic.Int64
	Suppressed atomic.Int64
	Dispatched atomic.Int64
	FetchFails atomic.Int64
}

// Poller is the single control loop of the service. Only alerts of
// severity "error" qualify for notification; this is a fixed policy, not
// configuration.
type Poller struct {
	cfg        Config
	source     Source
	store      *alerting.IdentityStore
	gate       *alerting.Gate
	dispatcher Dispatcher
	logger     *zap.Logger

	mu             sync.Mutex
	seen           map[string]struct{}
	seenOrder      []string
	started        time.Time
	state          State
	backoffAttempt int

	stats pollerStats
}

// New creates a poller. The config is defaulted in place.
func New(cfg Config, source Source, store *alerting.IdentityStore, gate *alerting.Gate, dispatcher Dispatcher, logger *zap.Logger) *Poller {
	cfg.SetDefaults()
	return &Poller{
		cfg:        cfg,
		source:     source,
		store:      store,
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger,
		seen:       make(map[string]struct{}),
		state:      StatePolling,
	}
}

// Run executes the loop until the context is canceled. Cancellation is
// cooperative: it is observed between cycles, never mid-call.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()

	p.logger.Info("poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Duration("backoff_interval", p.cfg.BackoffInterval),
	)

	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-timer.C:
			err := p.cycle(ctx, time.Now())
			if errors.Is(err, ErrSourceUnavailable) {
				p.enterBackoff(err)
				timer.Reset(p.cfg.BackoffInterval)
				continue
			}
			p.exitBackoff()
			timer.Reset(p.cfg.Interval)
		}
	}
}

// cycle runs one poll iteration at the given time.
func (p *Poller) cycle(ctx context.Context, now time.Time) error {
	p.stats.Cycles.Add(1)
	metrics.PollCyclesTotal.Inc()

	alerts, err := p.source.Fetch(ctx, p.cfg.FetchLimit)
	if err != nil {
		p.stats.FetchFails.Add(1)
		metrics.SourceFetchErrors.Inc()
		return err
	}

	p.stats.Fetched.Add(int64(len(alerts)))
	metrics.AlertsFetched.Add(float64(len(alerts)))

	for i := range alerts {
		if err := p.processAlert(ctx, &alerts[i], now); err != nil {
			// Per-alert errors skip only that alert.
			p.logger.Warn("alert processing failed",
				zap.String("alert_id", alerts[i].ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// processAlert applies identity, freshness and severity policy to one
// alert and dispatches it when the cooldown gate permits.
func (p *Poller) processAlert(ctx context.Context, alert *models.Alert, now time.Time) error {
	if !p.markSeen(alert.ID) {
		metrics.AlertsDiscarded.WithLabelValues("seen").Inc()
		return nil
	}

	// Freshness: only alerts from after loop start and within the
	// recency window are eligible. Older ones are replay noise from the
	// source's bounded window and are dropped silently.
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if alert.Timestamp.Before(started) || now.Sub(alert.Timestamp) > p.cfg.FreshnessWindow {
		metrics.AlertsDiscarded.WithLabelValues("stale").Inc()
		return nil
	}

	if alert.Severity != models.SeverityError {
		metrics.AlertsDiscarded.WithLabelValues("severity").Inc()
		return nil
	}

	if !p.store.AddAlert(alert) {
		metrics.AlertsDiscarded.WithLabelValues("seen").Inc()
		return nil
	}
	p.stats.Ingested.Add(1)
	metrics.AlertsIngested.Inc()

	if !p.gate.AllowAt(alert.HashKey, alert.Severity, alert.Value, now) {
		p.stats.Suppressed.Add(1)
		metrics.AlertsSuppressed.Inc()
		return nil
	}

	p.dispatcher.Dispatch(ctx, alert)
	p.stats.Dispatched.Add(1)

	// Processed regardless of per-subscriber outcomes; no retry.
	p.store.SetStatus(alert.ID, models.AlertStatusProcessed, "")
	return nil
}

// markSeen records an alert id. Returns false if it was already present.
// On overflow past MaxSeen the set is truncated to the TrimTo most
// recently added ids.
func (p *Poller) markSeen(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.seen[id]; ok {
		return false
	}
	p.seen[id] = struct{}{}
	p.seenOrder = append(p.seenOrder, id)

	if len(p.seenOrder) > p.cfg.MaxSeen {
		keep := p.seenOrder[len(p.seenOrder)-p.cfg.TrimTo:]
		p.seenOrder = append([]string(nil), keep...)
		p.seen = make(map[string]struct{}, len(keep))
		for _, k := range keep {
			p.seen[k] = struct{}{}
		}
	}
	metrics.SeenSetSize.Set(float64(len(p.seenOrder)))
	return true
}

// enterBackoff transitions the loop into the backoff state.
func (p *Poller) enterBackoff(cause error) {
	p.mu.Lock()
	p.state = StateBackoff
	p.backoffAttempt++
	attempt := p.backoffAttempt
	p.mu.Unlock()

	metrics.InBackoff.Set(1)
	p.logger.Warn("source fetch failed, backing off",
		zap.Int("attempt", attempt),
		zap.Duration("retry_in", p.cfg.BackoffInterval),
		zap.Error(cause),
	)
}

// exitBackoff returns the loop to normal cadence.
func (p *Poller) exitBackoff() {
	p.mu.Lock()
	wasBackoff := p.state == StateBackoff
	p.state = StatePolling
	p.backoffAttempt = 0
	p.mu.Unlock()

	metrics.InBackoff.Set(0)
	if wasBackoff {
		p.logger.Info("source recovered, resuming normal cadence")
	}
}

// Stats is a snapshot of loop state and counters for reporting.
type Stats struct {
	State          State `json:"state"`
	BackoffAttempt int   `json:"backoff_attempt,omitempty"`
	SeenIDs        int   `json:"seen_ids"`
	Cycles         int64 `json:"cycles"`
	Fetched        int64 `json:"fetched"`
	Ingested       int64 `json:"ingested"`
	Suppressed     int64 `json:"suppressed"`
	Dispatched     int64 `json:"dispatched"`
	FetchFailures  int64 `json:"fetch_failures"`
}

// Stats returns a snapshot of the poller's state.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	state := p.state
	attempt := p.backoffAttempt
	seen := len(p.seenOrder)
	p.mu.Unlock()

	return Stats{
		State:          state,
		BackoffAttempt: attempt,
		SeenIDs:        seen,
		Cycles:         p.stats.Cycles.Load(),
		Fetched:        p.stats.Fetched.Load(),
		Ingested:       p.stats.Ingested.Load(),
		Suppressed:     p.stats.Suppressed.Load(),
		Dispatched:     p.stats.Dispatched.Load(),
		FetchFailures:  p.stats.FetchFails.Load(),
	}
}
