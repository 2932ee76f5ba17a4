// Package notifier provides notification dispatching for alerts.
package notifier

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/plantops/plantsentry/internal/metrics"
	"github.com/plantops/plantsentry/internal/models"
)

// Transport is an SMS-like message channel.
type Transport interface {
	// Name returns the transport name (e.g., "sms").
	Name() string
	// Send delivers one message and returns the provider message id.
	Send(ctx context.Context, to, text string) (messageID string, err error)
	// Close releases any resources.
	Close() error
}

// SubscriberSource yields the current notification targets.
type SubscriberSource interface {
	List() []string
}

// Outcome is the result of one per-subscriber send attempt.
type Outcome struct {
	Subscriber string `json:"subscriber"`
	MessageID  string `json:"message_id,omitempty"`
	Err        error  `json:"-"`
}

// DispatcherStats tracks dispatch counters using atomics for lock-free
// reads from the stats endpoint.
type DispatcherStats struct {
	Dispatched atomic.Int64
	Sent       atomic.Int64
	Failed     atomic.Int64
	Throttled  atomic.Int64
}

// Dispatcher formats alerts and fans them out to every subscriber.
// Each send is isolated: a transport failure for one subscriber does not
// stop sends to the rest, and there are no retries.
type Dispatcher struct {
	transport   Transport
	shortener   Shortener
	subscribers SubscriberSource
	limiter     *rate.Limiter
	logger      *zap.Logger

	// actionLinkBase builds a full action URL for alerts whose source
	// did not provide one.
	actionLinkBase string

	stats DispatcherStats
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// ActionLinkBase is prepended to the alert id when the source sends
	// no action link.
	ActionLinkBase string
	// MaxPerMinute caps outbound sends across all subscribers.
	// Zero disables the cap.
	MaxPerMinute int
}

// NewDispatcher creates a dispatcher over the given collaborators.
func NewDispatcher(transport Transport, shortener Shortener, subscribers SubscriberSource, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	var limiter *rate.Limiter
	if cfg.MaxPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxPerMinute)), cfg.MaxPerMinute)
	}

	return &Dispatcher{
		transport:      transport,
		shortener:      shortener,
		subscribers:    subscribers,
		limiter:        limiter,
		logger:         logger,
		actionLinkBase: cfg.ActionLinkBase,
	}
}

// Dispatch sends a formatted notification for the alert to every current
// subscriber and returns the per-subscriber outcomes. A shortener failure
// substitutes the placeholder link and never blocks dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) []Outcome {
	d.stats.Dispatched.Add(1)

	link := d.resolveLink(ctx, alert)
	text := FormatMessage(alert, link)

	targets := d.subscribers.List()
	outcomes := make([]Outcome, 0, len(targets))

	for _, to := range targets {
		outcome := Outcome{Subscriber: to}

		if d.limiter != nil && !d.limiter.Allow() {
			outcome.Err = ErrThrottled
			d.stats.Throttled.Add(1)
			metrics.NotificationsFailed.WithLabelValues("throttled").Inc()
			outcomes = append(outcomes, outcome)
			continue
		}

		id, err := d.transport.Send(ctx, to, text)
		if err != nil {
			outcome.Err = err
			d.stats.Failed.Add(1)
			metrics.NotificationsFailed.WithLabelValues("transport").Inc()
			d.logger.Warn("notification send failed",
				zap.String("subscriber", to),
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
		} else {
			outcome.MessageID = id
			d.stats.Sent.Add(1)
			metrics.NotificationsSent.Inc()
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// Notify sends a free-form message to one target, subject to the same
// rate cap. Used for best-effort confirmation notifications.
func (d *Dispatcher) Notify(ctx context.Context, to, text string) error {
	if d.limiter != nil && !d.limiter.Allow() {
		d.stats.Throttled.Add(1)
		metrics.NotificationsFailed.WithLabelValues("throttled").Inc()
		return ErrThrottled
	}

	if _, err := d.transport.Send(ctx, to, text); err != nil {
		d.stats.Failed.Add(1)
		metrics.NotificationsFailed.WithLabelValues("transport").Inc()
		return err
	}
	d.stats.Sent.Add(1)
	metrics.NotificationsSent.Inc()
	return nil
}

// resolveLink shortens the alert's action link, falling back to the
// placeholder on any shortener failure.
func (d *Dispatcher) resolveLink(ctx context.Context, alert *models.Alert) string {
	full := alert.ActionLink
	if full == "" && d.actionLinkBase != "" {
		full = d.actionLinkBase + "/" + alert.ID
	}
	if full == "" || d.shortener == nil {
		return LinkPlaceholder
	}

	short, err := d.shortener.Shorten(ctx, full)
	if err != nil {
		d.logger.Warn("link shortening failed, using placeholder",
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
		return LinkPlaceholder
	}
	return short
}

// StatsSnapshot is a point-in-time copy of dispatcher counters.
type StatsSnapshot struct {
	Dispatched int64 `json:"dispatched"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Throttled  int64 `json:"throttled"`
}

// Stats returns a snapshot of dispatcher counters.
func (d *Dispatcher) Stats() StatsSnapshot {
	return StatsSnapshot{
		Dispatched: d.stats.Dispatched.Load(),
		Sent:       d.stats.Sent.Load(),
		Failed:     d.stats.Failed.Load(),
		Throttled:  d.stats.Throttled.Load(),
	}
}

// Close closes the underlying transport.
func (d *Dispatcher) Close() error {
	return d.transport.Close()
}
