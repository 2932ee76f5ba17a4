package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/plantsentry/internal/metrics"
	"github.com/plantops/plantsentry/internal/models"
)

// Source is the external alert feed the poller pulls from.
type Source interface {
	// Fetch returns a bounded window of recent alerts. Individual
	// malformed alerts are skipped; a connection or protocol failure is
	// reported as ErrSourceUnavailable.
	Fetch(ctx context.Context, limit int) ([]models.Alert, error)
}

// sourceAlertPayload is the wire shape of one alert from the source.
// Numeric fields are pointers so absent and zero can be told apart at
// the boundary.
type sourceAlertPayload struct {
	Equipment  string    `json:"equipment"`
	SensorType string    `json:"sensor_type"`
	Value      *float64  `json:"value"`
	Threshold  *float64  `json:"threshold"`
	Severity   string    `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message,omitempty"`
	ActionLink string    `json:"action_link,omitempty"`
}

// validate checks the payload and converts it to a domain alert.
func (p *sourceAlertPayload) validate() (models.Alert, error) {
	if p.Equipment == "" {
		return models.Alert{}, fmt.Errorf("%w: missing equipment", ErrParse)
	}
	if p.SensorType == "" {
		return models.Alert{}, fmt.Errorf("%w: missing sensor_type", ErrParse)
	}
	if p.Value == nil {
		return models.Alert{}, fmt.Errorf("%w: missing value", ErrParse)
	}
	if p.Threshold == nil {
		return models.Alert{}, fmt.Errorf("%w: missing threshold", ErrParse)
	}
	severity := models.Severity(p.Severity)
	if !severity.Valid() {
		return models.Alert{}, fmt.Errorf("%w: invalid severity %q", ErrParse, p.Severity)
	}
	if p.Timestamp.IsZero() {
		return models.Alert{}, fmt.Errorf("%w: missing timestamp", ErrParse)
	}

	return models.Alert{
		ID:         models.AlertID(p.Equipment, p.SensorType, p.Timestamp),
		Equipment:  p.Equipment,
		SensorType: p.SensorType,
		Value:      *p.Value,
		Threshold:  *p.Threshold,
		Severity:   severity,
		Timestamp:  p.Timestamp,
		Message:    p.Message,
		Status:     models.AlertStatusUnprocessed,
		ActionLink: p.ActionLink,
	}, nil
}

// HTTPSource polls an HTTP alert feed (`GET /alerts?limit=N`).
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSource creates a source client for the given base URL.
func NewHTTPSource(baseURL string, timeout time.Duration, logger *zap.Logger) (*HTTPSource, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Fetch retrieves up to limit recent alerts from the feed.
func (s *HTTPSource) Fetch(ctx context.Context, limit int) ([]models.Alert, error) {
	u := fmt.Sprintf("%s/alerts?limit=%d", s.baseURL, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrSourceUnavailable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var payloads []sourceAlertPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}

	alerts := make([]models.Alert, 0, len(payloads))
	for i := range payloads {
		alert, err := payloads[i].validate()
		if err != nil {
			// Skip only the malformed alert, keep the batch.
			metrics.AlertsDiscarded.WithLabelValues("invalid").Inc()
			s.logger.Warn("skipping malformed alert", zap.Int("index", i), zap.Error(err))
			continue
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// Ping checks source reachability for readiness probes.
func (s *HTTPSource) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/alerts?limit=1", nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
