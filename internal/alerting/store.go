// Package alerting provides alert identity tracking and notification
// gating for PlantSentry. It deduplicates alerts by unique id and by
// coarse identity hash, and decides when a repeat notification for the
// same identity is permitted.
package alerting

import (
	"sort"
	"sync"
	"time"

	"github.com/plantops/plantsentry/internal/models"
)

// IdentityStore tracks every ingested alert by unique id and maintains
// an occurrence history per hash key. All state is guarded by one mutex;
// the store is shared between the polling loop and request handlers.
type IdentityStore struct {
	mu       sync.RWMutex
	alerts   map[string]*models.Alert
	history  map[string]*models.AlertHistory
	sequence uint64
}

// NewIdentityStore creates an empty identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		alerts:  make(map[string]*models.Alert),
		history: make(map[string]*models.AlertHistory),
	}
}

// AddAlert registers an alert: assigns the next sequence number, derives
// the hash key, inserts into the identity map and upserts the occurrence
// history. Returns false only if the unique id is already present, in
// which case nothing is modified.
func (s *IdentityStore) AddAlert(alert *models.Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[alert.ID]; ok {
		return false
	}

	s.sequence++
	alert.Sequence = s.sequence
	alert.HashKey = models.HashKey(alert.Equipment, alert.SensorType, alert.Severity)
	if alert.Status == "" {
		alert.Status = models.AlertStatusUnprocessed
	}
	s.alerts[alert.ID] = alert

	h, ok := s.history[alert.HashKey]
	if !ok {
		h = &models.AlertHistory{
			HashKey:         alert.HashKey,
			Equipment:       alert.Equipment,
			SensorType:      alert.SensorType,
			Severity:        alert.Severity,
			FirstOccurrence: alert.Timestamp,
		}
		s.history[alert.HashKey] = h
	}
	h.Count++
	h.Values = append(h.Values, alert.Value)
	h.LastOccurrence = alert.Timestamp
	h.Active = true

	return true
}

// Get returns a copy of the alert with the given id.
func (s *IdentityStore) Get(id string) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, false
	}
	return *a, true
}

// History returns a copy of the occurrence history for a hash key.
func (s *IdentityStore) History(hashKey string) (models.AlertHistory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[hashKey]
	if !ok {
		return models.AlertHistory{}, false
	}
	cp := *h
	cp.Values = append([]float64(nil), h.Values...)
	return cp, true
}

// SetStatus updates an alert's status and, when non-empty, its assignee.
func (s *IdentityStore) SetStatus(id string, status models.AlertStatus, assignee string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return false
	}
	a.Status = status
	if assignee != "" {
		a.Assignee = assignee
	}
	return true
}

// LatestForEquipment returns the most recently ingested alert for a piece
// of equipment, preferring unprocessed alerts. Recency follows the
// ingestion sequence, not the source timestamp.
func (s *IdentityStore) LatestForEquipment(equipment string) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.Alert
	for _, a := range s.alerts {
		if a.Equipment != equipment {
			continue
		}
		if best == nil {
			best = a
			continue
		}
		bestPending := best.Status == models.AlertStatusUnprocessed
		pending := a.Status == models.AlertStatusUnprocessed
		if pending != bestPending {
			if pending {
				best = a
			}
			continue
		}
		if a.Sequence > best.Sequence {
			best = a
		}
	}
	if best == nil {
		return models.Alert{}, false
	}
	return *best, true
}

// lastNotification returns the time and value of the last permitted
// notification for an identity, or ok=false if none has been recorded.
func (s *IdentityStore) lastNotification(hashKey string) (t time.Time, value float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[hashKey]
	if !ok || h.LastNotifiedAt.IsZero() {
		return time.Time{}, 0, false
	}
	return h.LastNotifiedAt, h.LastNotifiedValue, true
}

// recordNotification stamps the history entry for hashKey with the time
// and value of a permitted notification. The entry is created if the
// identity has not been seen yet.
func (s *IdentityStore) recordNotification(hashKey string, t time.Time, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[hashKey]
	if !ok {
		h = &models.AlertHistory{HashKey: hashKey}
		s.history[hashKey] = h
	}
	h.LastNotifiedAt = t
	h.LastNotifiedValue = value
}

// Histories returns copies of all occurrence histories, ordered by hash key.
func (s *IdentityStore) Histories() []models.AlertHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AlertHistory, 0, len(s.history))
	for _, h := range s.history {
		cp := *h
		cp.Values = append([]float64(nil), h.Values...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HashKey < out[j].HashKey })
	return out
}

// StoreStats is a snapshot of store counters for reporting.
type StoreStats struct {
	Alerts     int    `json:"alerts"`
	Identities int    `json:"identities"`
	Sequence   uint64 `json:"sequence"`
}

// Stats returns a snapshot of store counters.
func (s *IdentityStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreStats{
		Alerts:     len(s.alerts),
		Identities: len(s.history),
		Sequence:   s.sequence,
	}
}
