// Package actions records operator resolution actions and drives the
// equipment state machine.
package actions

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plantops/plantsentry/internal/alerting"
	"github.com/plantops/plantsentry/internal/metrics"
	"github.com/plantops/plantsentry/internal/models"
)

// nominalEfficiency is the efficiency restored when equipment is rearmed.
const nominalEfficiency = 100.0

// Tracker appends action records and maintains per-equipment state.
//
// Equipment status transitions: {normal, warning, error} move freely under
// sensor-driven evaluation; stopped is entered only by an interlock action
// and left only by an explicit rearm.
type Tracker struct {
	mu        sync.RWMutex
	records   []models.ActionRecord
	equipment map[string]*models.EquipmentState

	store  *alerting.IdentityStore
	logger *zap.Logger
}

// NewTracker creates a tracker over the given identity store.
func NewTracker(store *alerting.IdentityStore, logger *zap.Logger) *Tracker {
	return &Tracker{
		equipment: make(map[string]*models.EquipmentState),
		store:     store,
		logger:    logger,
	}
}

// RecordAction appends an action record for the identified alert and
// applies its side effects: interlock stops the equipment, bypass only
// updates the alert, rearm returns interlocked equipment to normal.
// newStatus becomes the alert's status in every case.
func (t *Tracker) RecordAction(alertID string, actionType models.ActionType, assignee string, newStatus models.AlertStatus) (models.ActionRecord, error) {
	alert, ok := t.store.Get(alertID)
	if !ok {
		return models.ActionRecord{}, fmt.Errorf("unknown alert %q", alertID)
	}

	record := models.ActionRecord{
		ID:           uuid.NewString(),
		AlertID:      alert.ID,
		Equipment:    alert.Equipment,
		SensorType:   alert.SensorType,
		ActionType:   actionType,
		ActionTime:   time.Now(),
		Assignee:     assignee,
		Value:        alert.Value,
		Threshold:    alert.Threshold,
		Severity:     alert.Severity,
		ResultStatus: newStatus,
	}

	t.mu.Lock()
	t.records = append(t.records, record)

	switch actionType {
	case models.ActionInterlock:
		t.setEquipmentLocked(alert.Equipment, models.EquipmentStopped, 0.0)
	case models.ActionRearm:
		if state, ok := t.equipment[alert.Equipment]; ok && state.Status == models.EquipmentStopped {
			t.setEquipmentLocked(alert.Equipment, models.EquipmentNormal, nominalEfficiency)
		}
	case models.ActionBypass:
		// Equipment state untouched.
	}
	t.mu.Unlock()

	t.store.SetStatus(alert.ID, newStatus, assignee)
	metrics.ActionsRecorded.WithLabelValues(string(actionType)).Inc()

	t.logger.Info("action recorded",
		zap.String("action_id", record.ID),
		zap.String("alert_id", alert.ID),
		zap.String("equipment", alert.Equipment),
		zap.String("type", string(actionType)),
		zap.String("assignee", assignee),
	)

	return record, nil
}

// UpdateEquipment applies a sensor-driven state evaluation. It refuses to
// overwrite the stopped state: once interlocked, only a rearm action can
// change the equipment's status. Returns false when the update was
// refused.
func (t *Tracker) UpdateEquipment(equipment string, status models.EquipmentStatus, efficiency float64) bool {
	if status == models.EquipmentStopped {
		// Stopped is reserved for the interlock path.
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if state, ok := t.equipment[equipment]; ok && state.Status == models.EquipmentStopped {
		return false
	}
	t.setEquipmentLocked(equipment, status, efficiency)
	return true
}

// setEquipmentLocked upserts an equipment state. Must be called with the
// mutex held.
func (t *Tracker) setEquipmentLocked(equipment string, status models.EquipmentStatus, efficiency float64) {
	state, ok := t.equipment[equipment]
	if !ok {
		state = &models.EquipmentState{Equipment: equipment}
		t.equipment[equipment] = state
	}
	state.Status = status
	state.Efficiency = efficiency
}

// EquipmentState returns the current state for a piece of equipment.
func (t *Tracker) EquipmentState(equipment string) (models.EquipmentState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.equipment[equipment]
	if !ok {
		return models.EquipmentState{}, false
	}
	return *state, true
}

// EquipmentStates returns copies of all equipment states, ordered by id.
func (t *Tracker) EquipmentStates() []models.EquipmentState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.EquipmentState, 0, len(t.equipment))
	for _, s := range t.equipment {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Equipment < out[j].Equipment })
	return out
}

// Records returns a copy of the action history in append order.
func (t *Tracker) Records() []models.ActionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ActionRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Count returns the number of recorded actions.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
