package models

import "time"

// ActionType is the kind of operator resolution action.
type ActionType string

const (
	// ActionInterlock forcibly stops the equipment.
	ActionInterlock ActionType = "interlock"
	// ActionBypass resolves the alert without touching equipment state.
	ActionBypass ActionType = "bypass"
	// ActionRearm returns interlocked equipment to normal operation.
	// It is the only transition out of the stopped state.
	ActionRearm ActionType = "rearm"
)

// ParseActionType converts a string to ActionType.
// The second return value reports whether the input was recognized.
func ParseActionType(s string) (ActionType, bool) {
	switch s {
	case "interlock":
		return ActionInterlock, true
	case "bypass":
		return ActionBypass, true
	case "rearm":
		return ActionRearm, true
	default:
		return "", false
	}
}

// ActionRecord is an append-only record of an operator resolution action.
// Records are never mutated or deleted after creation.
type ActionRecord struct {
	ID         string     `json:"id"`
	AlertID    string     `json:"alert_id"`
	Equipment  string     `json:"equipment"`
	SensorType string     `json:"sensor_type"`
	ActionType ActionType `json:"action_type"`
	ActionTime time.Time  `json:"action_time"`
	Assignee   string     `json:"assignee,omitempty"`
	// Value, Threshold and Severity snapshot the alert at action time.
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
	Severity  Severity `json:"severity"`
	// ResultStatus is the alert status after the action.
	ResultStatus AlertStatus `json:"result_status"`
}
