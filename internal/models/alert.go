// Package models defines domain models for PlantSentry.
package models

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Severity represents alert severity level.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "info", "INFO":
		return SeverityInfo
	case "warning", "WARNING":
		return SeverityWarning
	case "error", "ERROR":
		return SeverityError
	default:
		return SeverityInfo
	}
}

// Valid reports whether the severity is one of the known levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// AlertStatus tracks whether an alert has been handled by the pipeline.
type AlertStatus string

const (
	AlertStatusUnprocessed AlertStatus = "unprocessed"
	AlertStatusProcessed   AlertStatus = "processed"
)

// Alert is a single threshold-violation event from a sensor reading.
// Alerts are created on ingestion and mutated only by the action tracker
// (status and assignee); they are never deleted, only superseded.
type Alert struct {
	// ID uniquely identifies the alert, derived from
	// (equipment, sensor type, timestamp).
	ID string `json:"id"`
	// Equipment is the equipment identifier (e.g., "press_001").
	Equipment string `json:"equipment"`
	// SensorType is the kind of sensor that fired (e.g., "temperature").
	SensorType string `json:"sensor_type"`
	// Value is the observed sensor reading.
	Value float64 `json:"value"`
	// Threshold is the limit the reading violated.
	Threshold float64 `json:"threshold"`
	// Severity is the alert severity.
	Severity Severity `json:"severity"`
	// Timestamp is when the reading was taken.
	Timestamp time.Time `json:"timestamp"`
	// Message is free-text detail from the source.
	Message string `json:"message,omitempty"`
	// Status is unprocessed until the pipeline has dispatched it.
	Status AlertStatus `json:"status"`
	// Assignee is the operator who resolved the alert, if any.
	Assignee string `json:"assignee,omitempty"`
	// HashKey is the deduplication identity, derived from
	// (equipment, sensor type, severity).
	HashKey string `json:"hash_key"`
	// Sequence is assigned monotonically on ingestion.
	Sequence uint64 `json:"sequence"`
	// ActionLink is the optional full resolution URL for this alert.
	ActionLink string `json:"action_link,omitempty"`
}

// AlertID derives the unique alert identifier from the fields that
// distinguish one occurrence from another.
func AlertID(equipment, sensorType string, ts time.Time) string {
	return fmt.Sprintf("%s:%s:%d", equipment, sensorType, ts.Unix())
}

// HashKey derives the deduplication identity for an alert. It is a pure
// function of (equipment, sensor type, severity) and therefore stable
// across restarts.
func HashKey(equipment, sensorType string, severity Severity) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", equipment, sensorType, severity)
	return fmt.Sprintf("%016x", h.Sum64())
}
