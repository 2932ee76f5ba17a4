package models

import "time"

// AlertHistory tracks every occurrence of one alert identity (hash key).
// An entry is created on first occurrence and updated on each repeat;
// Count is monotonically non-decreasing.
type AlertHistory struct {
	HashKey         string    `json:"hash_key"`
	Equipment       string    `json:"equipment"`
	SensorType      string    `json:"sensor_type"`
	Severity        Severity  `json:"severity"`
	FirstOccurrence time.Time `json:"first_occurrence"`
	LastOccurrence  time.Time `json:"last_occurrence"`
	Count           int       `json:"count"`
	Values          []float64 `json:"values"`
	Active          bool      `json:"active"`
	// LastNotifiedAt is zero until a notification has been permitted
	// for this identity.
	LastNotifiedAt time.Time `json:"last_notified_at,omitempty"`
	// LastNotifiedValue is the reading at the last permitted notification.
	LastNotifiedValue float64 `json:"last_notified_value,omitempty"`
}
