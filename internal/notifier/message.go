package notifier

import (
	"fmt"
	"strings"

	"github.com/plantops/plantsentry/internal/models"
)

// LinkPlaceholder is substituted when no action link can be resolved.
const LinkPlaceholder = "(link unavailable)"

// sensorLabels maps known sensor types to their short message labels.
// Unknown types fall back to the first two characters, uppercased.
var sensorLabels = map[string]string{
	"temperature": "TE",
	"pressure":    "PR",
	"vibration":   "VB",
	"humidity":    "HM",
	"flow":        "FL",
	"current":     "CU",
}

// severityCode returns the two-letter code used in outbound messages.
func severityCode(s models.Severity) string {
	switch s {
	case models.SeverityError:
		return "HH"
	case models.SeverityWarning:
		return "H"
	default:
		return "L"
	}
}

// sensorLabel returns the short label for a sensor type.
func sensorLabel(sensorType string) string {
	if label, ok := sensorLabels[sensorType]; ok {
		return label
	}
	if len(sensorType) >= 2 {
		return strings.ToUpper(sensorType[:2])
	}
	return strings.ToUpper(sensorType)
}

// FormatMessage renders the fixed-structure notification text:
// timestamp, equipment with severity code, sensor label, the violating
// value against its threshold, and the action link.
//
//	14:03:22 press_001[HH] TE 72.0>65.0 https://sho.rt/abc
func FormatMessage(alert *models.Alert, link string) string {
	return fmt.Sprintf("%s %s[%s] %s %.1f>%.1f %s",
		alert.Timestamp.Format("15:04:05"),
		alert.Equipment,
		severityCode(alert.Severity),
		sensorLabel(alert.SensorType),
		alert.Value,
		alert.Threshold,
		link,
	)
}
