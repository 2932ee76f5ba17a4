package models

import (
	"testing"
	"time"
)

func TestHashKeyStable(t *testing.T) {
	a := HashKey("press_001", "temperature", SeverityError)
	b := HashKey("press_001", "temperature", SeverityError)
	if a != b {
		t.Errorf("hash key not stable: %q != %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("hash key length = %d, want 16", len(a))
	}
}

func TestHashKeyDistinguishesFields(t *testing.T) {
	base := HashKey("press_001", "temperature", SeverityError)

	tests := []struct {
		name       string
		equipment  string
		sensorType string
		severity   Severity
	}{
		{"different equipment", "press_002", "temperature", SeverityError},
		{"different sensor", "press_001", "pressure", SeverityError},
		{"different severity", "press_001", "temperature", SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashKey(tt.equipment, tt.sensorType, tt.severity)
			if got == base {
				t.Errorf("hash key collision with base identity")
			}
		})
	}
}

func TestAlertID(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id := AlertID("press_001", "temperature", ts)
	want := "press_001:temperature:1773480413"
	if id != want {
		t.Errorf("AlertID = %q, want %q", id, want)
	}

	// Same inputs, same id.
	if AlertID("press_001", "temperature", ts) != id {
		t.Error("AlertID not deterministic")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"error", SeverityError},
		{"ERROR", SeverityError},
		{"warning", SeverityWarning},
		{"info", SeverityInfo},
		{"bogus", SeverityInfo},
	}

	for _, tt := range tests {
		if got := ParseSeverity(tt.in); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseActionType(t *testing.T) {
	tests := []struct {
		in     string
		want   ActionType
		wantOK bool
	}{
		{"interlock", ActionInterlock, true},
		{"bypass", ActionBypass, true},
		{"rearm", ActionRearm, true},
		{"shutdown", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseActionType(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseActionType(%q) = (%q, %v), want (%q, %v)",
				tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
