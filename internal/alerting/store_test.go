package alerting

import (
	"testing"
	"time"

	"github.com/plantops/plantsentry/internal/models"
)

func testAlert(equipment, sensorType string, value float64, ts time.Time) *models.Alert {
	return &models.Alert{
		ID:         models.AlertID(equipment, sensorType, ts),
		Equipment:  equipment,
		SensorType: sensorType,
		Value:      value,
		Threshold:  65.0,
		Severity:   models.SeverityError,
		Timestamp:  ts,
	}
}

func TestAddAlertAssignsSequenceAndHashKey(t *testing.T) {
	store := NewIdentityStore()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	a := testAlert("press_001", "temperature", 72.0, t0)
	if !store.AddAlert(a) {
		t.Fatal("AddAlert returned false for new alert")
	}

	if a.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", a.Sequence)
	}
	want := models.HashKey("press_001", "temperature", models.SeverityError)
	if a.HashKey != want {
		t.Errorf("hash key = %q, want %q", a.HashKey, want)
	}
	if a.Status != models.AlertStatusUnprocessed {
		t.Errorf("status = %q, want unprocessed", a.Status)
	}

	b := testAlert("press_001", "pressure", 3.2, t0)
	store.AddAlert(b)
	if b.Sequence != 2 {
		t.Errorf("second sequence = %d, want 2", b.Sequence)
	}
}

func TestAddAlertRejectsDuplicateID(t *testing.T) {
	store := NewIdentityStore()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	if !store.AddAlert(testAlert("press_001", "temperature", 72.0, t0)) {
		t.Fatal("first AddAlert returned false")
	}
	if store.AddAlert(testAlert("press_001", "temperature", 73.0, t0)) {
		t.Error("AddAlert returned true for duplicate id")
	}

	stats := store.Stats()
	if stats.Alerts != 1 || stats.Sequence != 1 {
		t.Errorf("stats = %+v, want 1 alert, sequence 1", stats)
	}
}

func TestHistoryUpsert(t *testing.T) {
	store := NewIdentityStore()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	store.AddAlert(testAlert("press_001", "temperature", 72.0, t0))
	store.AddAlert(testAlert("press_001", "temperature", 74.5, t0.Add(30*time.Second)))
	store.AddAlert(testAlert("press_001", "temperature", 71.2, t0.Add(70*time.Second)))

	key := models.HashKey("press_001", "temperature", models.SeverityError)
	h, ok := store.History(key)
	if !ok {
		t.Fatal("history not found")
	}

	if h.Count != 3 {
		t.Errorf("count = %d, want 3", h.Count)
	}
	if !h.FirstOccurrence.Equal(t0) {
		t.Errorf("first occurrence = %v, want %v", h.FirstOccurrence, t0)
	}
	if !h.LastOccurrence.Equal(t0.Add(70 * time.Second)) {
		t.Errorf("last occurrence = %v", h.LastOccurrence)
	}
	wantValues := []float64{72.0, 74.5, 71.2}
	if len(h.Values) != len(wantValues) {
		t.Fatalf("values = %v, want %v", h.Values, wantValues)
	}
	for i, v := range wantValues {
		if h.Values[i] != v {
			t.Errorf("values[%d] = %v, want %v", i, h.Values[i], v)
		}
	}
	if !h.Active {
		t.Error("history not active")
	}
}

func TestSetStatus(t *testing.T) {
	store := NewIdentityStore()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	a := testAlert("press_001", "temperature", 72.0, t0)
	store.AddAlert(a)

	if !store.SetStatus(a.ID, models.AlertStatusProcessed, "010-1234-5678") {
		t.Fatal("SetStatus returned false")
	}

	got, ok := store.Get(a.ID)
	if !ok {
		t.Fatal("alert not found")
	}
	if got.Status != models.AlertStatusProcessed {
		t.Errorf("status = %q, want processed", got.Status)
	}
	if got.Assignee != "010-1234-5678" {
		t.Errorf("assignee = %q", got.Assignee)
	}

	if store.SetStatus("missing", models.AlertStatusProcessed, "") {
		t.Error("SetStatus returned true for unknown id")
	}
}

func TestLatestForEquipmentPrefersUnprocessed(t *testing.T) {
	store := NewIdentityStore()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	old := testAlert("press_001", "temperature", 72.0, t0)
	store.AddAlert(old)
	newer := testAlert("press_001", "pressure", 3.2, t0.Add(time.Minute))
	store.AddAlert(newer)

	// Most recent wins when both are unprocessed.
	got, ok := store.LatestForEquipment("press_001")
	if !ok || got.ID != newer.ID {
		t.Fatalf("latest = %q, want %q", got.ID, newer.ID)
	}

	// A pending alert beats a newer processed one.
	store.SetStatus(newer.ID, models.AlertStatusProcessed, "")
	got, ok = store.LatestForEquipment("press_001")
	if !ok || got.ID != old.ID {
		t.Errorf("latest = %q, want pending %q", got.ID, old.ID)
	}

	if _, ok := store.LatestForEquipment("press_999"); ok {
		t.Error("found alert for unknown equipment")
	}
}
