package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/plantsentry/internal/actions"
	"github.com/plantops/plantsentry/internal/alerting"
	"github.com/plantops/plantsentry/internal/models"
	"github.com/plantops/plantsentry/internal/notifier"
	"github.com/plantops/plantsentry/internal/poller"
	"github.com/plantops/plantsentry/internal/registry"
)

type mockNotifier struct {
	sent []string
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, to, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+": "+text)
	return nil
}

func (m *mockNotifier) Stats() notifier.StatsSnapshot {
	return notifier.StatsSnapshot{Sent: int64(len(m.sent))}
}

type staticPollerStats struct {
	stats poller.Stats
}

func (s *staticPollerStats) Stats() poller.Stats { return s.stats }

type testEnv struct {
	server   *httptest.Server
	api      *Server
	registry *registry.Registry
	store    *alerting.IdentityStore
	tracker  *actions.Tracker
	notifier *mockNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg, err := registry.New(filepath.Join(t.TempDir(), "subscribers.txt"), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	store := alerting.NewIdentityStore()
	tracker := actions.NewTracker(store, zap.NewNop())
	mock := &mockNotifier{}

	srv, err := New(&Config{}, Deps{
		Registry: reg,
		Store:    store,
		Tracker:  tracker,
		Notifier: mock,
		Poller:   &staticPollerStats{stats: poller.Stats{Cycles: 3}},
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, api: srv, registry: reg, store: store, tracker: tracker, notifier: mock}
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := http.Post(e.server.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var envelope Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, envelope
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, Response) {
	t.Helper()

	resp, err := http.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var envelope Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, envelope
}

func seedAlert(t *testing.T, store *alerting.IdentityStore, equipment string) models.Alert {
	t.Helper()

	ts := time.Now()
	alert := &models.Alert{
		ID:         models.AlertID(equipment, "temperature", ts),
		Equipment:  equipment,
		SensorType: "temperature",
		Value:      72.0,
		Threshold:  65.0,
		Severity:   models.SeverityError,
		Timestamp:  ts,
	}
	if !store.AddAlert(alert) {
		t.Fatalf("seed alert rejected")
	}
	return *alert
}

func TestSubscribeLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.post(t, "/subscribe/010-1234-5678", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if envelope.Error != nil {
		t.Fatalf("unexpected error: %+v", envelope.Error)
	}
	if !env.registry.Contains("01012345678") {
		t.Error("registry missing normalized number")
	}

	// Subscribing again is a no-op, not a conflict.
	resp, _ = env.post(t, "/subscribe/01012345678", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("repeat subscribe status = %d, want 200", resp.StatusCode)
	}

	resp, _ = env.post(t, "/unsubscribe/010-1234-5678", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unsubscribe status = %d, want 200", resp.StatusCode)
	}
	if env.registry.Contains("01012345678") {
		t.Error("number still subscribed after unsubscribe")
	}

	// Unknown number is a no-op too.
	resp, _ = env.post(t, "/unsubscribe/0999999999", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("no-op unsubscribe status = %d, want 200", resp.StatusCode)
	}

	// Confirmations only for the subscribe and the real unsubscribe.
	if len(env.notifier.sent) != 2 {
		t.Errorf("confirmations = %d, want 2", len(env.notifier.sent))
	}
}

func TestSubscribeRejectsInvalidPhone(t *testing.T) {
	env := newTestEnv(t)

	for _, phone := range []string{"abc", "12", "12345678901234567890123"} {
		resp, envelope := env.post(t, "/subscribe/"+phone, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("subscribe %q status = %d, want 400", phone, resp.StatusCode)
		}
		if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
			t.Errorf("subscribe %q error = %+v", phone, envelope.Error)
		}
	}
	if env.registry.Count() != 0 {
		t.Errorf("registry count = %d, want 0", env.registry.Count())
	}
}

func TestListSubscribers(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/subscribe/01099990000", nil)
	env.post(t, "/subscribe/01011110000", nil)

	resp, envelope := env.get(t, "/subscribers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	data := envelope.Data.(map[string]any)
	if got := data["count"].(float64); got != 2 {
		t.Errorf("count = %v, want 2", got)
	}
}

func TestActionCallbackInterlock(t *testing.T) {
	env := newTestEnv(t)
	alert := seedAlert(t, env.store, "press_001")

	resp, envelope := env.post(t, "/action_callback", map[string]any{
		"equipment":         "press_001",
		"action_type":       "interlock",
		"phone":             "010-1234-5678",
		"send_confirmation": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, envelope.Error)
	}

	data := envelope.Data.(map[string]any)
	if data["alert_id"] != alert.ID {
		t.Errorf("alert_id = %v, want %s", data["alert_id"], alert.ID)
	}
	if data["confirmed"] != true {
		t.Errorf("confirmed = %v, want true", data["confirmed"])
	}

	state, ok := env.tracker.EquipmentState("press_001")
	if !ok || state.Status != models.EquipmentStopped || state.Efficiency != 0.0 {
		t.Errorf("equipment state = %+v, want stopped at 0.0", state)
	}

	stored, _ := env.store.Get(alert.ID)
	if stored.Status != models.AlertStatusProcessed || stored.Assignee != "01012345678" {
		t.Errorf("alert = status %s assignee %s", stored.Status, stored.Assignee)
	}

	if len(env.notifier.sent) != 1 {
		t.Fatalf("confirmations = %d, want 1", len(env.notifier.sent))
	}
}

func TestActionCallbackValidation(t *testing.T) {
	env := newTestEnv(t)
	seedAlert(t, env.store, "press_001")

	cases := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing equipment",
			body:       map[string]any{"action_type": "bypass"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidationFailed,
		},
		{
			name:       "unknown action type",
			body:       map[string]any{"equipment": "press_001", "action_type": "explode"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidationFailed,
		},
		{
			name:       "no alert for equipment",
			body:       map[string]any{"equipment": "pump_404", "action_type": "bypass"},
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, envelope := env.post(t, "/action_callback", tc.body)
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if envelope.Error == nil || envelope.Error.Code != tc.wantCode {
				t.Errorf("error = %+v, want code %s", envelope.Error, tc.wantCode)
			}
		})
	}
}

func TestActionCallbackBypassLeavesEquipment(t *testing.T) {
	env := newTestEnv(t)
	seedAlert(t, env.store, "press_001")

	resp, _ := env.post(t, "/action_callback", map[string]any{
		"equipment":   "press_001",
		"action_type": "bypass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if _, ok := env.tracker.EquipmentState("press_001"); ok {
		t.Error("bypass should not touch equipment state")
	}
	if env.tracker.Count() != 1 {
		t.Errorf("action records = %d, want 1", env.tracker.Count())
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/subscribe/01012345678", nil)
	seedAlert(t, env.store, "press_001")

	resp, envelope := env.get(t, "/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	data := envelope.Data.(map[string]any)
	if got := data["subscribers"].(float64); got != 1 {
		t.Errorf("subscribers = %v, want 1", got)
	}
	store := data["store"].(map[string]any)
	if got := store["alerts"].(float64); got != 1 {
		t.Errorf("store.alerts = %v, want 1", got)
	}
	pollerStats := data["poller"].(map[string]any)
	if got := pollerStats["cycles"].(float64); got != 3 {
		t.Errorf("poller.cycles = %v, want 3", got)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	env.api.RegisterHealthChecker(failingChecker{})

	resp, err = http.Get(env.server.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/readyz status = %d, want 503", resp.StatusCode)
	}
}

type failingChecker struct{}

func (failingChecker) Name() string                    { return "broken" }
func (failingChecker) Check(ctx context.Context) error { return fmt.Errorf("down") }
