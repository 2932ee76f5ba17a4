package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/plantops/plantsentry/internal/alerting"
	"github.com/plantops/plantsentry/internal/models"
	"github.com/plantops/plantsentry/internal/notifier"
	"github.com/plantops/plantsentry/internal/poller"
	"github.com/plantops/plantsentry/internal/registry"
)

// validPhone reports whether a normalized phone number looks routable:
// an optional leading plus followed by 5 to 20 digits.
func validPhone(phone string) bool {
	digits := phone
	if len(digits) > 0 && digits[0] == '+' {
		digits = digits[1:]
	}
	if len(digits) < 5 || len(digits) > 20 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	phone := registry.Normalize(chi.URLParam(r, "phone"))
	if !validPhone(phone) {
		JSONError(w, NewValidationError("invalid phone number"))
		return
	}

	added, err := s.registry.Subscribe(phone)
	if err != nil {
		s.logger.Error("subscribe failed", zap.String("phone", phone), zap.Error(err))
		JSONError(w, ErrInternalServer)
		return
	}

	if added {
		s.confirm(r, phone, "subscribed to plant alerts")
	}

	resp := SubscriptionResponse{Phone: phone, Changed: added, Total: s.registry.Count()}
	if added {
		Created(w, resp)
		return
	}
	OK(w, resp)
}

// confirm sends a best-effort notification. Failures are logged and never
// affect the response.
func (s *Server) confirm(r *http.Request, to, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(r.Context(), to, text); err != nil {
		s.logger.Warn("confirmation send failed", zap.String("to", to), zap.Error(err))
	}
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	phone := registry.Normalize(chi.URLParam(r, "phone"))
	if !validPhone(phone) {
		JSONError(w, NewValidationError("invalid phone number"))
		return
	}

	// Removing an unknown number is a no-op, not an error.
	found, err := s.registry.Unsubscribe(phone)
	if err != nil {
		s.logger.Error("unsubscribe failed", zap.String("phone", phone), zap.Error(err))
		JSONError(w, ErrInternalServer)
		return
	}

	if found {
		s.confirm(r, phone, "unsubscribed from plant alerts")
	}

	OK(w, SubscriptionResponse{Phone: phone, Changed: found, Total: s.registry.Count()})
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	subscribers := s.registry.List()
	OK(w, map[string]any{
		"subscribers": subscribers,
		"count":       len(subscribers),
	})
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]any{
		"histories": s.store.Histories(),
	})
}

// StatsResponse aggregates counters from every subsystem.
type StatsResponse struct {
	Poller        poller.Stats            `json:"poller"`
	Store         alerting.StoreStats     `json:"store"`
	Notifications notifier.StatsSnapshot  `json:"notifications"`
	Subscribers   int                     `json:"subscribers"`
	Actions       int                     `json:"actions"`
	Equipment     []models.EquipmentState `json:"equipment"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Store:       s.store.Stats(),
		Subscribers: s.registry.Count(),
		Actions:     s.tracker.Count(),
		Equipment:   s.tracker.EquipmentStates(),
	}
	if s.poller != nil {
		resp.Poller = s.poller.Stats()
	}
	if s.notifier != nil {
		resp.Notifications = s.notifier.Stats()
	}

	OK(w, resp)
}

// actionCallbackRequest is posted by the action link page when an
// operator acknowledges an alert.
type actionCallbackRequest struct {
	Equipment        string `json:"equipment"`
	ActionType       string `json:"action_type"`
	Phone            string `json:"phone,omitempty"`
	SendConfirmation bool   `json:"send_confirmation,omitempty"`
}

func (s *Server) handleActionCallback(w http.ResponseWriter, r *http.Request) {
	var req actionCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid JSON body"))
		return
	}

	if req.Equipment == "" {
		JSONError(w, NewValidationError("equipment is required"))
		return
	}
	actionType, ok := models.ParseActionType(req.ActionType)
	if !ok {
		JSONError(w, NewValidationError(fmt.Sprintf("unknown action type %q", req.ActionType)))
		return
	}

	// The callback page identifies equipment, not a specific alert id.
	alert, ok := s.store.LatestForEquipment(req.Equipment)
	if !ok {
		JSONError(w, NewNotFound(fmt.Sprintf("no alert for equipment %q", req.Equipment)))
		return
	}

	assignee := registry.Normalize(req.Phone)
	record, err := s.tracker.RecordAction(alert.ID, actionType, assignee, models.AlertStatusProcessed)
	if err != nil {
		s.logger.Error("record action failed",
			zap.String("alert_id", alert.ID),
			zap.String("type", string(actionType)),
			zap.Error(err),
		)
		JSONError(w, ErrInternalServer)
		return
	}

	resp := ActionResponse{
		ActionID:   record.ID,
		AlertID:    record.AlertID,
		Equipment:  record.Equipment,
		ActionType: string(record.ActionType),
	}

	if req.SendConfirmation && assignee != "" && s.notifier != nil {
		text := fmt.Sprintf("action %s recorded for %s (alert %s)",
			actionType, record.Equipment, record.AlertID)
		if err := s.notifier.Notify(r.Context(), assignee, text); err != nil {
			s.logger.Warn("confirmation send failed",
				zap.String("to", assignee), zap.Error(err))
		} else {
			resp.Confirmed = true
		}
	}

	OK(w, resp)
}
