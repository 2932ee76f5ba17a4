package api

import (
	"encoding/json"
	"net/http"
)

// Response is a standard API response wrapper.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{Data: data}
	json.NewEncoder(w).Encode(resp)
}

// JSONError writes a JSON error response.
func JSONError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)

	resp := Response{Error: err}
	json.NewEncoder(w).Encode(resp)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// SubscriptionResponse is returned by subscribe and unsubscribe calls.
type SubscriptionResponse struct {
	Phone   string `json:"phone"`
	Changed bool   `json:"changed"`
	Total   int    `json:"total"`
}

// ActionResponse is returned after an operator action is recorded.
type ActionResponse struct {
	ActionID   string `json:"action_id"`
	AlertID    string `json:"alert_id"`
	Equipment  string `json:"equipment"`
	ActionType string `json:"action_type"`
	Confirmed  bool   `json:"confirmed,omitempty"`
}
