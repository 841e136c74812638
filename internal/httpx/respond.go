// Package httpx holds the JSON envelope, error mapping and middleware shared
// by every resource handler.
//
// Success bodies are {success: true, ...payload}; failures are
// {error: string, details?: string}.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"jobmate/research-service/internal/apperr"
)

var debugErrors atomic.Bool

// SetDebugErrors toggles echoing raw internal error text in the details field.
func SetDebugErrors(on bool) { debugErrors.Store(on) }

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}

// OK writes a 200 success envelope merged with payload.
func OK(w http.ResponseWriter, payload map[string]any) {
	JSON(w, http.StatusOK, envelope(payload))
}

// Created writes a 201 success envelope merged with payload.
func Created(w http.ResponseWriter, payload map[string]any) {
	JSON(w, http.StatusCreated, envelope(payload))
}

// Accepted writes a 202 success envelope merged with payload.
func Accepted(w http.ResponseWriter, payload map[string]any) {
	JSON(w, http.StatusAccepted, envelope(payload))
}

func envelope(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["success"] = true
	return out
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, code int, msg, details string) {
	JSON(w, code, ErrorBody{Error: msg, Details: details})
}

// MethodNotAllowed writes the 405 envelope.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
}

// WriteError maps err onto the error taxonomy. Unknown errors are logged with
// full detail and returned as a generic internal error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		Error(w, http.StatusBadRequest, ve.Msg, ve.Details)
		return
	}

	code := 0
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, apperr.ErrUnavailable):
		code = http.StatusServiceUnavailable
	}
	if code != 0 {
		msg := apperr.Message(err)
		if msg == "" {
			msg = err.Error()
		}
		Error(w, code, msg, "")
		return
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	details := ""
	if debugErrors.Load() {
		details = err.Error()
	}
	Error(w, http.StatusInternalServerError, "Internal server error", details)
}
