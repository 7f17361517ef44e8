package handler

// RESPONSE HELPERS:
// Every handler writes through writeJSON, writeError or writeEnvelopeError,
// so headers, status and encoding are done one way.
//
// Two response shapes are in use:
//
//   - /register and /login wrap everything in an envelope:
//     {"success": true, "response": {...}} or {"success": false, "response": "message"}
//   - task routes and /me return the resource itself, and errors as
//     {"message": "..."}.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/tasklist/internal/apperror"
)

// MsgInternal is the only text a client sees for store failures.
const MsgInternal = "An internal error occurred"

// Envelope is the body of every /register and /login response.
type Envelope struct {
	Success  bool `json:"success"`
	Response any  `json:"response"`
}

// MessageResponse is the error body of task routes.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data as JSON with the given status. Headers must be set
// before the first body write, hence the order.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to an HTTP status. Anything that is not an
// *apperror.AppError is a 500.
//
// WHY HERE AND NOT IN THE SERVICE?
// Services return domain errors and know nothing about HTTP. Only this layer
// decides that a taken username is a 400 and a missing task is a 404.
func statusFor(err error) int {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is the text safe to show for err. Internal details of
// store failures are never sent.
func clientMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return MsgInternal
}

// writeError sends err as {"message": "..."}.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), MessageResponse{Message: clientMessage(err)})
}

// writeEnvelopeError sends err as {"success": false, "response": "..."}.
func writeEnvelopeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, Envelope{Success: false, Response: clientMessage(err)})
}
