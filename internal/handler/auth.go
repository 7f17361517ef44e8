package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/service"
)

// Authenticator is the part of service.AuthService the handlers use.
type Authenticator interface {
	Register(ctx context.Context, username, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthHandler serves registration, login and the current-user lookup.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → decode body, create the account, return it with a token
//   - HandleLogin    → decode body, check credentials, return a fresh token
//   - HandleMe       → return the caller's profile (behind RequireAuth)
//
// DEPENDENCY CHAIN:
//   - auth Authenticator → service.AuthService in production, a mock in tests
//   - logger             → 5xx causes are logged here, never sent to the client
type AuthHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(a Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: a, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse is the success payload of POST /register.
type RegisterResponse struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	ID          string `json:"id"`
	AccessToken string `json:"accessToken"`
}

// LoginResponse is the success payload of POST /login.
type LoginResponse struct {
	Username    string `json:"username"`
	ID          string `json:"id"`
	AccessToken string `json:"accessToken"`
}

// HandleRegister creates an account.
//
// HTTP: POST /register
// BODY: {"username": "...", "email": "...", "password": "..."}
//
// 201 {"success": true, "response": {username, email, id, accessToken}}
// 400 {"success": false, "response": "<message>"} for missing fields or a taken username/email
// 500 {"success": false, "response": "<message>"} otherwise
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register JSON", slog.String("error", err.Error()))
		writeEnvelopeError(w, http.StatusBadRequest, apperror.ValidationFailed("", service.MsgMissingFields))
		return
	}

	res, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		status := http.StatusBadRequest
		if statusFor(err) != http.StatusBadRequest {
			status = http.StatusInternalServerError
			h.logger.Error("register failed", slog.String("error", err.Error()))
		}
		writeEnvelopeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusCreated, Envelope{
		Success: true,
		Response: RegisterResponse{
			Username:    res.User.Username,
			Email:       res.User.Email,
			ID:          res.User.ID,
			AccessToken: res.Token,
		},
	})
}

// HandleLogin checks credentials.
//
// HTTP: POST /login
// BODY: {"username": "...", "password": "..."}
//
// 200 {"success": true, "response": {username, id, accessToken}}
// 400 missing fields, 401 unknown user or wrong password, 500 otherwise.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid login JSON", slog.String("error", err.Error()))
		writeEnvelopeError(w, http.StatusBadRequest, apperror.ValidationFailed("", service.MsgMissingFields))
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		status := statusFor(err)
		switch {
		case errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case status == http.StatusInternalServerError:
			h.logger.Error("login failed", slog.String("error", err.Error()))
		}
		writeEnvelopeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Response: LoginResponse{
			Username:    res.User.Username,
			ID:          res.User.ID,
			AccessToken: res.Token,
		},
	})
}

// HandleMe returns the authenticated user's profile. The password digest
// is never serialized.
//
// HTTP: GET /me (requires auth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Missing auth token"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("me lookup failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
