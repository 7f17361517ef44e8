// Package service holds the business rules between the HTTP handlers and
// the repositories:
//
//	Handler (HTTP) → Service (rules) → Repository (store)
//
// Services accept and return plain Go values and apperror errors. They know
// nothing about HTTP, so the same methods back the API and its tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
	"github.com/sakif/tasklist/internal/telemetry"
)

// Client-facing messages.
const (
	MsgMissingFields     = "Please add all fields"
	MsgUserNotFound      = "User not found"
	MsgIncorrectPassword = "Incorrect password"
)

// AuthService registers accounts, checks credentials and issues tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// NewAuthService wires an AuthService. metrics may be nil.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		metrics:   metrics,
		logger:    logger,
	}
}

// AuthResult is the account plus a freshly issued access token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account and logs it in.
//
// Errors:
//   - ValidationFailed "Please add all fields" if any field is blank
//   - Conflict "User with username already exists" / "User with email already exists"
//   - ValidationFailed if the password is longer than bcrypt accepts
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	res, err := s.register(ctx, username, email, password)
	s.metrics.Registration(ctx, outcome(err))
	return res, err
}

func (s *AuthService) register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, apperror.ValidationFailed("", MsgMissingFields)
	}

	// TWO LOOKUPS, NOT ONE:
	// "username OR email" in a single query would find a clash but not say
	// which field it was, and the client message names it. Username is
	// checked first, so when both are taken the username wins. Neither
	// lookup is what guarantees uniqueness: the store's unique constraints
	// still catch a registration that races past both.
	if err := s.ensureFree(ctx, "username", username, s.users.GetByUsername); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, "email", email, s.users.GetByEmail); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("Password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) ensureFree(
	ctx context.Context,
	field, value string,
	lookup func(context.Context, string) (*model.User, error),
) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return apperror.Conflict(field, fmt.Sprintf("User with %s already exists", field))
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("service/auth: checking %s: %w", field, err)
	}
}

// Login checks a username/password pair and issues a new token. Earlier
// tokens for the same user stay valid.
//
// Errors:
//   - ValidationFailed "Please add all fields" if either field is blank
//   - NotFoundMessage "User not found" for an unknown (case-sensitive) username
//   - Unauthorized "Incorrect password" on a digest mismatch
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	res, err := s.login(ctx, username, password)
	s.metrics.Login(ctx, outcome(err))
	return res, err
}

func (s *AuthService) login(ctx context.Context, username, password string) (*AuthResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, apperror.ValidationFailed("", MsgMissingFields)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgUserNotFound)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("login rejected", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized(MsgIncorrectPassword)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// ValidateToken returns the user id carried by a valid token.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// GetUserByID returns the account for an authenticated user id.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// outcome classifies err for metrics: client mistakes are "rejected",
// everything else that failed is "error".
func outcome(err error) string {
	var appErr *apperror.AppError
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.As(err, &appErr):
		return telemetry.OutcomeRejected
	default:
		return telemetry.OutcomeError
	}
}
