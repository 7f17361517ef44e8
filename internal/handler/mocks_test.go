package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/service"
)

// MockAuth records the last call and returns canned values.
type MockAuth struct {
	GotUsername, GotEmail, GotPassword, GotID string

	ReturnRes  *service.AuthResult
	ReturnUser *model.User
	ReturnErr  error
}

func (m *MockAuth) Register(_ context.Context, username, email, password string) (*service.AuthResult, error) {
	m.GotUsername, m.GotEmail, m.GotPassword = username, email, password
	return m.ReturnRes, m.ReturnErr
}

func (m *MockAuth) Login(_ context.Context, username, password string) (*service.AuthResult, error) {
	m.GotUsername, m.GotPassword = username, password
	return m.ReturnRes, m.ReturnErr
}

func (m *MockAuth) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.GotID = id
	return m.ReturnUser, m.ReturnErr
}

// MockTasks records the owner and id of the last call.
type MockTasks struct {
	GotOwner, GotID, GotText string

	ReturnTasks []model.Task
	ReturnTask  *model.Task
	ReturnCount int64
	ReturnErr   error
}

func (m *MockTasks) List(_ context.Context, owner string) ([]model.Task, error) {
	m.GotOwner = owner
	return m.ReturnTasks, m.ReturnErr
}

func (m *MockTasks) Add(_ context.Context, owner, text string) (*model.Task, error) {
	m.GotOwner, m.GotText = owner, text
	return m.ReturnTask, m.ReturnErr
}

func (m *MockTasks) MarkDone(_ context.Context, owner, id string) (*model.Task, error) {
	m.GotOwner, m.GotID = owner, id
	return m.ReturnTask, m.ReturnErr
}

func (m *MockTasks) DeleteOne(_ context.Context, owner, id string) (*model.Task, error) {
	m.GotOwner, m.GotID = owner, id
	return m.ReturnTask, m.ReturnErr
}

func (m *MockTasks) DeleteAll(_ context.Context, owner string) (int64, error) {
	m.GotOwner = owner
	return m.ReturnCount, m.ReturnErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRequest builds a request, optionally authenticated as userID.
func newRequest(method, target, body, userID string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}
