// Package client talks to the task-list API and keeps the local login
// session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/tasklist/internal/model"
)

// DefaultBaseURL is used when no API address is configured.
const DefaultBaseURL = "http://localhost:8080"

const requestTimeout = 15 * time.Second

// APIError is a non-2xx response. Message is the server's text when the
// body carried one, else the status text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Account is what /register and /login return. Email is empty after login.
type Account struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	ID          string `json:"id"`
	AccessToken string `json:"accessToken"`
}

// Client is a thin JSON client for the API. It holds no credentials: every
// authenticated call takes the token explicitly.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL. A nil httpClient gets a default with a
// 15 second timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid API address %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}, nil
}

type envelope struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response"`
}

type messageBody struct {
	Message string `json:"message"`
}

// Register creates an account. The returned token is already valid.
func (c *Client) Register(ctx context.Context, username, email, password string) (*Account, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var acc Account
	if err := c.doEnvelope(ctx, "/register", body, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Login exchanges credentials for a fresh token.
func (c *Client) Login(ctx context.Context, username, password string) (*Account, error) {
	body := map[string]string{"username": username, "password": password}
	var acc Account
	if err := c.doEnvelope(ctx, "/login", body, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns the caller's tasks in insertion order.
func (c *Client) List(ctx context.Context, token string) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/get", token, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Add creates a task.
func (c *Client) Add(ctx context.Context, token, text string) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodPost, "/add", token, map[string]string{"task": text}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Done marks a task done and returns it as stored.
func (c *Client) Done(ctx context.Context, token, id string) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodPut, "/update/"+url.PathEscape(id), token, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes one task and returns it.
func (c *Client) Delete(ctx context.Context, token, id string) (*model.Task, error) {
	var resp struct {
		DeletedTask *model.Task `json:"deletedTask"`
	}
	if err := c.do(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id), token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.DeletedTask, nil
}

// Clear removes all of the caller's tasks and returns how many there were.
func (c *Client) Clear(ctx context.Context, token string) (int64, error) {
	var resp struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := c.do(ctx, http.MethodDelete, "/deleteAll", token, nil, &resp); err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

// doEnvelope POSTs to an auth route and unwraps {"success", "response"}.
func (c *Client) doEnvelope(ctx context.Context, path string, body, out any) error {
	resp, err := c.send(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("client: decoding %s response: %w", path, err)
	}

	if !env.Success || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var text string
		if json.Unmarshal(env.Response, &text) == nil && text != "" {
			msg = text
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("client: decoding %s response: %w", path, err)
	}
	return nil
}

// do calls a task route and decodes the body into out.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	resp, err := c.send(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var mb messageBody
		if json.NewDecoder(resp.Body).Decode(&mb) == nil && mb.Message != "" {
			msg = mb.Message
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	return resp, nil
}
