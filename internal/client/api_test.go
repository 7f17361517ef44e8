package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubAPI(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := New(ts.URL, ts.Client())
	require.NoError(t, err)
	return c
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNew(t *testing.T) {
	c, err := New("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	c, err = New("http://example.com/api/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api", c.baseURL)

	_, err = New("not a url", nil)
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	var got map[string]string
	c := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeBody(w, http.StatusCreated,
			`{"success":true,"response":{"username":"alice","email":"a@x.io","id":"u1","accessToken":"tok"}}`)
	})

	acc, err := c.Register(t.Context(), "alice", "a@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, &Account{Username: "alice", Email: "a@x.io", ID: "u1", AccessToken: "tok"}, acc)
	assert.Equal(t, map[string]string{"username": "alice", "email": "a@x.io", "password": "pw"}, got)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "envelope message",
			status:     http.StatusUnauthorized,
			body:       `{"success":false,"response":"Incorrect password"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Incorrect password",
		},
		{
			name:       "body is not json",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Bad Gateway",
		},
		{
			name:       "success false with 200",
			status:     http.StatusOK,
			body:       `{"success":false,"response":"Please add all fields"}`,
			wantStatus: http.StatusOK,
			wantMsg:    "Please add all fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
				writeBody(w, tt.status, tt.body)
			})

			_, err := c.Login(t.Context(), "alice", "pw")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestTaskCallsSendBearerToken(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody map[string]string
	c := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotMethod, gotPath = r.Header.Get("Authorization"), r.Method, r.URL.Path
		gotBody = nil
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		switch r.URL.Path {
		case "/get":
			writeBody(w, http.StatusOK, `[{"id":"t1","text":"a","done":false,"owner":"u1"}]`)
		case "/deleteAll":
			writeBody(w, http.StatusOK, `{"message":"All tasks deleted","deletedCount":3}`)
		case "/delete/t1":
			writeBody(w, http.StatusOK, `{"message":"Task deleted successfully","deletedTask":{"id":"t1","text":"a"}}`)
		default:
			writeBody(w, http.StatusOK, `{"id":"t1","text":"a","done":true,"owner":"u1"}`)
		}
	})
	ctx := t.Context()

	tasks, err := c.List(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, http.MethodGet, gotMethod)

	_, err = c.Add(ctx, "tok", "buy milk")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, map[string]string{"task": "buy milk"}, gotBody)

	task, err := c.Done(ctx, "tok", "t1")
	require.NoError(t, err)
	assert.True(t, task.Done)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/update/t1", gotPath)

	deleted, err := c.Delete(ctx, "tok", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", deleted.ID)
	assert.Equal(t, http.MethodDelete, gotMethod)

	n, err := c.Clear(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "/deleteAll", gotPath)
}

func TestTaskCallErrors(t *testing.T) {
	c := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/update/missing":
			writeBody(w, http.StatusNotFound, `{"message":"Task not found"}`)
		default:
			writeBody(w, http.StatusUnauthorized, `{"message":"Invalid auth token"}`)
		}
	})

	_, err := c.Done(t.Context(), "tok", "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Task not found", apiErr.Message)
	assert.False(t, IsUnauthorized(err))

	_, err = c.List(t.Context(), "stale")
	assert.True(t, IsUnauthorized(err))
	assert.EqualError(t, err, "Invalid auth token")
}
