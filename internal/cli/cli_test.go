package cli

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/tasklist/internal/config"
	"github.com/sakif/tasklist/internal/server"
)

// testEnv is a live API on an in-memory store plus a private session file.
type testEnv struct {
	api     string
	session string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithSecret(t, "cli-test-secret-0123456789")
}

func newTestEnvWithSecret(t *testing.T, secret string) *testEnv {
	t.Helper()

	s, err := server.New(&config.Config{
		DatabaseURL:    ":memory:",
		JWTSecret:      secret,
		AllowedOrigins: []string{"*"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close(t.Context())
	})

	return &testEnv{api: ts.URL, session: filepath.Join(t.TempDir(), "session.yaml")}
}

// run executes taskcli with args and captures stdout and stderr.
func (e *testEnv) run(args ...string) (stdout, stderr string, err error) {
	root := NewRootCommand()
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(append([]string{"--api", e.api, "--session", e.session}, args...))
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(args...)
	require.NoError(t, err, "taskcli %v: %s", args, stderr)
	return out
}

// addedID pulls the task id out of "Added <id>  <text>".
func addedID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2, out)
	require.Equal(t, "Added", fields[0])
	return fields[1]
}

func TestHomeCommandsRequireLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, args := range [][]string{
		{"list"},
		{"add", "buy milk"},
		{"done", "abc"},
		{"delete", "abc"},
		{"clear"},
		{"whoami"},
	} {
		t.Run(args[0], func(t *testing.T) {
			_, _, err := env.run(args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errNotLoggedIn))
			assert.Contains(t, err.Error(), "taskcli register")
		})
	}
}

func TestFullSession(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "register", "alice", "alice@example.com", "--password", "s3cret")
	assert.Equal(t, "Logged in as alice.\n", out)

	out = env.mustRun(t, "whoami")
	assert.Contains(t, out, "alice <alice@example.com>")

	out = env.mustRun(t, "list")
	assert.Contains(t, out, "No tasks yet")

	id := addedID(t, env.mustRun(t, "add", "buy", "milk"))
	out = env.mustRun(t, "list")
	assert.Equal(t, "[ ] "+id+"  buy milk\n", out)

	out = env.mustRun(t, "done", id)
	assert.Contains(t, out, "Done "+id)
	out = env.mustRun(t, "list")
	assert.Equal(t, "[x] "+id+"  buy milk\n", out)

	out = env.mustRun(t, "delete", id)
	assert.Contains(t, out, "Deleted "+id)

	_, _, err := env.run("delete", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Task not found")

	env.mustRun(t, "add", "one")
	env.mustRun(t, "add", "two")
	out = env.mustRun(t, "clear")
	assert.Equal(t, "Deleted 2 task(s)\n", out)

	out = env.mustRun(t, "logout")
	assert.Equal(t, "Logged out.\n", out)
	_, _, err = env.run("list")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, _, err = env.run("login", "alice", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect password")

	out = env.mustRun(t, "login", "alice", "--password", "s3cret")
	assert.Equal(t, "Logged in as alice.\n", out)
}

func TestRegisterConflict(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "register", "alice", "alice@example.com", "--password", "pw")

	_, _, err := env.run("register", "alice", "other@example.com", "--password", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User with username already exists")
}

func TestStaleTokenHint(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "register", "alice", "alice@example.com", "--password", "pw")

	// A token from another server's secret is rejected.
	other := newTestEnvWithSecret(t, "some-other-secret-0123456789")
	other.session = env.session
	_, _, err := other.run("list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid auth token")
	assert.Contains(t, err.Error(), "taskcli login")
}

func TestPasswordPrompt(t *testing.T) {
	env := newTestEnv(t)

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return []byte("prompted"), nil }

	out, stderr, err := env.run("register", "bob", "bob@example.com")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Password: ")
	assert.Equal(t, "Logged in as bob.\n", out)

	env.mustRun(t, "logout")
	out = env.mustRun(t, "login", "bob", "--password", "prompted")
	assert.Equal(t, "Logged in as bob.\n", out)
}
