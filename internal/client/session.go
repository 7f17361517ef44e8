package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Session is the client's view of who is logged in.
type Session struct {
	Username    string `yaml:"username,omitempty"`
	AccessToken string `yaml:"accessToken,omitempty"`
}

// LoggedIn reports whether the session carries a token.
func (s Session) LoggedIn() bool {
	return s.AccessToken != ""
}

// SessionStore is the only place the session is changed. Login and Logout
// are its transitions; each one is persisted before subscribers are told.
//
// WHY A SESSION STORE WITH TRANSITIONS?
// "Logged in" is three facts: a username, a token, and the file on disk.
// Changing them one at a time from each command lets them drift apart (a
// token with no file, a file after logout). Routing every change through
// Login and Logout keeps them in step, and Subscribe lets the CLI react to
// a change without polling.
//
// The state lives in a YAML file so it survives restarts. An empty path
// keeps it in memory only.
type SessionStore struct {
	path string

	mu          sync.Mutex
	state       Session
	subscribers map[int]func(Session)
	nextID      int
}

// OpenSessionStore loads the session at path. A missing file means logged
// out; a file that is not valid YAML is an error.
func OpenSessionStore(path string) (*SessionStore, error) {
	s := &SessionStore{path: path, subscribers: make(map[int]func(Session))}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("client: reading session %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("client: parsing session %s: %w", path, err)
	}
	return s, nil
}

// State returns a copy of the current session.
func (s *SessionStore) State() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsLoggedIn reports whether a token is held.
func (s *SessionStore) IsLoggedIn() bool {
	return s.State().LoggedIn()
}

// Login records username and token as the current session.
func (s *SessionStore) Login(username, token string) error {
	if token == "" {
		return errors.New("client: cannot log in without a token")
	}
	return s.transition(Session{Username: username, AccessToken: token})
}

// Logout clears the session and removes the file.
func (s *SessionStore) Logout() error {
	return s.transition(Session{})
}

// Subscribe registers fn to be called after every transition. The returned
// func removes it.
func (s *SessionStore) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *SessionStore) transition(next Session) error {
	s.mu.Lock()
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	subs := make([]func(Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Called without the lock so a subscriber may read State.
	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// persist writes next to disk, or removes the file for a logged-out
// session. Caller holds s.mu.
func (s *SessionStore) persist(next Session) error {
	if s.path == "" {
		return nil
	}

	if !next.LoggedIn() {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("client: removing session %s: %w", s.path, err)
		}
		return nil
	}

	data, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("client: encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("client: creating session directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("client: writing session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("client: writing session: %w", err)
	}
	return nil
}
