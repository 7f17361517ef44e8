package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// WHY FAKES?
// The services only see repository interfaces, so a map behind a mutex
// stands in for SQLite or MongoDB. Tests run in microseconds, and a failing
// store is one field away (createErr, lookupErr).

// fakeUserRepo is an in-memory repository.UserRepository. Setting one of
// the *Err fields simulates a store failure.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	createErr error
	lookupErr error
	// skipPrecheck makes lookups miss so Create's own uniqueness check is
	// exercised, as in a registration race.
	skipPrecheck bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("username", "User with username already exists")
		}
		if u.Email == user.Email {
			return apperror.Conflict("email", "User with email already exists")
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if !f.skipPrecheck {
		for _, u := range f.users {
			if match(u) {
				copied := *u
				return &copied, nil
			}
		}
	}
	return nil, apperror.NotFoundMessage("User not found")
}

// fakeTaskRepo is an in-memory repository.TaskRepository preserving
// insertion order.
type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  []model.Task
	nextID int
	err    error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{nextID: 1}
}

func owns(owner string, t model.Task) bool {
	return owner == "" || t.Owner == owner
}

func (f *fakeTaskRepo) Create(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	task.ID = fmt.Sprintf("task-%d", f.nextID)
	f.nextID++
	task.Done = false
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	f.tasks = append(f.tasks, *task)
	return nil
}

func (f *fakeTaskRepo) List(_ context.Context, owner string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if owns(owner, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) MarkDone(_ context.Context, owner, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id && owns(owner, f.tasks[i]) {
			f.tasks[i].Done = true
			f.tasks[i].UpdatedAt = time.Now()
			copied := f.tasks[i]
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("task", id)
}

func (f *fakeTaskRepo) Delete(_ context.Context, owner, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i, t := range f.tasks {
		if t.ID == id && owns(owner, t) {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return &t, nil
		}
	}
	return nil, apperror.NotFound("task", id)
}

func (f *fakeTaskRepo) DeleteAll(_ context.Context, owner string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	kept := f.tasks[:0]
	var n int64
	for _, t := range f.tasks {
		if owns(owner, t) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	f.tasks = kept
	return n, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
