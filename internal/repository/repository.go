// Package repository declares the storage contracts the services depend on.
// Implementations live in the sqlite and mongo subpackages.
package repository

import (
	"context"

	"github.com/sakif/tasklist/internal/model"
)

// UserRepository persists accounts.
//
// Create must report a duplicate username or email as an apperror.Conflict
// naming the field, even when two registrations race past the service's
// pre-check. Lookups return apperror.ErrNotFound when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// TaskRepository persists tasks.
//
// An empty owner means "any owner" for every method. A non-empty owner
// restricts the operation to that owner's tasks, so a task belonging to
// someone else is reported as not found.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	List(ctx context.Context, owner string) ([]model.Task, error)
	MarkDone(ctx context.Context, owner, id string) (*model.Task, error)
	Delete(ctx context.Context, owner, id string) (*model.Task, error)
	DeleteAll(ctx context.Context, owner string) (int64, error)
}
