package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
	"github.com/sakif/tasklist/internal/telemetry"
)

// MsgTaskRequired is returned when a task is added without text.
const MsgTaskRequired = "Please add a task"

// TaskService implements the task operations.
//
// WHY A SEPARATE SERVICE LAYER?
// The rules (blank text is rejected, store failures are wrapped and
// counted) live here once, and both stores and every handler share them.
// Tests drive it with an in-memory fake repository, no HTTP or database.
//
// Every method takes the owner's user id. The HTTP layer always passes the
// authenticated caller; an empty owner means "all tasks" and is only used
// by internal callers.
type TaskService struct {
	repo    repository.TaskRepository
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewTaskService wires a TaskService. metrics may be nil.
func NewTaskService(repo repository.TaskRepository, metrics *telemetry.Metrics, logger *slog.Logger) *TaskService {
	return &TaskService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
	}
}

// List returns the owner's tasks in the order they were added.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]model.Task, error) {
	tasks, err := s.repo.List(ctx, ownerID)
	s.metrics.TaskOp(ctx, "list", outcome(err))
	if err != nil {
		s.logger.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// Add stores a new, not yet done task for ownerID.
func (s *TaskService) Add(ctx context.Context, ownerID, text string) (*model.Task, error) {
	task, err := s.add(ctx, ownerID, text)
	s.metrics.TaskOp(ctx, "add", outcome(err))
	return task, err
}

func (s *TaskService) add(ctx context.Context, ownerID, text string) (*model.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("task", MsgTaskRequired)
	}

	task := &model.Task{Text: text, Owner: ownerID}
	if err := s.repo.Create(ctx, task); err != nil {
		s.logger.Error("failed to create task",
			slog.String("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.String("id", task.ID),
		slog.String("owner", ownerID),
	)
	return task, nil
}

// MarkDone sets done on the task and returns it as stored afterwards.
// Marking a done task again succeeds.
func (s *TaskService) MarkDone(ctx context.Context, ownerID, id string) (*model.Task, error) {
	task, err := s.repo.MarkDone(ctx, ownerID, id)
	s.metrics.TaskOp(ctx, "done", outcome(err))
	if err != nil {
		return nil, s.storeErr("marking task done", id, err)
	}

	s.logger.Info("task marked done", slog.String("id", id))
	return task, nil
}

// DeleteOne removes a single task and returns what was removed.
func (s *TaskService) DeleteOne(ctx context.Context, ownerID, id string) (*model.Task, error) {
	task, err := s.repo.Delete(ctx, ownerID, id)
	s.metrics.TaskOp(ctx, "delete", outcome(err))
	if err != nil {
		return nil, s.storeErr("deleting task", id, err)
	}

	s.logger.Info("task deleted", slog.String("id", id))
	return task, nil
}

// DeleteAll removes every task of ownerID and returns how many were removed.
func (s *TaskService) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, ownerID)
	s.metrics.TaskOp(ctx, "delete_all", outcome(err))
	if err != nil {
		s.logger.Error("failed to delete tasks", slog.String("error", err.Error()))
		return 0, fmt.Errorf("deleting all tasks: %w", err)
	}

	s.logger.Info("tasks deleted",
		slog.String("owner", ownerID),
		slog.Int64("count", n),
	)
	return n, nil
}

// storeErr passes NotFound through untouched and wraps anything else.
func (s *TaskService) storeErr(action, id string, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	s.logger.Error("failed "+action,
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s %s: %w", action, id, err)
}
