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
)

// MsgTaskNotFound is the 404 body message of /update and /delete.
const MsgTaskNotFound = "Task not found"

// TaskManager is the part of service.TaskService the handlers use.
type TaskManager interface {
	List(ctx context.Context, ownerID string) ([]model.Task, error)
	Add(ctx context.Context, ownerID, text string) (*model.Task, error)
	MarkDone(ctx context.Context, ownerID, id string) (*model.Task, error)
	DeleteOne(ctx context.Context, ownerID, id string) (*model.Task, error)
	DeleteAll(ctx context.Context, ownerID string) (int64, error)
}

// TaskHandler serves the task routes. Every route runs behind
// auth.RequireAuth and acts on the caller's own tasks only.
type TaskHandler struct {
	tasks  TaskManager
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks TaskManager, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

type addTaskRequest struct {
	Task string `json:"task"`
}

// DeleteResponse is the body of a successful DELETE /delete/{id}.
type DeleteResponse struct {
	Message     string      `json:"message"`
	DeletedTask *model.Task `json:"deletedTask"`
}

// DeleteAllResponse is the body of a successful DELETE /deleteAll.
type DeleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// owner returns the authenticated user id, writing a 401 if there is none.
func (h *TaskHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Missing auth token"))
	}
	return id, ok
}

// fail logs unexpected errors and writes err.
//
// WHY 404 FOR SOMEONE ELSE'S TASK?
// The store looks tasks up by id AND owner, so another user's task is simply
// not found. Answering 403 instead would confirm that the id exists.
// NotFound always reads "Task not found" regardless of the id asked for.
func (h *TaskHandler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: MsgTaskNotFound})
		return
	}
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.String("error", err.Error()))
	}
	writeError(w, err)
}

// HandleList returns the caller's tasks in insertion order.
//
// HTTP: GET /get
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(r.Context(), owner)
	if err != nil {
		h.fail(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleAdd creates a task.
//
// HTTP: POST /add
// BODY: {"task": "buy milk"}
func (h *TaskHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req addTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid task JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid JSON body"})
		return
	}

	task, err := h.tasks.Add(r.Context(), owner, req.Task)
	if err != nil {
		h.fail(w, "add task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleUpdate marks a task done and returns it as stored afterwards.
//
// HTTP: PUT /update/{id}
//
// URL PARAMETERS:
// chi fills the request's path values, so r.PathValue("id") works here and
// tests set it with req.SetPathValue without building a router.
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.MarkDone(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		h.fail(w, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleDelete removes one task.
//
// HTTP: DELETE /delete/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.DeleteOne(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		h.fail(w, "delete task", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{
		Message:     "Task deleted successfully",
		DeletedTask: task,
	})
}

// HandleDeleteAll removes all of the caller's tasks.
//
// HTTP: DELETE /deleteAll
func (h *TaskHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	n, err := h.tasks.DeleteAll(r.Context(), owner)
	if err != nil {
		h.fail(w, "delete all tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteAllResponse{
		Message:      "All tasks deleted",
		DeletedCount: n,
	})
}
