package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/geocoder89/tasktracker/internal/service"
	"github.com/gin-gonic/gin"
)

const taskQueryTimeout = 2 * time.Second

type TaskManager interface {
	ListAll(ctx context.Context) ([]task.Task, error)
	ListWithUsers(ctx context.Context) ([]task.Task, error)
	GetByID(ctx context.Context, id int64) (task.Task, error)
	Create(ctx context.Context, req task.CreateRequest) (task.Task, error)
	Update(ctx context.Context, id int64, req task.UpdateRequest) (task.Task, error)
	Remove(ctx context.Context, id int64) error
}

type TasksHandler struct {
	tasks TaskManager
}

func NewTasksHandler(tasks TaskManager) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

func (h *TasksHandler) List(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), taskQueryTimeout)
	defer cancel()

	items, err := h.tasks.ListAll(cctx)
	if err != nil {
		respondInternalErr(ctx, "Could not list tasks", err)
		return
	}

	items = nonNil(items)
	respondWithETag(ctx, taskListETag("tasks", items), items)
}

func (h *TasksHandler) ListWithUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), taskQueryTimeout)
	defer cancel()

	items, err := h.tasks.ListWithUsers(cctx)
	if err != nil {
		respondInternalErr(ctx, "Could not list tasks", err)
		return
	}

	items = nonNil(items)
	respondWithETag(ctx, taskListETag("tasks-users", items), items)
}

func (h *TasksHandler) Get(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), taskQueryTimeout)
	defer cancel()

	t, err := h.tasks.GetByID(cctx, id)
	if err != nil {
		h.respondTaskErr(ctx, "Could not fetch task", err)
		return
	}

	respondWithETag(ctx, taskETag(t), t)
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	var req task.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), taskQueryTimeout)
	defer cancel()

	t, err := h.tasks.Create(cctx, req)
	if err != nil {
		h.respondTaskErr(ctx, "Could not create task", err)
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

// Update serves both PATCH and PUT; either way only supplied fields change.
func (h *TasksHandler) Update(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	var req task.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), taskQueryTimeout)
	defer cancel()

	t, err := h.tasks.Update(cctx, id, req)
	if err != nil {
		h.respondTaskErr(ctx, "Could not update task", err)
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), taskQueryTimeout)
	defer cancel()

	if err := h.tasks.Remove(cctx, id); err != nil {
		respondInternalErr(ctx, "Could not delete task", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *TasksHandler) respondTaskErr(ctx *gin.Context, fallback string, err error) {
	var invalid service.ErrInvalidInput

	switch {
	case errors.Is(err, task.ErrNotFound):
		RespondNotFound(ctx, "Task not found")
	case errors.Is(err, task.ErrOwnerNotFound):
		RespondError(ctx, http.StatusBadRequest, "invalid_owner", "userId does not reference an existing user", nil)
	case errors.As(err, &invalid):
		RespondBadRequest(ctx, invalid.Error(), nil)
	default:
		respondInternalErr(ctx, fallback, err)
	}
}

func taskIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", "task id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil(items []task.Task) []task.Task {
	if items == nil {
		return []task.Task{}
	}
	return items
}
