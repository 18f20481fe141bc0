package service

import (
	"context"
	"strings"

	"github.com/geocoder89/tasktracker/internal/domain/task"
)

type TaskStore interface {
	List(ctx context.Context) ([]task.Task, error)
	ListWithUsers(ctx context.Context) ([]task.Task, error)
	GetByID(ctx context.Context, id int64) (task.Task, error)
	Create(ctx context.Context, req task.CreateRequest) (task.Task, error)
	Update(ctx context.Context, t task.Task) (task.Task, error)
	Delete(ctx context.Context, id int64) error
}

type TaskService struct {
	store TaskStore
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

func (s *TaskService) ListAll(ctx context.Context) ([]task.Task, error) {
	return s.store.List(ctx)
}

func (s *TaskService) ListWithUsers(ctx context.Context) ([]task.Task, error) {
	return s.store.ListWithUsers(ctx)
}

func (s *TaskService) GetByID(ctx context.Context, id int64) (task.Task, error) {
	return s.store.GetByID(ctx, id)
}

func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (task.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return task.Task{}, ErrInvalidInput("title is required")
	}

	if req.Status == "" {
		req.Status = task.DefaultStatus
	}
	if !req.Status.IsValid() {
		return task.Task{}, ErrInvalidInput("unknown status " + string(req.Status))
	}

	return s.store.Create(ctx, req)
}

// Update applies only the supplied fields of req to the stored task.
func (s *TaskService) Update(ctx context.Context, id int64, req task.UpdateRequest) (task.Task, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return task.Task{}, ErrInvalidInput("unknown status " + string(*req.Status))
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return task.Task{}, ErrInvalidInput("title must not be empty")
		}
		req.Title = &title
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return task.Task{}, err
	}

	if !req.Apply(&existing) {
		return existing, nil
	}

	return s.store.Update(ctx, existing)
}

// Remove deletes unconditionally; an unknown id is not reported.
func (s *TaskService) Remove(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
