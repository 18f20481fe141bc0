package task

import (
	"errors"
	"time"

	"github.com/geocoder89/tasktracker/internal/domain/user"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusTesting    Status = "testing"
	StatusCompleted  Status = "completed"
)

// DefaultStatus is assigned when a task is created without one.
const DefaultStatus = StatusTodo

// Statuses lists every status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusTesting, StatusCompleted}

func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusTesting, StatusCompleted:
		return true
	default:
		return false
	}
}

// Next returns the following status, wrapping back to todo after completed.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return DefaultStatus
}

var (
	ErrNotFound      = errors.New("task not found")
	ErrOwnerNotFound = errors.New("task owner does not exist")
)

type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	UserID      *int64       `json:"userId"`
	User        *user.Public `json:"user,omitempty"`
}

type CreateRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=5000"`
	Status      Status  `json:"status,omitempty" binding:"omitempty,taskstatus"`
	UserID      *int64  `json:"userId,omitempty" binding:"omitempty,min=1"`
}

// UpdateRequest is a partial update: nil fields are left untouched.
type UpdateRequest struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=5000"`
	Status      *Status `json:"status,omitempty" binding:"omitempty,taskstatus"`
}

// Apply copies the supplied fields onto t and reports whether anything changed.
func (req UpdateRequest) Apply(t *Task) bool {
	changed := false

	if req.Title != nil && *req.Title != t.Title {
		t.Title = *req.Title
		changed = true
	}

	if req.Description != nil {
		if t.Description == nil || *t.Description != *req.Description {
			d := *req.Description
			t.Description = &d
			changed = true
		}
	}

	if req.Status != nil && *req.Status != t.Status {
		t.Status = *req.Status
		changed = true
	}

	return changed
}
