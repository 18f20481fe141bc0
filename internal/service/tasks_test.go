package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/geocoder89/tasktracker/internal/domain/user"
	"github.com/geocoder89/tasktracker/internal/repo/memory"
	"github.com/geocoder89/tasktracker/internal/service"
)

func strPtr(s string) *string { return &s }

func TestTaskService_CreateThenGet(t *testing.T) {
	svc := service.NewTaskService(memory.NewStore().Tasks())
	ctx := context.Background()

	created, err := svc.Create(ctx, task.CreateRequest{Title: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != task.DefaultStatus {
		t.Fatalf("status: got %q want %q", got.Status, task.DefaultStatus)
	}
	if got.UserID != nil {
		t.Fatalf("userId should be nil, got %d", *got.UserID)
	}
}

func TestTaskService_CreateValidation(t *testing.T) {
	svc := service.NewTaskService(memory.NewStore().Tasks())

	tests := []struct {
		name string
		req  task.CreateRequest
	}{
		{name: "blank_title", req: task.CreateRequest{Title: "   "}},
		{name: "bad_status", req: task.CreateRequest{Title: "A", Status: "done"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)

			var invalid service.ErrInvalidInput
			if !errors.As(err, &invalid) {
				t.Fatalf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestTaskService_UpdateOnlyStatus(t *testing.T) {
	svc := service.NewTaskService(memory.NewStore().Tasks())
	ctx := context.Background()

	created, _ := svc.Create(ctx, task.CreateRequest{Title: "Write report", Description: strPtr("Q3 numbers")})

	completed := task.StatusCompleted
	updated, err := svc.Update(ctx, created.ID, task.UpdateRequest{Status: &completed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Status != task.StatusCompleted {
		t.Fatalf("status: got %q", updated.Status)
	}
	if updated.Title != "Write report" || updated.Description == nil || *updated.Description != "Q3 numbers" {
		t.Fatalf("other fields changed: %+v", updated)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatalf("updatedAt went backwards")
	}
}

func TestTaskService_UpdateErrors(t *testing.T) {
	svc := service.NewTaskService(memory.NewStore().Tasks())
	ctx := context.Background()

	testing_ := task.StatusTesting
	if _, err := svc.Update(ctx, 404, task.UpdateRequest{Status: &testing_}); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("missing task: got %v", err)
	}

	created, _ := svc.Create(ctx, task.CreateRequest{Title: "A"})

	bogus := task.Status("archived")
	var invalid service.ErrInvalidInput
	if _, err := svc.Update(ctx, created.ID, task.UpdateRequest{Status: &bogus}); !errors.As(err, &invalid) {
		t.Fatalf("bad status: got %v", err)
	}

	if _, err := svc.Update(ctx, created.ID, task.UpdateRequest{Title: strPtr("")}); !errors.As(err, &invalid) {
		t.Fatalf("empty title: got %v", err)
	}
}

func TestTaskService_UpdateTrimsTitle(t *testing.T) {
	svc := service.NewTaskService(memory.NewStore().Tasks())
	ctx := context.Background()

	created, _ := svc.Create(ctx, task.CreateRequest{Title: "  A  "})
	if created.Title != "A" {
		t.Fatalf("create title: got %q", created.Title)
	}

	raw := "  B  "
	updated, err := svc.Update(ctx, created.ID, task.UpdateRequest{Title: &raw})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "B" {
		t.Fatalf("update title: got %q, want %q", updated.Title, "B")
	}
	if raw != "  B  " {
		t.Fatalf("caller's request was mutated: %q", raw)
	}

	got, _ := svc.GetByID(ctx, created.ID)
	if got.Title != "B" {
		t.Fatalf("stored title: got %q", got.Title)
	}

	// whitespace around an unchanged title is not a change
	padded := " B "
	again, err := svc.Update(ctx, created.ID, task.UpdateRequest{Title: &padded})
	if err != nil || !again.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Fatalf("padded same title should be a no-op, err=%v", err)
	}
}

func TestTaskService_RemoveIsIdempotent(t *testing.T) {
	svc := service.NewTaskService(memory.NewStore().Tasks())
	ctx := context.Background()

	if err := svc.Remove(ctx, 12345); err != nil {
		t.Fatalf("removing an unknown id should be silent, got %v", err)
	}
}

func TestTaskService_UserDeletionCascades(t *testing.T) {
	store := memory.NewStore()
	svc := service.NewTaskService(store.Tasks())
	ctx := context.Background()

	alice, _ := store.Users().Create(ctx, user.CreateParams{Username: "alice", Email: "a@x.com", PasswordHash: "h"})
	owner := alice.ID

	_, _ = svc.Create(ctx, task.CreateRequest{Title: "mine", UserID: &owner})
	_, _ = svc.Create(ctx, task.CreateRequest{Title: "nobody's"})

	if err := store.Users().Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	all, _ := svc.ListAll(ctx)
	if len(all) != 1 || all[0].Title != "nobody's" {
		t.Fatalf("cascade failed, remaining: %+v", all)
	}
}
