package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/geocoder89/tasktracker/internal/domain/user"
)

func mustCreateUser(t *testing.T, s *Store, username, email string) user.User {
	t.Helper()

	u, err := s.Users().Create(context.Background(), user.CreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestUsersRepo_UniqueUsernameAndEmail(t *testing.T) {
	s := NewStore()
	u := mustCreateUser(t, s, "alice", "a@x.com")

	if u.Role != user.RoleUser {
		t.Fatalf("default role: got %q", u.Role)
	}

	_, err := s.Users().Create(context.Background(), user.CreateParams{Username: "alice", Email: "other@x.com"})
	if !errors.Is(err, user.ErrUsernameTaken) || !errors.Is(err, user.ErrConflict) {
		t.Fatalf("duplicate username: got %v", err)
	}

	_, err = s.Users().Create(context.Background(), user.CreateParams{Username: "alice2", Email: "a@x.com"})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v", err)
	}

	// emails are compared exactly, like the users_email_key constraint
	if _, err := s.Users().Create(context.Background(), user.CreateParams{Username: "alice3", Email: "A@X.com"}); err != nil {
		t.Fatalf("email differing only in case: got %v", err)
	}
}

func TestTasksRepo_CreateDefaultsAndOwnerCheck(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	created, err := s.Tasks().Create(ctx, task.CreateRequest{Title: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != task.StatusTodo || created.UserID != nil {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	missing := int64(99)
	if _, err := s.Tasks().Create(ctx, task.CreateRequest{Title: "B", UserID: &missing}); !errors.Is(err, task.ErrOwnerNotFound) {
		t.Fatalf("unknown owner: got %v", err)
	}
}

func TestUsersRepo_DeleteCascadesToTasks(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", "a@x.com")
	bob := mustCreateUser(t, s, "bob", "b@x.com")

	for _, owner := range []int64{alice.ID, alice.ID, bob.ID} {
		id := owner
		if _, err := s.Tasks().Create(ctx, task.CreateRequest{Title: "t", UserID: &id}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := s.Tasks().Create(ctx, task.CreateRequest{Title: "unowned"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Users().Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	remaining, _ := s.Tasks().List(ctx)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 tasks left, got %d", len(remaining))
	}
	for _, tk := range remaining {
		if tk.UserID != nil && *tk.UserID == alice.ID {
			t.Fatalf("task %d still owned by deleted user", tk.ID)
		}
	}

	if err := s.Users().Delete(ctx, alice.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestTasksRepo_ListWithUsersJoinsOwner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", "a@x.com")
	id := alice.ID
	_, _ = s.Tasks().Create(ctx, task.CreateRequest{Title: "owned", UserID: &id})
	_, _ = s.Tasks().Create(ctx, task.CreateRequest{Title: "free"})

	plain, _ := s.Tasks().List(ctx)
	if plain[0].User != nil {
		t.Fatalf("plain list should not join users")
	}

	joined, _ := s.Tasks().ListWithUsers(ctx)
	if joined[0].User == nil || joined[0].User.Username != "alice" {
		t.Fatalf("expected joined owner, got %+v", joined[0].User)
	}
	if joined[1].User != nil {
		t.Fatalf("unowned task should have no user")
	}
}

func TestTasksRepo_DeleteIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	created, _ := s.Tasks().Create(ctx, task.CreateRequest{Title: "A"})

	if err := s.Tasks().Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Tasks().Delete(ctx, created.ID); err != nil {
		t.Fatalf("repeat delete should be silent, got %v", err)
	}
	if _, err := s.Tasks().GetByID(ctx, created.ID); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("get after delete: got %v", err)
	}
}
