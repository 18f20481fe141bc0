package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/tasktracker/internal/auth"
	"github.com/geocoder89/tasktracker/internal/domain/user"
	"github.com/geocoder89/tasktracker/internal/repo/memory"
	"github.com/geocoder89/tasktracker/internal/service"
)

func newAuthService(t *testing.T) (*service.AuthService, *auth.Manager, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	jwt := auth.NewManager("test-secret", time.Hour)

	return service.NewAuthService(store.Users(), jwt, nil), jwt, store
}

func TestRegister_NeverExposesPassword(t *testing.T) {
	svc, _, store := newAuthService(t)

	pub, err := svc.Register(context.Background(), user.RegisterRequest{
		Username: "alice",
		Email:    "a@x.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if pub.Role != user.RoleUser || pub.ID == 0 {
		t.Fatalf("unexpected user: %+v", pub)
	}

	raw, _ := json.Marshal(pub)
	if strings.Contains(string(raw), "secret1") || strings.Contains(strings.ToLower(string(raw)), "password") {
		t.Fatalf("public view leaks credentials: %s", raw)
	}

	stored, _ := store.Users().GetByUsername(context.Background(), "alice")
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Fatalf("password must be stored hashed")
	}

	full, _ := json.Marshal(stored)
	if strings.Contains(string(full), stored.PasswordHash) {
		t.Fatalf("hash leaked through JSON: %s", full)
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, user.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		req  user.RegisterRequest
		want error
	}{
		{name: "same_username", req: user.RegisterRequest{Username: "alice", Email: "new@x.com", Password: "secret1"}, want: user.ErrUsernameTaken},
		{name: "same_email", req: user.RegisterRequest{Username: "alice2", Email: "a@x.com", Password: "secret1"}, want: user.ErrEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			if !errors.Is(err, tt.want) || !errors.Is(err, user.ErrConflict) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, jwt, _ := newAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, user.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("wrong_password", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice", "nope")
		if !errors.Is(err, user.ErrInvalidCredentials) {
			t.Fatalf("got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		_, err := svc.Login(ctx, "bob", "secret1")
		if !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("success_token_claims_match", func(t *testing.T) {
		sess, err := svc.Login(ctx, "alice", "secret1")
		if err != nil {
			t.Fatalf("login: %v", err)
		}

		if sess.User != registered {
			t.Fatalf("session user %+v != registered %+v", sess.User, registered)
		}

		claims, err := jwt.VerifyAccessToken(sess.AccessToken)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}

		id, _ := claims.UserID()
		if id != registered.ID || claims.Role != registered.Role || claims.Username != "alice" {
			t.Fatalf("claims mismatch: id=%d role=%q username=%q", id, claims.Role, claims.Username)
		}
	})
}

type failingIssuer struct{}

func (failingIssuer) GenerateAccessToken(int64, string, string) (string, error) {
	return "", errors.New("boom")
}

func TestIssueSession_SignError(t *testing.T) {
	svc := service.NewAuthService(memory.NewStore().Users(), failingIssuer{}, nil)

	if _, err := svc.IssueSession(user.Public{ID: 1}); err == nil {
		t.Fatalf("expected signing error")
	}
}
