package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geocoder89/tasktracker/internal/client"
	"github.com/geocoder89/tasktracker/internal/domain/user"
)

type fakeAuthAPI struct {
	loginFn    func(ctx context.Context, username, password string) (client.LoginResponse, error)
	registerFn func(ctx context.Context, username, email, password string) (user.Public, error)
	calls      []string
}

func (f *fakeAuthAPI) Login(ctx context.Context, username, password string) (client.LoginResponse, error) {
	f.calls = append(f.calls, "login")
	if f.loginFn != nil {
		return f.loginFn(ctx, username, password)
	}
	return client.LoginResponse{
		AccessToken: "tok-" + username,
		User:        user.Public{ID: 1, Username: username, Email: username + "@x.com", Role: user.RoleUser},
	}, nil
}

func (f *fakeAuthAPI) Register(ctx context.Context, username, email, password string) (user.Public, error) {
	f.calls = append(f.calls, "register")
	if f.registerFn != nil {
		return f.registerFn(ctx, username, email, password)
	}
	return user.Public{ID: 1, Username: username, Email: email, Role: user.RoleUser}, nil
}

func tempPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "nested", "session.yaml")
}

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(tempPath(t), &fakeAuthAPI{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatalf("fresh session must not be authenticated")
	}
	if _, ok := s.CurrentUser(); ok {
		t.Fatalf("fresh session has no user")
	}
}

func TestLogin_PersistsAcrossOpen(t *testing.T) {
	path := tempPath(t)
	api := &fakeAuthAPI{}

	s, _ := Open(path, api)
	if err := s.Login(context.Background(), "alice", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("session file mode %v, want 0600", perm)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "authToken: tok-alice") {
		t.Fatalf("unexpected file contents:\n%s", raw)
	}

	reopened, err := Open(path, api)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Token() != "tok-alice" {
		t.Fatalf("token: %q", reopened.Token())
	}
	u, ok := reopened.CurrentUser()
	if !ok || u.Username != "alice" || u.ID != 1 {
		t.Fatalf("user: %+v ok=%v", u, ok)
	}
}

func TestLogin_FailureKeepsPreviousState(t *testing.T) {
	api := &fakeAuthAPI{}
	s, _ := Open(tempPath(t), api)
	_ = s.Login(context.Background(), "alice", "secret1")

	api.loginFn = func(ctx context.Context, username, password string) (client.LoginResponse, error) {
		return client.LoginResponse{}, &client.APIError{Status: 401, Message: "Invalid credentials."}
	}

	err := s.Login(context.Background(), "bob", "nope")
	if err == nil || err.Error() != "Invalid credentials." {
		t.Fatalf("got %v", err)
	}
	if s.Token() != "tok-alice" {
		t.Fatalf("failed login must not clobber the session")
	}
}

func TestRegister_ThenLogsIn(t *testing.T) {
	api := &fakeAuthAPI{}
	s, _ := Open(tempPath(t), api)

	if err := s.Register(context.Background(), "alice", "a@x.com", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if strings.Join(api.calls, ",") != "register,login" {
		t.Fatalf("calls: %v", api.calls)
	}
	if !s.IsAuthenticated() {
		t.Fatalf("register should leave the session authenticated")
	}
}

func TestRegister_ConflictSkipsLogin(t *testing.T) {
	api := &fakeAuthAPI{registerFn: func(ctx context.Context, username, email, password string) (user.Public, error) {
		return user.Public{}, &client.APIError{Status: 409, Code: "username_taken", Message: "Username is already taken."}
	}}
	s, _ := Open(tempPath(t), api)

	err := s.Register(context.Background(), "alice", "a@x.com", "secret1")

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 409 {
		t.Fatalf("got %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("login must not run after a failed register: %v", api.calls)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	path := tempPath(t)
	s, _ := Open(path, &fakeAuthAPI{loginFn: func(ctx context.Context, username, password string) (client.LoginResponse, error) {
		return client.LoginResponse{AccessToken: "a", RefreshToken: "r", User: user.Public{ID: 2, Username: username}}, nil
	}})
	_ = s.Login(context.Background(), "alice", "secret1")

	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if s.IsAuthenticated() || s.RefreshToken() != "" {
		t.Fatalf("tokens survived logout")
	}
	if _, ok := s.CurrentUser(); ok {
		t.Fatalf("user survived logout")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file should be gone, stat err=%v", err)
	}

	// logging out twice is fine
	if err := s.Logout(); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	_ = os.WriteFile(path, []byte("authToken: [unclosed"), 0o600)

	if _, err := Open(path, &fakeAuthAPI{}); err == nil {
		t.Fatalf("expected a parse error")
	}
}
