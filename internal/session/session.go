// Package session keeps the client's login state on disk between runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/geocoder89/tasktracker/internal/client"
	"github.com/geocoder89/tasktracker/internal/domain/user"
	"gopkg.in/yaml.v3"
)

// AuthAPI is the part of the API client the session drives.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (client.LoginResponse, error)
	Register(ctx context.Context, username, email, password string) (user.Public, error)
}

// Data is the persisted form.
type Data struct {
	AuthToken    string       `yaml:"authToken,omitempty"`
	RefreshToken string       `yaml:"refreshToken,omitempty"`
	CurrentUser  *user.Public `yaml:"currentUser,omitempty"`
}

type Session struct {
	mu   sync.RWMutex
	path string
	api  AuthAPI
	data Data
}

// DefaultPath is $XDG_CONFIG_HOME/tasktracker/session.yaml or the
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tasktracker", "session.yaml"), nil
}

// Open loads the session stored at path. A missing file is an empty session.
func Open(path string, api AuthAPI) (*Session, error) {
	s := &Session{path: path, api: api}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

func (s *Session) Login(ctx context.Context, username, password string) error {
	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}

	u := resp.User

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = Data{
		AuthToken:    resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		CurrentUser:  &u,
	}
	return s.save()
}

// Register creates the account and then logs in with the same credentials,
// since registration alone hands back no token.
func (s *Session) Register(ctx context.Context, username, email, password string) error {
	if _, err := s.api.Register(ctx, username, email, password); err != nil {
		return err
	}
	return s.Login(ctx, username, password)
}

// Logout forgets every stored key and removes the file.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = Data{}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// IsAuthenticated only checks that a token is present; expiry is discovered
// by the server.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.AuthToken != ""
}

func (s *Session) CurrentUser() (user.Public, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.CurrentUser == nil {
		return user.Public{}, false
	}
	return *s.data.CurrentUser, true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.AuthToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.RefreshToken
}

// save writes through a temp file so a crash never leaves half a session.
// Caller holds mu.
func (s *Session) save() error {
	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	return os.Rename(tmp.Name(), s.path)
}
