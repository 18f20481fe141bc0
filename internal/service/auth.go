package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/tasktracker/internal/domain/user"
	"github.com/geocoder89/tasktracker/internal/observability"
	"github.com/geocoder89/tasktracker/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64, username, role string) (string, error)
}

// Session is what a successful login hands back to the caller.
type Session struct {
	AccessToken string      `json:"access_token"`
	User        user.Public `json:"user"`
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	prom   *observability.Prom
}

func NewAuthService(users UserStore, tokens TokenIssuer, prom *observability.Prom) *AuthService {
	return &AuthService{users: users, tokens: tokens, prom: prom}
}

// ValidateCredentials returns the public view of the user when the password
// matches the stored bcrypt hash.
func (s *AuthService) ValidateCredentials(ctx context.Context, username, password string) (user.Public, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return user.Public{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return user.Public{}, user.ErrInvalidCredentials
	}

	return u.Public(), nil
}

func (s *AuthService) IssueSession(u user.Public) (Session, error) {
	token, err := s.tokens.GenerateAccessToken(u.ID, u.Username, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}

	return Session{AccessToken: token, User: u}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.ValidateCredentials(ctx, username, password)
	if err != nil {
		s.prom.ObserveAuth("login", authResult(err))
		return Session{}, err
	}

	sess, err := s.IssueSession(u)
	s.prom.ObserveAuth("login", authResult(err))
	return sess, err
}

func (s *AuthService) Register(ctx context.Context, req user.RegisterRequest) (user.Public, error) {
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		s.prom.ObserveAuth("register", "error")
		return user.Public{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.CreateParams{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         user.RoleUser,
	})
	s.prom.ObserveAuth("register", authResult(err))
	if err != nil {
		return user.Public{}, err
	}

	return u.Public(), nil
}

func authResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, user.ErrNotFound):
		return "user_not_found"
	case errors.Is(err, user.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, user.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
