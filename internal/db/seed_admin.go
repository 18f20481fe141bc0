package db

import (
	"context"
	"errors"

	"github.com/geocoder89/tasktracker/internal/config"
	"github.com/geocoder89/tasktracker/internal/domain/user"
	"github.com/geocoder89/tasktracker/internal/security"
)

// AdminUserStore is the slice of a user store the seeder needs.
type AdminUserStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. It is a no-op
// when no admin credentials are configured or the username already exists.
func EnsureAdminUser(ctx context.Context, users AdminUserStore, cfg config.Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.GetByUsername(ctx, cfg.AdminUsername)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUsername + "@localhost"
	}

	_, err = users.Create(ctx, user.CreateParams{
		Username:     cfg.AdminUsername,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	})

	// another replica seeded it first
	if errors.Is(err, user.ErrConflict) {
		return nil
	}

	return err
}
