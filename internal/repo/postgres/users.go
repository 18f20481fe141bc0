package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/tasktracker/internal/domain/user"
	"github.com/geocoder89/tasktracker/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// constraint names come from migrations/0001_init.sql
const (
	usersUsernameKey = "users_username_key"
	usersEmailKey    = "users_email_key"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	u := user.User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
	}

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, role)
			VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'user'))
			RETURNING id, role, created_at`,
			p.Username, p.Email, p.PasswordHash, p.Role,
		).Scan(&u.ID, &u.Role, &u.CreatedAt)
	})

	if err != nil {
		if IsUniqueViolation(err) {
			switch violatedConstraint(err) {
			case usersEmailKey:
				return user.User{}, user.ErrEmailTaken
			case usersUsernameKey:
				return user.User{}, user.ErrUsernameTaken
			default:
				return user.User{}, user.ErrConflict
			}
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_username", `WHERE username = $1`, username)
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `WHERE id = $1`, id)
}

func (r *UsersRepo) getOne(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, username, email, password_hash, role, created_at
			FROM users `+where,
			arg,
		).Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.Role,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// Delete removes a user. The tasks.user_id foreign key cascades, so the
// user's tasks go with it.
func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.observe("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}
