package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/geocoder89/tasktracker/internal/domain/user"
	"github.com/geocoder89/tasktracker/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `t.id, t.title, t.description, t.status, t.created_at, t.updated_at, t.user_id`

const taskWithUserColumns = taskColumns + `, u.id, u.username, u.email, u.role`

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *TasksRepo) List(ctx context.Context) ([]task.Task, error) {
	return r.list(ctx, "tasks.list", `SELECT `+taskColumns+` FROM tasks t ORDER BY t.id ASC`, false)
}

// ListWithUsers eager-joins each task's owner in the same query.
func (r *TasksRepo) ListWithUsers(ctx context.Context) ([]task.Task, error) {
	return r.list(ctx, "tasks.list_with_users",
		`SELECT `+taskWithUserColumns+`
		FROM tasks t
		LEFT JOIN users u ON u.id = t.user_id
		ORDER BY t.id ASC`, true)
}

func (r *TasksRepo) list(ctx context.Context, op, query string, withUser bool) ([]task.Task, error) {
	output := make([]task.Task, 0)

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows, withUser)
			if err != nil {
				return err
			}
			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return output, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id int64) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get_by_id", func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+taskWithUserColumns+`
			FROM tasks t
			LEFT JOIN users u ON u.id = t.user_id
			WHERE t.id = $1`, id)

		var err error
		t, err = scanTask(row, true)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, req task.CreateRequest) (task.Task, error) {
	status := req.Status
	if status == "" {
		status = task.DefaultStatus
	}

	var t task.Task

	err := r.observe("tasks.create", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO tasks AS t (title, description, status, user_id)
			VALUES ($1, $2, $3, $4)
			RETURNING `+taskColumns,
			req.Title, req.Description, string(status), req.UserID,
		)

		var err error
		t, err = scanTask(row, false)
		return err
	})

	if err != nil {
		if IsForeignKeyViolation(err) {
			return task.Task{}, task.ErrOwnerNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

// Update writes the mutable columns of t and bumps updated_at.
func (r *TasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	var out task.Task

	err := r.observe("tasks.update", func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE tasks AS t
			SET title = $2,
				description = $3,
				status = $4,
				updated_at = NOW()
			WHERE t.id = $1
			RETURNING `+taskColumns,
			t.ID, t.Title, t.Description, string(t.Status),
		)

		var err error
		out, err = scanTask(row, false)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	out.User = t.User
	return out, nil
}

// Delete removes the task if it exists. Deleting an unknown id is not an error.
func (r *TasksRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("tasks.delete", func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		return err
	})
}

func scanTask(row pgx.Row, withUser bool) (task.Task, error) {
	var (
		t      task.Task
		status string
	)

	dest := []any{&t.ID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt, &t.UserID}

	var (
		ownerID                          *int64
		ownerName, ownerEmail, ownerRole *string
	)
	if withUser {
		dest = append(dest, &ownerID, &ownerName, &ownerEmail, &ownerRole)
	}

	if err := row.Scan(dest...); err != nil {
		return task.Task{}, err
	}

	t.Status = task.Status(status)

	if ownerID != nil {
		t.User = &user.Public{
			ID:       *ownerID,
			Username: deref(ownerName),
			Email:    deref(ownerEmail),
			Role:     deref(ownerRole),
		}
	}

	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
