package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/geocoder89/tasktracker/internal/domain/user"
)

// Store keeps users and tasks in process memory with the same contracts as
// the Postgres repos: unique usernames/emails, owner foreign key checks and
// cascading task deletion when a user is removed.
type Store struct {
	mu sync.RWMutex

	users      map[int64]user.User
	tasks      map[int64]task.Task
	nextUserID int64
	nextTaskID int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: make(map[int64]user.User),
		tasks: make(map[int64]task.Task),
		now:   time.Now,
	}
}

func (s *Store) Users() *UsersRepo { return &UsersRepo{s: s} }
func (s *Store) Tasks() *TasksRepo { return &TasksRepo{s: s} }

type UsersRepo struct{ s *Store }

func (r *UsersRepo) Create(_ context.Context, p user.CreateParams) (user.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == p.Username {
			return user.User{}, user.ErrUsernameTaken
		}
		if u.Email == p.Email {
			return user.User{}, user.ErrEmailTaken
		}
	}

	role := p.Role
	if role == "" {
		role = user.RoleUser
	}

	s.nextUserID++
	u := user.User{
		ID:           s.nextUserID,
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	s.users[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// Delete removes the user and, like ON DELETE CASCADE, every task they own.
func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}

	delete(s.users, id)
	for tid, t := range s.tasks {
		if t.UserID != nil && *t.UserID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

type TasksRepo struct{ s *Store }

func (r *TasksRepo) List(_ context.Context) ([]task.Task, error) {
	return r.s.sortedTasks(false), nil
}

func (r *TasksRepo) ListWithUsers(_ context.Context) ([]task.Task, error) {
	return r.s.sortedTasks(true), nil
}

func (r *TasksRepo) GetByID(_ context.Context, id int64) (task.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return r.s.withOwner(t), nil
}

func (r *TasksRepo) Create(_ context.Context, req task.CreateRequest) (task.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.UserID != nil {
		if _, ok := s.users[*req.UserID]; !ok {
			return task.Task{}, task.ErrOwnerNotFound
		}
	}

	status := req.Status
	if status == "" {
		status = task.DefaultStatus
	}

	now := s.now().UTC()
	s.nextTaskID++

	t := task.Task{
		ID:          s.nextTaskID,
		Title:       req.Title,
		Description: copyString(req.Description),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      copyInt64(req.UserID),
	}
	s.tasks[t.ID] = t

	return t, nil
}

func (r *TasksRepo) Update(_ context.Context, t task.Task) (task.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	existing.Title = t.Title
	existing.Description = copyString(t.Description)
	existing.Status = t.Status
	existing.UpdatedAt = s.now().UTC()
	s.tasks[t.ID] = existing

	out := existing
	out.User = t.User
	return out, nil
}

func (r *TasksRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	delete(r.s.tasks, id)
	r.s.mu.Unlock()
	return nil
}

func (s *Store) sortedTasks(withUsers bool) []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if withUsers {
			t = s.withOwner(t)
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// withOwner must be called with s.mu held.
func (s *Store) withOwner(t task.Task) task.Task {
	if t.UserID == nil {
		return t
	}
	if u, ok := s.users[*t.UserID]; ok {
		pub := u.Public()
		t.User = &pub
	}
	return t
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
