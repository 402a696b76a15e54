package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/taskboard/taskboard/internal/model"
)

// MemoryStore keeps users and tasks in process memory. It honors the same
// ownership and ordering contract as Repository and is used by tests and
// by STORE_DRIVER=memory. Stored values are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	byEmail map[string]string
	tasks   map[string]*model.Task
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		tasks:   make(map[string]*model.Task),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// CreateUser stores a new user. The email must already be normalized.
func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return ErrEmailExists
	}

	u := *user
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail retrieves a user by their normalized email address.
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// UpdateUserPasswordHash replaces the stored password digest.
func (s *MemoryStore) UpdateUserPasswordHash(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// CreateTask stores a new task.
func (s *MemoryStore) CreateTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *task
	s.tasks[t.ID] = &t
	return nil
}

// GetTaskForOwner retrieves a task by ID, scoped to its owner.
func (s *MemoryStore) GetTaskForOwner(_ context.Context, id, ownerID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, ErrTaskNotFound
	}
	out := *t
	return &out, nil
}

// ListTasksForOwner returns the owner's tasks ordered by created_at DESC, id DESC.
func (s *MemoryStore) ListTasksForOwner(_ context.Context, ownerID string, filter TaskFilter) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[model.TaskStatus]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		want[st] = true
	}

	tasks := make([]*model.Task, 0)
	for _, t := range s.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if len(want) > 0 && !want[t.Status] {
			continue
		}
		out := *t
		tasks = append(tasks, &out)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})

	return tasks, nil
}

// UpdateTaskForOwner writes the mutable fields of task.
func (s *MemoryStore) UpdateTaskForOwner(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[task.ID]
	if !ok || t.OwnerID != task.OwnerID {
		return ErrTaskNotFound
	}
	t.Title = task.Title
	t.Description = task.Description
	t.Status = task.Status
	t.UpdatedAt = task.UpdatedAt
	return nil
}

// DeleteTaskForOwner removes a task, scoped to its owner.
func (s *MemoryStore) DeleteTaskForOwner(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// CountTasks returns the number of stored tasks across all users.
func (s *MemoryStore) CountTasks(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.tasks)), nil
}
