package service

import (
	"context"

	"github.com/taskboard/taskboard/internal/model"
	"github.com/taskboard/taskboard/internal/repository"
)

// UserStore persists user accounts. Emails passed in are already normalized.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserPasswordHash(ctx context.Context, id, passwordHash string) error
}

// TaskStore persists tasks. Every read and write of a single task is keyed
// by both task ID and owner ID.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskForOwner(ctx context.Context, id, ownerID string) (*model.Task, error)
	ListTasksForOwner(ctx context.Context, ownerID string, filter repository.TaskFilter) ([]*model.Task, error)
	UpdateTaskForOwner(ctx context.Context, task *model.Task) error
	DeleteTaskForOwner(ctx context.Context, id, ownerID string) error
	CountTasks(ctx context.Context) (int64, error)
}

var (
	_ UserStore = (*repository.Repository)(nil)
	_ TaskStore = (*repository.Repository)(nil)
	_ UserStore = (*repository.MemoryStore)(nil)
	_ TaskStore = (*repository.MemoryStore)(nil)
)
