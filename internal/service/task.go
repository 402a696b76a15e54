// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/taskboard/taskboard/internal/metrics"
	"github.com/taskboard/taskboard/internal/model"
	"github.com/taskboard/taskboard/internal/repository"
)

// TaskService scopes every task operation to the caller's own rows.
// ownerID always comes from the verified request identity, never from
// client input.
type TaskService struct {
	store   TaskStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateTaskInput defines input for creating a task.
// It deliberately has no ID or owner field.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string // empty means TODO
}

// Create validates input and stores a new task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID string, input CreateTaskInput) (*model.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	errs := fieldErrors{}
	title := validateTitle(errs, input.Title)
	description := validateDescription(errs, input.Description)
	status := model.TaskStatusTodo
	if input.Status != "" {
		status = validateStatus(errs, input.Status)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	now := s.timestamp()
	task := &model.Task{
		ID:          ulid.Make().String(),
		Title:       title,
		Description: description,
		Status:      status,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.metrics.IncTaskCreated()
	return task, nil
}

// Get returns the task if and only if ownerID owns it.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if !isTaskID(taskID) {
		return nil, ErrNotFound
	}

	task, err := s.store.GetTaskForOwner(ctx, taskID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListTasksInput defines input for listing tasks.
type ListTasksInput struct {
	// Status is an optional comma separated list of statuses.
	Status string
}

// List returns the caller's tasks, newest first.
func (s *TaskService) List(ctx context.Context, ownerID string, input ListTasksInput) ([]*model.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	errs := fieldErrors{}
	statuses := parseStatusFilter(errs, input.Status)
	if err := errs.err(); err != nil {
		return nil, err
	}

	tasks, err := s.store.ListTasksForOwner(ctx, ownerID, repository.TaskFilter{Statuses: statuses})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTaskInput defines input for updating a task. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
}

// Update applies a patch to a task owned by ownerID.
// Input is validated before any store access.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, input UpdateTaskInput) (*model.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	patch, err := buildPatch(input)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	updated := patch.Apply(*current, s.timestamp())
	if err := s.store.UpdateTaskForOwner(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.metrics.IncTaskUpdated()
	return &updated, nil
}

// Remove deletes a task owned by ownerID and returns its ID.
func (s *TaskService) Remove(ctx context.Context, ownerID, taskID string) (string, error) {
	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return "", err
	}

	if err := s.store.DeleteTaskForOwner(ctx, task.ID, ownerID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to delete task: %w", err)
	}

	s.metrics.IncTaskDeleted()
	return task.ID, nil
}

// Count returns the total number of stored tasks.
func (s *TaskService) Count(ctx context.Context) (int64, error) {
	return s.store.CountTasks(ctx)
}

func buildPatch(input UpdateTaskInput) (model.TaskPatch, error) {
	var patch model.TaskPatch
	errs := fieldErrors{}

	if input.Title != nil {
		title := validateTitle(errs, *input.Title)
		patch.Title = &title
	}
	if input.Description != nil {
		description := validateDescription(errs, *input.Description)
		patch.Description = &description
	}
	if input.Status != nil {
		status := validateStatus(errs, *input.Status)
		patch.Status = &status
	}

	return patch, errs.err()
}

// timestamp matches the microsecond precision of PostgreSQL timestamptz so
// both stores order identically.
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
