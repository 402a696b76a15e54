package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskboard/taskboard/internal/model"
)

func strPtr(s string) *string { return &s }

func TestTaskService_CreateDefaultsAndOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.tasks.Create(ctx, "user-1", CreateTaskInput{Title: "  buy milk  ", Description: "2%"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if task.ID == "" {
		t.Error("expected server-assigned ID")
	}
	if task.OwnerID != "user-1" {
		t.Errorf("OwnerID = %q, want user-1", task.OwnerID)
	}
	if task.Title != "buy milk" {
		t.Errorf("Title = %q, want trimmed title", task.Title)
	}
	if task.Status != model.TaskStatusTodo {
		t.Errorf("Status = %q, want TODO", task.Status)
	}
	if task.CreatedAt.IsZero() || !task.CreatedAt.Equal(task.UpdatedAt) {
		t.Errorf("unexpected timestamps: %v / %v", task.CreatedAt, task.UpdatedAt)
	}
	if env.recorder.Snapshot().TasksCreated != 1 {
		t.Error("expected TasksCreated metric")
	}
}

func TestTaskService_CreateLegacyStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	task, err := env.tasks.Create(context.Background(), "user-1", CreateTaskInput{Title: "x", Status: "in-progress"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != model.TaskStatusInProgress {
		t.Errorf("Status = %q, want IN_PROGRESS", task.Status)
	}
}

func TestTaskService_CreateValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name      string
		input     CreateTaskInput
		wantField string
	}{
		{"missing title", CreateTaskInput{}, "title"},
		{"blank title", CreateTaskInput{Title: "   "}, "title"},
		{"long title", CreateTaskInput{Title: strings.Repeat("a", 201)}, "title"},
		{"long description", CreateTaskInput{Title: "x", Description: strings.Repeat("d", 2001)}, "description"},
		{"bad status", CreateTaskInput{Title: "x", Status: "BLOCKED"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tasks.Create(context.Background(), "user-1", tt.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("expected error on %q, got %v", tt.wantField, verr.Fields)
			}
		})
	}

	count, _ := env.store.CountTasks(context.Background())
	if count != 0 {
		t.Errorf("invalid input must not reach the store, found %d tasks", count)
	}
}

func TestTaskService_RequiresOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.tasks.Create(ctx, "", CreateTaskInput{Title: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Create: expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.tasks.List(ctx, "", ListTasksInput{}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("List: expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.tasks.Get(ctx, "", "id"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Get: expected ErrUnauthorized, got %v", err)
	}
}

func TestTaskService_CrossUserIsolation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.tasks.Create(ctx, "alice", CreateTaskInput{Title: "secret"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, foreignErr := env.tasks.Get(ctx, "bob", task.ID)
	_, missingErr := env.tasks.Get(ctx, "bob", "does-not-exist")
	if !errors.Is(foreignErr, ErrNotFound) || !errors.Is(missingErr, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for both, got %v and %v", foreignErr, missingErr)
	}
	if foreignErr.Error() != missingErr.Error() {
		t.Errorf("foreign and missing must be indistinguishable: %q vs %q", foreignErr, missingErr)
	}

	if _, err := env.tasks.Update(ctx, "bob", task.ID, UpdateTaskInput{Title: strPtr("pwned")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update as bob: expected ErrNotFound, got %v", err)
	}
	if _, err := env.tasks.Remove(ctx, "bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove as bob: expected ErrNotFound, got %v", err)
	}

	list, err := env.tasks.List(ctx, "bob", ListTasksInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("bob should see no tasks, got %d", len(list))
	}

	got, err := env.tasks.Get(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("Get as alice failed: %v", err)
	}
	if got.Title != "secret" {
		t.Errorf("task was modified by another user: %q", got.Title)
	}
}

func TestTaskService_ListNewestFirst(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.tasks.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	t1, err := env.tasks.Create(ctx, "owner", CreateTaskInput{Title: "T1"})
	if err != nil {
		t.Fatalf("Create T1 failed: %v", err)
	}
	t2, err := env.tasks.Create(ctx, "owner", CreateTaskInput{Title: "T2", Status: "DONE"})
	if err != nil {
		t.Fatalf("Create T2 failed: %v", err)
	}

	list, err := env.tasks.List(ctx, "owner", ListTasksInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != t2.ID || list[1].ID != t1.ID {
		t.Fatalf("expected [T2, T1], got %v", titles(list))
	}

	done, err := env.tasks.List(ctx, "owner", ListTasksInput{Status: "done"})
	if err != nil {
		t.Fatalf("List done failed: %v", err)
	}
	if len(done) != 1 || done[0].ID != t2.ID {
		t.Errorf("expected [T2], got %v", titles(done))
	}

	if _, err := env.tasks.List(ctx, "owner", ListTasksInput{Status: "TODO,nope"}); err == nil {
		t.Error("expected validation error for unknown status filter")
	}
}

func TestTaskService_ListSameInstant(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.tasks.now = func() time.Time { return frozen }

	t1, _ := env.tasks.Create(ctx, "owner", CreateTaskInput{Title: "T1"})
	t2, _ := env.tasks.Create(ctx, "owner", CreateTaskInput{Title: "T2"})

	list, err := env.tasks.List(ctx, "owner", ListTasksInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != t2.ID || list[1].ID != t1.ID {
		t.Errorf("expected [T2, T1] on identical timestamps, got %v", titles(list))
	}
}

func TestTaskService_UpdatePatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.tasks.Create(ctx, "owner", CreateTaskInput{Title: "write docs", Description: "api"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := env.tasks.Update(ctx, "owner", task.ID, UpdateTaskInput{Status: strPtr("DONE")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != model.TaskStatusDone {
		t.Errorf("Status = %q, want DONE", updated.Status)
	}
	if updated.Title != "write docs" || updated.Description != "api" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if updated.ID != task.ID || updated.OwnerID != task.OwnerID || !updated.CreatedAt.Equal(task.CreatedAt) {
		t.Errorf("identity changed: %+v", updated)
	}

	// Free transitions in any direction.
	back, err := env.tasks.Update(ctx, "owner", task.ID, UpdateTaskInput{Status: strPtr("TODO")})
	if err != nil {
		t.Fatalf("Update back failed: %v", err)
	}
	if back.Status != model.TaskStatusTodo {
		t.Errorf("Status = %q, want TODO", back.Status)
	}

	stored, err := env.tasks.Get(ctx, "owner", task.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != model.TaskStatusTodo {
		t.Errorf("stored status = %q, want TODO", stored.Status)
	}
	if env.recorder.Snapshot().TasksUpdated != 2 {
		t.Errorf("TasksUpdated = %d, want 2", env.recorder.Snapshot().TasksUpdated)
	}
}

func TestTaskService_UpdateValidatesFirst(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// Invalid input is reported even for a task that does not exist.
	_, err := env.tasks.Update(context.Background(), "owner", "missing", UpdateTaskInput{Title: strPtr("")})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTaskService_UpdateEmptyPatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	task, _ := env.tasks.Create(ctx, "owner", CreateTaskInput{Title: "x"})
	got, err := env.tasks.Update(ctx, "owner", task.ID, UpdateTaskInput{})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Error("empty patch should not bump updated_at")
	}
}

func TestTaskService_Remove(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	task, _ := env.tasks.Create(ctx, "owner", CreateTaskInput{Title: "x"})

	id, err := env.tasks.Remove(ctx, "owner", task.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if id != task.ID {
		t.Errorf("Remove returned %q, want %q", id, task.ID)
	}

	if _, err := env.tasks.Get(ctx, "owner", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
	if _, err := env.tasks.Remove(ctx, "owner", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove: expected ErrNotFound, got %v", err)
	}

	count, err := env.tasks.Count(ctx)
	if err != nil || count != 0 {
		t.Errorf("Count = %d, %v; want 0", count, err)
	}
}

func titles(tasks []*model.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}
