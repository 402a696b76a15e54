package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskboard/taskboard/internal/model"
	"github.com/taskboard/taskboard/internal/testutil"
)

func TestMemoryStore_Users(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	user := testutil.NewTestUser(t, "alice")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := testutil.NewTestUser(t, "other")
	dup.Email = user.Email
	if err := store.CreateUser(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("got user %s, want %s", byEmail.ID, user.ID)
	}

	if err := store.UpdateUserPasswordHash(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.PasswordHash != "new-hash" {
		t.Errorf("password hash not updated: %q", byID.PasswordHash)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.UpdateUserPasswordHash(ctx, "missing", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	task := testutil.NewTestTask(t, "owner", "original", time.Now())
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	task.Title = "mutated after insert"

	got, err := store.GetTaskForOwner(ctx, task.ID, "owner")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	got.OwnerID = "intruder"

	again, err := store.GetTaskForOwner(ctx, task.ID, "owner")
	if err != nil {
		t.Fatalf("get task again: %v", err)
	}
	if again.Title != "original" || again.OwnerID != "owner" {
		t.Errorf("stored task was aliased: %+v", again)
	}
}

func TestMemoryStore_OwnerScoping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	task := testutil.NewTestTask(t, "alice", "alice task", time.Now())
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := store.GetTaskForOwner(ctx, task.ID, "bob"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("get as bob: expected ErrTaskNotFound, got %v", err)
	}

	foreign := *task
	foreign.OwnerID = "bob"
	foreign.Title = "hijacked"
	if err := store.UpdateTaskForOwner(ctx, &foreign); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("update as bob: expected ErrTaskNotFound, got %v", err)
	}
	if err := store.DeleteTaskForOwner(ctx, task.ID, "bob"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("delete as bob: expected ErrTaskNotFound, got %v", err)
	}

	list, err := store.ListTasksForOwner(ctx, "bob", TaskFilter{})
	if err != nil {
		t.Fatalf("list as bob: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("bob should see no tasks, got %d", len(list))
	}

	got, err := store.GetTaskForOwner(ctx, task.ID, "alice")
	if err != nil {
		t.Fatalf("get as alice: %v", err)
	}
	if got.Title != "alice task" {
		t.Errorf("task modified by foreign update: %q", got.Title)
	}

	if err := store.DeleteTaskForOwner(ctx, task.ID, "alice"); err != nil {
		t.Fatalf("delete as alice: %v", err)
	}
	if _, err := store.GetTaskForOwner(ctx, task.ID, "alice"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_ListOrderingAndFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := testutil.NewTestTask(t, "owner", "first", base)
	t2 := testutil.NewTestTask(t, "owner", "second", base.Add(time.Minute))
	t3 := testutil.NewTestTask(t, "owner", "third", base.Add(2*time.Minute))
	t3.Status = model.TaskStatusDone
	other := testutil.NewTestTask(t, "someone-else", "other", base.Add(3*time.Minute))

	for _, task := range []*model.Task{t1, t2, t3, other} {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	all, err := store.ListTasksForOwner(ctx, "owner", TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	assertTaskOrder(t, all, t3.ID, t2.ID, t1.ID)

	done, err := store.ListTasksForOwner(ctx, "owner", TaskFilter{Statuses: []model.TaskStatus{model.TaskStatusDone}})
	if err != nil {
		t.Fatalf("list done: %v", err)
	}
	assertTaskOrder(t, done, t3.ID)

	count, err := store.CountTasks(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Errorf("CountTasks = %d, want 4", count)
	}
}

func TestMemoryStore_ListTieBreaksOnID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	a := testutil.NewTestTask(t, "owner", "a", now)
	b := testutil.NewTestTask(t, "owner", "b", now)
	a.ID, b.ID = "01A", "01B"

	for _, task := range []*model.Task{a, b} {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	list, err := store.ListTasksForOwner(ctx, "owner", TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	assertTaskOrder(t, list, "01B", "01A")
}

func assertTaskOrder(t *testing.T, tasks []*model.Task, ids ...string) {
	t.Helper()
	if len(tasks) != len(ids) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(ids))
	}
	for i, id := range ids {
		if tasks[i].ID != id {
			t.Errorf("tasks[%d] = %s, want %s", i, tasks[i].ID, id)
		}
	}
}
