package service

import (
	"testing"
	"time"

	"github.com/taskboard/taskboard/internal/auth"
	"github.com/taskboard/taskboard/internal/metrics"
	"github.com/taskboard/taskboard/internal/repository"
)

// cheapParams keeps Argon2 fast in tests.
var cheapParams = auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type testEnv struct {
	store    *repository.MemoryStore
	recorder *metrics.InMemoryRecorder
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	tasks    *TaskService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}

	store := repository.NewMemoryStore()
	recorder := metrics.NewInMemory()
	hasher := auth.NewPasswordHasher(cheapParams)

	return &testEnv{
		store:    store,
		recorder: recorder,
		hasher:   hasher,
		tokens:   tokens,
		tasks:    NewTaskService(store, recorder),
		auth:     NewAuthService(store, hasher, tokens, recorder, nil),
	}
}
