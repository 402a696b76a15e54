package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taskboard/taskboard/internal/cache"
)

// countingLimiter allows limit calls per scope and rejects the rest.
type countingLimiter struct {
	mu    sync.Mutex
	limit int
	calls map[string]int
}

func (c *countingLimiter) CheckAuthRateLimit(_ context.Context, scope, _ string, _, _ int) (*cache.RateLimitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[scope]++
	if c.calls[scope] > c.limit {
		return &cache.RateLimitResult{Allowed: false, RetryAfter: 30 * time.Second, ResetAt: time.Now().Add(30 * time.Second)}, nil
	}
	return &cache.RateLimitResult{Allowed: true, Remaining: int64(c.limit - c.calls[scope]), ResetAt: time.Now().Add(time.Minute)}, nil
}

func TestAuthEndpoints_AreThrottled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimitAuthEnabled = true
	cfg.RateLimitAuthPerMinute = 10
	cfg.RateLimitAuthBurst = 2

	limiter := &countingLimiter{limit: 2, calls: make(map[string]int)}
	app := newTestApp(t, cfg, func(d Deps) Deps {
		d.Limiter = limiter
		return d
	})
	app.register(t, "u@x.com", "pw")

	body := `{"email":"u@x.com","password":"wrong"}`
	for i := 0; i < 2; i++ {
		if got := app.do(t, http.MethodPost, "/auth/login", "", body).Code; got != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d, want 401", i+1, got)
		}
	}

	rec := app.do(t, http.MethodPost, "/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q, want 30", rec.Header().Get("Retry-After"))
	}
	if got := app.recorder.Snapshot().RateLimited[ScopeLogin]; got != 1 {
		t.Errorf("RateLimited[login] = %d, want 1", got)
	}

	// Register has its own bucket; one call was spent above.
	if got := app.do(t, http.MethodPost, "/auth/register", "", `{"email":"v@x.com","password":"pw"}`).Code; got != http.StatusCreated {
		t.Errorf("register: status %d, want 201", got)
	}
	// Task routes are never throttled by the credential limiter.
	if calls := limiter.calls[ScopeLogin] + limiter.calls[ScopeRegister]; calls != 5 {
		t.Errorf("limiter calls = %d, want 5", calls)
	}
}

// ipLimiter records the client IP of every check and always allows.
type ipLimiter struct {
	mu  sync.Mutex
	ips []string
}

func (l *ipLimiter) CheckAuthRateLimit(_ context.Context, _, ip string, limit, _ int) (*cache.RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ips = append(l.ips, ip)
	return &cache.RateLimitResult{Allowed: true, Remaining: int64(limit), ResetAt: time.Now().Add(time.Minute)}, nil
}

func TestAuthThrottle_ForwardedHeadersNeedTrustedProxy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trusted string
		want    []string
	}{
		{"untrusted peer keeps its address", "", []string{"192.0.2.1", "192.0.2.1"}},
		{"other proxy range", "10.0.0.0/8", []string{"192.0.2.1", "192.0.2.1"}},
		{"trusted proxy range", "192.0.2.0/24", []string{"203.0.113.7", "203.0.113.8"}},
		{"trusted proxy address", "192.0.2.1", []string{"203.0.113.7", "203.0.113.8"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			cfg.RateLimitAuthEnabled = true
			cfg.RateLimitAuthPerMinute = 10
			cfg.RateLimitAuthBurst = 5
			cfg.TrustedProxies = tt.trusted

			limiter := &ipLimiter{}
			app := newTestApp(t, cfg, func(d Deps) Deps {
				d.Limiter = limiter
				return d
			})

			for _, forwarded := range []string{"203.0.113.7", "203.0.113.8"} {
				req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"x@x.com","password":"pw"}`))
				req.RemoteAddr = "192.0.2.1:4711"
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-Forwarded-For", forwarded)
				app.router.ServeHTTP(httptest.NewRecorder(), req)
			}

			if len(limiter.ips) != len(tt.want) {
				t.Fatalf("limiter saw %v, want %v", limiter.ips, tt.want)
			}
			for i := range tt.want {
				if limiter.ips[i] != tt.want[i] {
					t.Errorf("call %d ip = %q, want %q", i, limiter.ips[i], tt.want[i])
				}
			}
		})
	}
}
