package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TasksCreated           uint64
	TasksUpdated           uint64
	TasksDeleted           uint64
	Registrations          uint64
	Logins                 map[string]uint64
	AuthFailures           map[string]uint64
	RateLimited            map[string]uint64
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and is used directly by tests.
type InMemoryRecorder struct {
	tasksCreated           uint64
	tasksUpdated           uint64
	tasksDeleted           uint64
	registrations          uint64
	requestDurationCount   uint64
	requestDurationTotalNs int64

	mu           sync.Mutex
	logins       map[string]uint64
	authFailures map[string]uint64
	rateLimited  map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:       make(map[string]uint64),
		authFailures: make(map[string]uint64),
		rateLimited:  make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	logins := copyCounts(m.logins)
	authFailures := copyCounts(m.authFailures)
	rateLimited := copyCounts(m.rateLimited)
	m.mu.Unlock()

	return Snapshot{
		TasksCreated:           atomic.LoadUint64(&m.tasksCreated),
		TasksUpdated:           atomic.LoadUint64(&m.tasksUpdated),
		TasksDeleted:           atomic.LoadUint64(&m.tasksDeleted),
		Registrations:          atomic.LoadUint64(&m.registrations),
		Logins:                 logins,
		AuthFailures:           authFailures,
		RateLimited:            rateLimited,
		RequestDurationCount:   atomic.LoadUint64(&m.requestDurationCount),
		RequestDurationTotalNs: atomic.LoadInt64(&m.requestDurationTotalNs),
	}
}

// IncTaskCreated increments task created counter.
func (m *InMemoryRecorder) IncTaskCreated() {
	atomic.AddUint64(&m.tasksCreated, 1)
}

// IncTaskUpdated increments task updated counter.
func (m *InMemoryRecorder) IncTaskUpdated() {
	atomic.AddUint64(&m.tasksUpdated, 1)
}

// IncTaskDeleted increments task deleted counter.
func (m *InMemoryRecorder) IncTaskDeleted() {
	atomic.AddUint64(&m.tasksDeleted, 1)
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin increments the login counter for result.
func (m *InMemoryRecorder) IncLogin(result string) {
	m.inc(m.logins, result)
}

// IncAuthFailure increments the auth gate rejection counter for reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.inc(m.authFailures, reason)
}

// IncRateLimited increments the throttled request counter for scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.inc(m.rateLimited, scope)
}

// ObserveRequestDuration records request duration.
func (m *InMemoryRecorder) ObserveRequestDuration(duration time.Duration) {
	atomic.AddUint64(&m.requestDurationCount, 1)
	atomic.AddInt64(&m.requestDurationTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
