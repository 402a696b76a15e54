// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Task management metrics
	IncTaskCreated()
	IncTaskUpdated()
	IncTaskDeleted()

	// Account metrics
	IncRegistration()
	IncLogin(result string) // result: "success" or "failure"

	// Auth gate and throttling metrics
	IncAuthFailure(reason string) // reason: "missing_token", "expired", "bad_signature", "malformed"
	IncRateLimited(scope string)  // scope: "login" or "register"

	// HTTP metrics
	ObserveRequestDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
