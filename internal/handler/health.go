package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// TaskCounter reports the number of stored tasks.
type TaskCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	tasks       TaskCounter
	db          HealthChecker
	cache       HealthChecker
	environment string
	version     string
	logger      *slog.Logger
	now         func() time.Time
}

// HealthConfig holds the dependencies of a HealthHandler.
// Pass nil for DB or Cache if they are not configured.
type HealthConfig struct {
	Tasks       TaskCounter
	DB          HealthChecker
	Cache       HealthChecker
	Environment string
	Version     string
	Logger      *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg HealthConfig) *HealthHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HealthHandler{
		tasks:       cfg.Tasks,
		db:          cfg.DB,
		cache:       cfg.Cache,
		environment: cfg.Environment,
		version:     cfg.Version,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	Environment string          `json:"environment"`
	Database    *DatabaseHealth `json:"database,omitempty"`
	API         *APIHealth      `json:"api,omitempty"`
}

// DatabaseHealth reports the store check done by GET /health.
type DatabaseHealth struct {
	Status    string `json:"status"`
	TaskCount int64  `json:"task_count"`
}

// APIHealth reports the running API version.
type APIHealth struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the body of GET /readyz.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health is the public health endpoint. It counts tasks to prove the store
// answers and always responds 200; a failing store is reported as
// status "error" without leaking the cause.
//
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:      "ok",
		Timestamp:   h.now().UTC(),
		Environment: h.environment,
	}

	var count int64
	var err error
	if h.tasks != nil {
		count, err = h.tasks.Count(ctx)
	}
	if err != nil {
		h.logger.Error("health check failed", "error", err)
		response.Status = "error"
		writeJSON(w, http.StatusOK, response)
		return
	}

	response.Database = &DatabaseHealth{Status: "ok", TaskCount: count}
	response.API = &APIHealth{Status: "ok", Version: h.version}
	writeJSON(w, http.StatusOK, response)
}

// Readyz is a readiness probe endpoint.
// It checks all dependencies and returns 200 only if all are healthy.
// For Kubernetes readiness probes - removes pod from LB if failing.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	check := func(name string, c HealthChecker) {
		if c == nil {
			checks[name] = "not configured"
			return
		}
		if err := c.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			checks[name] = "error"
			healthy = false
			return
		}
		checks[name] = "ok"
	}
	check("database", h.db)
	check("redis", h.cache)

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Status: status,
		Checks: checks,
	})
}
