package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/taskboard/taskboard/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "taskboard_tasks_created_total %d\n", snap.TasksCreated)
	writeMetric(w, "taskboard_tasks_updated_total %d\n", snap.TasksUpdated)
	writeMetric(w, "taskboard_tasks_deleted_total %d\n", snap.TasksDeleted)

	writeMetric(w, "taskboard_registrations_total %d\n", snap.Registrations)
	writeLabeled(w, "taskboard_logins_total", "result", snap.Logins)
	writeLabeled(w, "taskboard_auth_failures_total", "reason", snap.AuthFailures)
	writeLabeled(w, "taskboard_rate_limited_total", "scope", snap.RateLimited)

	writeMetric(w, "taskboard_http_request_duration_seconds_count %d\n", snap.RequestDurationCount)
	writeMetric(w, "taskboard_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)
}

// writeLabeled writes one line per label value in a stable order.
func writeLabeled(w http.ResponseWriter, name, label string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
