package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Checker reports whether one dependency is reachable
type Checker func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks map[string]Checker
	logger *slog.Logger
}

// NewHealthHandler creates a health handler probing the given dependencies.
// A nil checker reports "not configured" without failing readiness.
func NewHealthHandler(checks map[string]Checker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthHandler{
		checks: checks,
		logger: logger,
	}
}

// HealthResponse represents the health status response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Routes registers /healthz and /readyz
func (h *HealthHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)
}

// Health handles GET /healthz - simple liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz - returns 200 only if all dependencies are healthy
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	allHealthy := true
	attrs := make([]any, 0, len(names)+1)
	for _, name := range names {
		check := h.checks[name]
		switch {
		case check == nil:
			checks[name] = "not configured"
		default:
			if err := check(ctx); err != nil {
				checks[name] = "error: " + err.Error()
				allHealthy = false
			} else {
				checks[name] = "ok"
			}
		}
		attrs = append(attrs, slog.String(name, checks[name]))
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, ReadinessResponse{Status: status, Checks: checks})

	h.logger.Debug("readiness check", append([]any{slog.String("status", status)}, attrs...)...)
}
