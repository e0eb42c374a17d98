package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// HealthHandler provides HTTP health check and metrics endpoints for the
// fraud ledger service.
type HealthHandler struct {
	service   string
	logger    *slog.Logger
	startTime time.Time
	timeout   time.Duration

	mu      sync.RWMutex
	checks  map[string]CheckFunc
	metrics http.Handler
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(service string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service:   service,
		logger:    logger,
		startTime: time.Now(),
		timeout:   2 * time.Second,
		checks:    make(map[string]CheckFunc),
	}
}

// AddCheck registers a readiness check under name.
func (h *HealthHandler) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// SetMetricsHandler exposes handler on /metrics.
func (h *HealthHandler) SetMetricsHandler(handler http.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics = handler
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the JSON response for readiness checks.
type ReadinessResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}

// RegisterRoutes registers health and metrics endpoints on the provided ServeMux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /metrics", h.Metrics)
}

// Healthz handles liveness checks.
func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.service,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readyz runs every registered check and reports 503 when any fails.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := ReadinessResponse{
		Status:  "ready",
		Service: h.service,
		Checks:  make(map[string]string, len(names)),
	}
	code := http.StatusOK

	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			h.logger.Warn("readiness check failed",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	h.writeJSON(w, code, resp)
}

// Metrics serves the Prometheus scrape endpoint, or 404 when metrics are off.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	handler := h.metrics
	h.mu.RUnlock()

	if handler == nil {
		http.NotFound(w, r)
		return
	}
	handler.ServeHTTP(w, r)
}

func (h *HealthHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", slog.String("error", err.Error()))
	}
}
