package httptransport

import (
	"context"
	"net/http"
	"time"

	"taskflow/pkg/platform/httputil"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Health runs the registered checks for /healthz.
type Health struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealth(timeout time.Duration) *Health {
	return &Health{checks: make(map[string]HealthCheck), timeout: timeout}
}

// Add registers a named check. Add must not be called once serving starts.
func (h *Health) Add(name string, check HealthCheck) {
	h.checks[name] = check
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
