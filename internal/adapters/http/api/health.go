// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status   string `json:"status"`
	Degraded bool   `json:"degraded"`
}

// HandleHealth handles GET /healthz requests. A degraded registry still
// reports healthy; valuations keep flowing on the heuristic path.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if !h.deps.Ready() {
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrUnhealthy)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "healthy",
		Degraded: h.deps.Degraded(),
	})
}
