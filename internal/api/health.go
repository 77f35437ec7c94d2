package api

import (
	"net/http"
	"time"

	"github.com/tsuzuri-app/tsuzuri/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// BindServiceHealth allows run.go to inject the aggregate health function.
var serviceIsHealthy func() bool = func() bool { return false }

func BindServiceHealth(f func() bool) { serviceIsHealthy = f }

// BindComponentHealth allows run.go to inject per-component states for the
// response body. Optional; the handler omits the map when unbound.
var componentHealth func() map[string]bool

func BindComponentHealth(f func() map[string]bool) { componentHealth = f }

// CheckHealth handles GET /api/health
// Returns 200 when every required dependency is reachable, 503 otherwise.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	healthy := serviceIsHealthy()

	status := "unhealthy"
	code := http.StatusServiceUnavailable
	if healthy {
		status = "healthy"
		code = http.StatusOK
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if componentHealth != nil {
		response["components"] = componentHealth()
	}
	respond.WriteJSON(w, code, response)
}
