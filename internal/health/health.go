// Package health provides liveness and readiness endpoints for the
// celestial server's HTTP sidecar.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckFunc probes one dependency and returns an error when it is unhealthy
type CheckFunc func(ctx context.Context) error

// HealthCheck manages health check functionality.
type HealthCheck struct {
	checks map[string]CheckFunc
	logger *zap.Logger

	mu        sync.RWMutex
	ready     bool
	lastCheck time.Time
}

// NewHealthCheck creates a new HealthCheck instance. checks maps dependency
// names (e.g. "result_store", "ephemeris_store") to their probes.
func NewHealthCheck(checks map[string]CheckFunc, logger *zap.Logger) *HealthCheck {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthCheck{
		checks: checks,
		logger: logger,
	}
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// LivenessHandler handles GET /health requests.
// Returns 200 OK if the process is running.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status: "healthy",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler handles GET /ready requests.
// Returns 200 OK when all dependency probes pass.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make(map[string]string, len(hc.checks))
	var firstErr error
	for name, check := range hc.checks {
		if err := check(ctx); err != nil {
			results[name] = "unhealthy"
			if firstErr == nil {
				firstErr = err
			}
			hc.logger.Warn("readiness check failed",
				zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "healthy"
	}

	hc.mu.Lock()
	hc.ready = firstErr == nil
	hc.lastCheck = time.Now()
	hc.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if firstErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ReadinessResponse{
			Status: "not_ready",
			Checks: results,
			Error:  firstErr.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ReadinessResponse{
		Status: "ready",
		Checks: results,
	})
}

// IsReady returns the readiness recorded by the most recent probe.
func (hc *HealthCheck) IsReady() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.ready
}
