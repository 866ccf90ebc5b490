package handlers

import (
	"net/http"
	"time"

	"github.com/upb/agent-gateway/app"
	"go.uber.org/zap"
)

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck reports process liveness
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessCheck reports whether the gateway can serve traffic, including a
// database round trip
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		status := "ok"
		code := http.StatusOK

		if err := deps.DB.HealthCheck(r.Context()); err != nil {
			deps.Logger.Error("readiness check failed", zap.Error(err))
			checks["database"] = "unavailable"
			status = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}

		respondJSON(w, code, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC(),
			Checks:    checks,
		})
	}
}
