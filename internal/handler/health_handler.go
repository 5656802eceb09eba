// Package handler provides HTTP request handlers for the application.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 3 * time.Second

// Check probes one collaborator for readiness.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler handles the status and health check endpoints.
type HealthHandler struct {
	version    string
	strategies []string
	checks     []Check
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(version string, strategies []string, checks ...Check) *HealthHandler {
	return &HealthHandler{
		version:    version,
		strategies: strategies,
		checks:     checks,
	}
}

// Status reports that the service is online.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "online",
		"version":    h.version,
		"strategies": h.strategies,
	})
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks every configured collaborator.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	body := gin.H{"status": "UP", "time": time.Now()}
	status := http.StatusOK

	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			body[check.Name] = "unhealthy"
			body["status"] = "DOWN"
			body["error"] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		body[check.Name] = "healthy"
	}

	c.JSON(status, body)
}
