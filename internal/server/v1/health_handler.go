package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/internal/version"
)

type HealthHandler struct {
	client    *upstream.Client
	startTime time.Time
	env       string
}

func NewHealthHandler(client *upstream.Client, env string) *HealthHandler {
	return &HealthHandler{
		client:    client,
		startTime: time.Now(),
		env:       env,
	}
}

// Health serves GET /health. A reachable proxy with an unreachable
// backend is degraded, not down: the response stays 200 so load
// balancers keep routing while operators investigate.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"

	probe := h.client.HealthCheck(c.Request.Context())
	if probe.Status != "healthy" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"version":        version.Proxy,
		"environment":    h.env,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"upstream": gin.H{
			"status":           probe.Status,
			"models_available": probe.ModelsAvailable,
			"request_count":    probe.RequestCount,
			"error_count":      probe.ErrorCount,
			"error_rate":       probe.ErrorRate,
		},
	})
}

// Ready serves GET /ready. Unlike /health it returns 503 until the
// upstream is actually reachable, so orchestrators hold traffic back.
func (h *HealthHandler) Ready(c *gin.Context) {
	probe := h.client.HealthCheck(c.Request.Context())
	if probe.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"reason":    "upstream service not healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ready",
		"version":        version.Proxy,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
