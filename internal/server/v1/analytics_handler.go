package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ollama-openai-proxy/internal/analytics"
	"github.com/nulzo/ollama-openai-proxy/internal/server/middleware"
)

type AnalyticsHandler struct {
	service analytics.Service
}

func NewAnalyticsHandler(service analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
	}
}

// Daily serves GET /api/analytics/daily.
func (h *AnalyticsHandler) Daily(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		_ = c.Error(&middleware.ValidationError{Fields: map[string]string{"days": "must be an integer"}})
		return
	}

	stats, err := h.service.GetUsageOverview(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   stats,
	})
}

// Recent serves GET /api/analytics/recent.
func (h *AnalyticsHandler) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		_ = c.Error(&middleware.ValidationError{Fields: map[string]string{"limit": "must be an integer"}})
		return
	}

	logs, err := h.service.GetRecent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   logs,
	})
}
