package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ollama-openai-proxy/internal/version"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

type VersionHandler struct{}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// Version serves GET /api/version with the Ollama version the proxy
// emulates.
func (h *VersionHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, api.VersionResponse{Version: version.OllamaCompat})
}
