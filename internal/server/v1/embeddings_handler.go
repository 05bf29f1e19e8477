package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ollama-openai-proxy/internal/analytics"
	"github.com/nulzo/ollama-openai-proxy/internal/server/middleware"
	"github.com/nulzo/ollama-openai-proxy/internal/server/validator"
	"github.com/nulzo/ollama-openai-proxy/internal/translate"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

type EmbeddingsHandler struct {
	client   *upstream.Client
	ingestor analytics.Ingestor
}

func NewEmbeddingsHandler(client *upstream.Client, ing analytics.Ingestor) *EmbeddingsHandler {
	return &EmbeddingsHandler{
		client:   client,
		ingestor: ing,
	}
}

// Embed serves POST /api/embeddings and its alias POST /api/embed.
func (h *EmbeddingsHandler) Embed(c *gin.Context) {
	var req api.EmbeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(&middleware.ValidationError{Fields: validator.ParseValidationError(err)})
		return
	}

	c.Set(middleware.ContextKeyModel, req.Model)
	upstreamReq := translate.EmbeddingsRequest(&req)

	rec := newRecorder(h.ingestor, c, req.Model, upstreamReq.Model)
	resp, err := h.client.CreateEmbedding(c.Request.Context(), upstreamReq)
	if err != nil {
		rec.fail(upstream.Classify(err).StatusCode, err)
		_ = c.Error(err)
		return
	}

	if resp.Usage != nil {
		rec.usage(resp.Usage.PromptTokens, 0)
	}
	rec.finish(http.StatusOK, "")
	c.JSON(http.StatusOK, translate.EmbeddingsResponse(resp))
}
