package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/cache"
	"github.com/nulzo/ollama-openai-proxy/internal/logger"
	"github.com/nulzo/ollama-openai-proxy/internal/translate"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// tagsCacheKey is the single key translated listings live under; the
// catalog is global, not per-client.
const tagsCacheKey = "models:tags"

type TagsHandler struct {
	client *upstream.Client
	cache  cache.CacheService
	ttl    time.Duration
	log    *zap.Logger
}

func NewTagsHandler(client *upstream.Client, c cache.CacheService, ttl time.Duration) *TagsHandler {
	return &TagsHandler{
		client: client,
		cache:  c,
		ttl:    ttl,
		log:    logger.Named("handler.tags"),
	}
}

// List serves GET /api/tags.
func (h *TagsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached api.TagsResponse
		if err := h.cache.Get(ctx, tagsCacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	list, err := h.client.ListModels(ctx)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := translate.Tags(list)

	if h.cache != nil {
		if err := h.cache.Set(ctx, tagsCacheKey, resp, h.ttl); err != nil {
			h.log.Warn("failed to cache model listing", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, resp)
}
