package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/analytics"
	"github.com/nulzo/ollama-openai-proxy/internal/logger"
	"github.com/nulzo/ollama-openai-proxy/internal/proxyerr"
	"github.com/nulzo/ollama-openai-proxy/internal/server/middleware"
	"github.com/nulzo/ollama-openai-proxy/internal/server/validator"
	"github.com/nulzo/ollama-openai-proxy/internal/translate"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

type ChatHandler struct {
	client   *upstream.Client
	ingestor analytics.Ingestor
	log      *zap.Logger
}

func NewChatHandler(client *upstream.Client, ing analytics.Ingestor) *ChatHandler {
	return &ChatHandler{
		client:   client,
		ingestor: ing,
		log:      logger.Named("handler.chat"),
	}
}

// Chat serves POST /api/chat, unary or NDJSON streaming.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(&middleware.ValidationError{Fields: validator.ParseValidationError(err)})
		return
	}

	c.Set(middleware.ContextKeyModel, req.Model)
	upstreamReq := translate.ChatRequest(&req)

	if req.IsStream() {
		h.stream(c, &req, upstreamReq)
		return
	}

	rec := newRecorder(h.ingestor, c, req.Model, upstreamReq.Model)
	resp, err := h.client.CreateChatCompletion(c.Request.Context(), upstreamReq)
	if err != nil {
		rec.fail(upstream.Classify(err).StatusCode, err)
		_ = c.Error(err)
		return
	}

	out := translate.ChatResponse(resp, req.Model)
	rec.usage(out.PromptEvalCount, out.EvalCount)
	rec.finish(http.StatusOK, out.DoneReason)
	c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) stream(c *gin.Context, req *api.ChatRequest, upstreamReq *upstream.ChatRequest) {
	rec := newRecorder(h.ingestor, c, req.Model, upstreamReq.Model).streamed()

	stream, err := h.client.CreateChatCompletionStream(c.Request.Context(), upstreamReq)
	if err != nil {
		rec.fail(upstream.Classify(err).StatusCode, err)
		_ = c.Error(err)
		return
	}
	defer func() { _ = stream.Close() }()

	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.WriteHeader(http.StatusOK)

	translator := translate.NewChatStream(req.Model)
	enc := json.NewEncoder(c.Writer)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			final := translator.Final()
			rec.usage(final.PromptEvalCount, final.EvalCount)
			rec.finish(http.StatusOK, final.DoneReason)
			h.write(c, enc, final)
			return
		}
		if err != nil {
			rec.fail(upstream.Classify(err).StatusCode, err)
			h.write(c, enc, proxyerr.ChatErrorChunk(err, req.Model, middleware.CorrelationID(c)))
			return
		}

		if out := translator.Next(chunk); out != nil {
			if !h.write(c, enc, out) {
				rec.fail(0, c.Request.Context().Err())
				return
			}
		}
	}
}

func (h *ChatHandler) write(c *gin.Context, enc *json.Encoder, v any) bool {
	if err := enc.Encode(v); err != nil {
		h.log.Debug("client went away mid-stream", zap.Error(err))
		return false
	}
	c.Writer.Flush()
	return true
}
