// Package v1 contains the endpoint handlers for the Ollama-compatible
// HTTP surface.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nulzo/ollama-openai-proxy/internal/analytics"
	"github.com/nulzo/ollama-openai-proxy/internal/server/middleware"
	"github.com/nulzo/ollama-openai-proxy/internal/store/model"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
)

// recorder accumulates the facts of one proxied request and hands the
// finished record to the analytics ingestor. A nil ingestor disables
// recording.
type recorder struct {
	ingestor analytics.Ingestor
	log      model.RequestLog
	start    time.Time
}

func newRecorder(ing analytics.Ingestor, c *gin.Context, clientModel, upstreamModel string) *recorder {
	return &recorder{
		ingestor: ing,
		start:    time.Now(),
		log: model.RequestLog{
			ID:              uuid.NewString(),
			CorrelationID:   middleware.CorrelationID(c),
			Endpoint:        c.FullPath(),
			ModelID:         clientModel,
			UpstreamModelID: upstreamModel,
		},
	}
}

func (r *recorder) streamed() *recorder {
	r.log.IsStreamed = true
	return r
}

func (r *recorder) usage(promptTokens, completionTokens int) {
	r.log.InputTokens = promptTokens
	r.log.OutputTokens = completionTokens
}

func (r *recorder) finish(statusCode int, finishReason string) {
	r.log.StatusCode = statusCode
	r.log.FinishReason = finishReason
	r.commit()
}

func (r *recorder) fail(statusCode int, err error) {
	r.log.StatusCode = statusCode
	if err != nil {
		r.log.ErrorKind = string(upstream.Classify(err).Kind)
	}
	r.commit()
}

func (r *recorder) commit() {
	if r.ingestor == nil {
		return
	}
	r.log.LatencyMS = time.Since(r.start).Milliseconds()
	r.log.CreatedAt = time.Now().UTC()
	r.ingestor.Log(&r.log)
}
