package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ollama-openai-proxy/internal/proxyerr"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// ContextKeyModel lets handlers record which model a failed request was
// for, so the envelope can name it.
const ContextKeyModel = "model"

// ValidationError carries parsed field errors from request binding.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "request validation failed"
}

// ErrorHandler renders any error a handler attached via c.Error as the
// structured error envelope. Handlers that stream manage their own
// terminal chunks and never attach errors here.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		correlationID := CorrelationID(c)
		model := c.GetString(ContextKeyModel)

		if vErr, ok := err.(*ValidationError); ok {
			details := make(map[string]any, len(vErr.Fields))
			for k, v := range vErr.Fields {
				details[k] = v
			}
			envelope := &api.ErrorEnvelope{
				Error: api.ErrorDetails{
					Message: "Invalid request parameters.",
					Type:    "invalid_request_error",
					Code:    http.StatusBadRequest,
					Details: details,
				},
				CorrelationID: correlationID,
				CreatedAt:     time.Now().UTC().Format(time.RFC3339),
				Model:         model,
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, envelope)
			return
		}

		envelope, status := proxyerr.Translate(err, model, correlationID)
		c.AbortWithStatusJSON(status, envelope)
	}
}
