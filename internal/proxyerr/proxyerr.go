// Package proxyerr translates upstream failures into the error envelopes
// Ollama clients understand, and owns correlation-id handling.
package proxyerr

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/logger"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// HeaderCorrelationID is the canonical tracking header; HeaderRequestID is
// accepted as a fallback for clients that send it instead.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
)

// GenerateCorrelationID mints a fresh tracking token.
func GenerateCorrelationID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// FromHeaders returns the inbound correlation id, minting one when the
// client did not provide any.
func FromHeaders(h http.Header) string {
	if id := h.Get(HeaderCorrelationID); id != "" {
		return id
	}
	if id := h.Get(HeaderRequestID); id != "" {
		return id
	}
	return GenerateCorrelationID()
}

// Translate builds the client-facing error envelope for any failure and
// returns it with the HTTP status to respond with. Messages are canned per
// kind so upstream internals never leak to clients; the model-not-found
// message names the model the client asked for.
func Translate(err error, model, correlationID string) (*api.ErrorEnvelope, int) {
	if correlationID == "" {
		correlationID = GenerateCorrelationID()
	}

	apiErr := upstream.Classify(err)
	message, status := describe(apiErr, model)

	envelope := &api.ErrorEnvelope{
		Error: api.ErrorDetails{
			Message: message,
			Type:    string(apiErr.Kind),
			Code:    status,
		},
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Model:         model,
	}
	if apiErr.Kind == upstream.KindRateLimit && apiErr.RetryAfter > 0 {
		envelope.Error.Details = map[string]any{"retry_after": apiErr.RetryAfter}
	}

	logger.Named("proxyerr").Error("translated upstream error",
		zap.String("error_type", string(apiErr.Kind)),
		zap.Int("status_code", status),
		zap.String("model", model),
		zap.String("correlation_id", correlationID),
		zap.Error(err),
	)
	return envelope, status
}

func describe(apiErr *upstream.APIError, model string) (string, int) {
	switch apiErr.Kind {
	case upstream.KindRateLimit:
		return "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests
	case upstream.KindAuth:
		return "Authentication failed. Please check your API key.", http.StatusUnauthorized
	case upstream.KindNotFound:
		if model == "" {
			model = "requested"
		}
		return fmt.Sprintf("The model '%s' does not exist or you do not have access to it.", model), http.StatusNotFound
	case upstream.KindBadRequest:
		return "Invalid request parameters.", http.StatusBadRequest
	case upstream.KindPermission:
		return "Permission denied. You do not have access to this resource.", http.StatusForbidden
	case upstream.KindConflict:
		return "Request conflicts with current state.", http.StatusConflict
	case upstream.KindValidation:
		return "Request validation failed.", http.StatusUnprocessableEntity
	case upstream.KindConnection:
		return "Failed to connect to the API service.", http.StatusServiceUnavailable
	case upstream.KindTimeout:
		return "Request timed out.", http.StatusGatewayTimeout
	}
	return "An internal server error occurred.", http.StatusInternalServerError
}

// GenerateErrorChunk synthesizes the terminal record for a completion
// stream that failed mid-sequence. The transport writes it and closes; the
// client always sees a well-formed final chunk instead of a dropped
// connection.
func GenerateErrorChunk(err error, model, correlationID string) *api.GenerateResponse {
	envelope, _ := Translate(err, model, correlationID)
	return &api.GenerateResponse{
		Model:         model,
		CreatedAt:     envelope.CreatedAt,
		Response:      "",
		Done:          true,
		DoneReason:    "error",
		Error:         envelope.Error.Message,
		CorrelationID: envelope.CorrelationID,
	}
}

// ChatErrorChunk mirrors GenerateErrorChunk for chat streams.
func ChatErrorChunk(err error, model, correlationID string) *api.ChatResponse {
	envelope, _ := Translate(err, model, correlationID)
	return &api.ChatResponse{
		Model:         model,
		CreatedAt:     envelope.CreatedAt,
		Message:       api.ChatMessage{Role: "assistant", Content: ""},
		Done:          true,
		DoneReason:    "error",
		Error:         envelope.Error.Message,
		CorrelationID: envelope.CorrelationID,
	}
}
