package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/nulzo/ollama-openai-proxy/internal/httpclient"
)

// ErrorKind is the closed classification of upstream failures. Anything the
// classifier does not recognize folds into KindInternal.
type ErrorKind string

const (
	KindRateLimit  ErrorKind = "rate_limit_error"
	KindAuth       ErrorKind = "authentication_error"
	KindNotFound   ErrorKind = "model_not_found"
	KindBadRequest ErrorKind = "invalid_request_error"
	KindPermission ErrorKind = "permission_denied"
	KindConflict   ErrorKind = "conflict_error"
	KindValidation ErrorKind = "validation_error"
	KindInternal   ErrorKind = "internal_server_error"
	KindConnection ErrorKind = "connection_error"
	KindTimeout    ErrorKind = "timeout_error"
)

// APIError is the single error type the rest of the proxy sees for upstream
// failures.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	// seconds, populated from Retry-After on rate limits
	RetryAfter int
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream %s (%d)", e.Kind, e.StatusCode)
}

// Retryable reports whether the failure is inherently transient:
// connection, timeout, rate limit, or a 5xx.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindConnection, KindTimeout, KindRateLimit:
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Retryable is the classifier handed to the retry executor.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// Classify folds any failure from the HTTP layer into an *APIError. Status
// codes map one-to-one onto kinds; transport-level failures split into
// timeout and connection.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var upErr *httpclient.UpstreamError
	if errors.As(err, &upErr) {
		return classifyStatus(upErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindTimeout, StatusCode: 504, Message: "request deadline exceeded"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{Kind: KindTimeout, StatusCode: 504, Message: "request timed out"}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &APIError{Kind: KindConnection, StatusCode: 503, Message: "upstream connection closed unexpectedly"}
	}

	if errors.Is(err, context.Canceled) {
		return &APIError{Kind: KindConnection, StatusCode: 503, Message: "request cancelled"}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &APIError{Kind: KindConnection, StatusCode: 503, Message: "failed to connect to the upstream service"}
	}

	// url.Error and friends wrap the transport failure; a request that
	// never produced a status code is a connection problem
	if isTransportError(err) {
		return &APIError{Kind: KindConnection, StatusCode: 503, Message: "failed to connect to the upstream service"}
	}

	return &APIError{Kind: KindInternal, StatusCode: 500, Message: err.Error()}
}

func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func classifyStatus(upErr *httpclient.UpstreamError) *APIError {
	apiErr := &APIError{
		StatusCode: upErr.StatusCode,
		Message:    parseErrorMessage(upErr.Body),
		RetryAfter: upErr.RetryAfter,
	}

	switch {
	case upErr.StatusCode == 429:
		apiErr.Kind = KindRateLimit
	case upErr.StatusCode == 401:
		apiErr.Kind = KindAuth
	case upErr.StatusCode == 403:
		apiErr.Kind = KindPermission
	case upErr.StatusCode == 404:
		apiErr.Kind = KindNotFound
	case upErr.StatusCode == 409:
		apiErr.Kind = KindConflict
	case upErr.StatusCode == 422:
		apiErr.Kind = KindValidation
	case upErr.StatusCode == 408 || upErr.StatusCode == 504:
		apiErr.Kind = KindTimeout
	case upErr.StatusCode >= 500:
		apiErr.Kind = KindInternal
	default:
		apiErr.Kind = KindBadRequest
	}
	return apiErr
}

// parseErrorMessage pulls the human-readable message from an OpenAI error
// body, falling back to the raw payload when it does not parse.
func parseErrorMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	const maxRaw = 200
	if len(body) > maxRaw {
		body = body[:maxRaw]
	}
	return string(body)
}
