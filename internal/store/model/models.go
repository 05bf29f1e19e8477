package model

import "time"

// RequestLog captures the full detail of a completed proxied request.
type RequestLog struct {
	ID            string `db:"id" json:"id"`
	CorrelationID string `db:"correlation_id" json:"correlation_id"`

	// inbound surface, e.g. "/api/generate"
	Endpoint string `db:"endpoint" json:"endpoint"`

	// the model the client asked for and the one actually sent upstream
	ModelID         string `db:"model_id" json:"model_id"`
	UpstreamModelID string `db:"upstream_model_id" json:"upstream_model_id"`

	FinishReason string `db:"finish_reason" json:"finish_reason"`
	InputTokens  int    `db:"input_tokens" json:"input_tokens"`
	OutputTokens int    `db:"output_tokens" json:"output_tokens"`
	LatencyMS    int64  `db:"latency_ms" json:"latency_ms"`
	StatusCode   int    `db:"status_code" json:"status_code"`

	// empty on success, the taxonomy kind on failure
	ErrorKind string `db:"error_kind" json:"error_kind,omitempty"`

	IsStreamed bool      `db:"is_streamed" json:"is_streamed"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DailyStats is one row of the per-day aggregation.
type DailyStats struct {
	Date          string  `db:"date" json:"date"`
	TotalRequests int64   `db:"total_requests" json:"total_requests"`
	TotalErrors   int64   `db:"total_errors" json:"total_errors"`
	TotalTokens   int64   `db:"total_tokens" json:"total_tokens"`
	AvgLatency    float64 `db:"avg_latency" json:"avg_latency"`
}
