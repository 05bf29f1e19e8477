package api

// GenerateResponse is both the unary response of POST /api/generate and, in
// streaming mode, one newline-delimited chunk of its response body. Exactly
// one chunk in a stream has Done set, and it is always the last one.
type GenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`

	// only present on the final record
	DoneReason string `json:"done_reason,omitempty"`
	Context    []int  `json:"context,omitempty"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`

	// set on a synthesized terminal chunk when the upstream stream failed
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// ChatResponse mirrors GenerateResponse for the chat endpoint; the text
// lives in a message object instead of a flat response field.
type ChatResponse struct {
	Model     string      `json:"model"`
	CreatedAt string      `json:"created_at"`
	Message   ChatMessage `json:"message"`
	Done      bool        `json:"done"`

	DoneReason string `json:"done_reason,omitempty"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`

	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// EmbeddingsResponse carries the upstream vector through unmodified.
type EmbeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}
