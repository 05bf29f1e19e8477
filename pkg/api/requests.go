package api

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	// the model to run, e.g. "gpt-4o" or an alias like "llama2"
	Model string `json:"model" binding:"required"`

	Prompt string `json:"prompt" binding:"required"`

	// optional system prompt, prepended as a system message upstream
	System string `json:"system,omitempty"`

	// Ollama streams by default; a nil pointer means "not specified"
	Stream *bool `json:"stream,omitempty"`

	// sampling options (temperature, top_p, seed, num_predict, stop).
	// Unknown keys are dropped during translation.
	Options map[string]any `json:"options,omitempty"`

	// output format hint, e.g. "json"
	Format string `json:"format,omitempty"`

	Raw bool `json:"raw,omitempty"`

	// opaque continuation tokens from a previous turn
	Context []int `json:"context,omitempty"`

	Images []string `json:"images,omitempty"`
}

// IsStream reports whether the client asked for a streaming response.
// Absent means streaming, matching Ollama's default.
func (r *GenerateRequest) IsStream() bool {
	return r.Stream == nil || *r.Stream
}

// ChatMessage is one turn in a chat conversation.
type ChatMessage struct {
	Role    string   `json:"role" binding:"required,oneof=system user assistant"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string         `json:"model" binding:"required"`
	Messages []ChatMessage  `json:"messages" binding:"required,min=1,dive"`
	Stream   *bool          `json:"stream,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
	Format   string         `json:"format,omitempty"`
}

// IsStream reports whether the client asked for a streaming response.
func (r *ChatRequest) IsStream() bool {
	return r.Stream == nil || *r.Stream
}

// EmbeddingsRequest is the body of POST /api/embeddings (and /api/embed).
// Sampling options are accepted for wire compatibility but have no effect;
// embeddings have no sampling semantics.
type EmbeddingsRequest struct {
	Model   string         `json:"model" binding:"required"`
	Prompt  string         `json:"prompt" binding:"required"`
	Options map[string]any `json:"options,omitempty"`
}
