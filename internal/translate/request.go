package translate

import (
	"github.com/nulzo/ollama-openai-proxy/internal/registry"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// GenerateRequest maps a completion request onto an upstream chat request.
// The prompt becomes a user message; a system prompt, when present, goes
// first. The model name is resolved through the alias table.
func GenerateRequest(req *api.GenerateRequest) *upstream.ChatRequest {
	out := &upstream.ChatRequest{
		Model: registry.Resolve(req.Model),
	}
	if req.System != "" {
		out.Messages = append(out.Messages, upstream.Message{Role: "system", Content: req.System})
	}
	out.Messages = append(out.Messages, upstream.Message{Role: "user", Content: req.Prompt})

	applyOptions(out, req.Options)
	applyFormat(out, req.Format)
	return out
}

// ChatRequest maps a chat request onto the upstream dialect. The message
// sequence carries over verbatim; image attachments are accepted on the
// wire but not forwarded.
func ChatRequest(req *api.ChatRequest) *upstream.ChatRequest {
	out := &upstream.ChatRequest{
		Model:    registry.Resolve(req.Model),
		Messages: make([]upstream.Message, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, upstream.Message{Role: m.Role, Content: m.Content})
	}

	applyOptions(out, req.Options)
	applyFormat(out, req.Format)
	return out
}

// EmbeddingsRequest maps an embeddings request upstream. Sampling options
// have no meaning for embeddings and are discarded.
func EmbeddingsRequest(req *api.EmbeddingsRequest) *upstream.EmbeddingRequest {
	return &upstream.EmbeddingRequest{
		Model: registry.Resolve(req.Model),
		Input: req.Prompt,
	}
}

// applyOptions copies the sampling options the upstream dialect knows
// about. Ollama-specific tunables (num_ctx, repeat_penalty, mirostat and
// friends) have no upstream equivalent and are dropped.
func applyOptions(out *upstream.ChatRequest, options map[string]any) {
	if len(options) == 0 {
		return
	}

	if v, ok := toFloat(options["temperature"]); ok {
		out.Temperature = &v
	}
	if v, ok := toFloat(options["top_p"]); ok {
		out.TopP = &v
	}
	if v, ok := toInt(options["seed"]); ok {
		out.Seed = &v
	}
	if v, ok := toInt(options["num_predict"]); ok {
		out.MaxTokens = &v
	}
	out.Stop = toStrings(options["stop"])
}

func applyFormat(out *upstream.ChatRequest, format string) {
	if format == "json" {
		out.ResponseFormat = &upstream.ResponseFormat{Type: "json_object"}
	}
}

// toFloat accepts the numeric shapes encoding/json produces plus native
// Go numbers handed in by tests.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// toStrings accepts a single stop string or a list of them.
func toStrings(v any) []string {
	switch s := v.(type) {
	case string:
		return []string{s}
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}
