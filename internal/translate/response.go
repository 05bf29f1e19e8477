package translate

import (
	"time"

	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// placeholderContext stands in for Ollama's continuation tokens, which
// have no upstream equivalent. Clients that round-trip the context field
// get a stable, well-formed value back.
var placeholderContext = []int{128006, 882, 128007, 128006, 78191, 128007}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// GenerateResponse maps a unary chat completion back onto the completion
// envelope. The model name echoed is the one the client asked for, not the
// resolved upstream name.
func GenerateResponse(resp *upstream.ChatResponse, clientModel string) *api.GenerateResponse {
	out := &api.GenerateResponse{
		Model:      clientModel,
		CreatedAt:  now(),
		Done:       true,
		DoneReason: "stop",
		Context:    placeholderContext,
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message != nil {
			out.Response = choice.Message.Content
		}
		if choice.FinishReason != "" {
			out.DoneReason = choice.FinishReason
		}
	}
	if resp.Usage != nil {
		out.PromptEvalCount = resp.Usage.PromptTokens
		out.EvalCount = resp.Usage.CompletionTokens
	}
	return out
}

// ChatResponse maps a unary chat completion back onto the chat envelope.
func ChatResponse(resp *upstream.ChatResponse, clientModel string) *api.ChatResponse {
	out := &api.ChatResponse{
		Model:      clientModel,
		CreatedAt:  now(),
		Message:    api.ChatMessage{Role: "assistant"},
		Done:       true,
		DoneReason: "stop",
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message != nil {
			out.Message.Role = choice.Message.Role
			out.Message.Content = choice.Message.Content
		}
		if choice.FinishReason != "" {
			out.DoneReason = choice.FinishReason
		}
	}
	if resp.Usage != nil {
		out.PromptEvalCount = resp.Usage.PromptTokens
		out.EvalCount = resp.Usage.CompletionTokens
	}
	return out
}

// EmbeddingsResponse flattens the upstream embedding list into Ollama's
// single-vector shape. Values pass through without rounding; an empty
// result yields an empty vector rather than null.
func EmbeddingsResponse(resp *upstream.EmbeddingResponse) *api.EmbeddingsResponse {
	out := &api.EmbeddingsResponse{Embedding: []float64{}}
	if len(resp.Data) > 0 {
		out.Embedding = resp.Data[0].Embedding
	}
	return out
}
