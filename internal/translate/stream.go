package translate

import (
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
)

// streamState accumulates what the terminal chunk needs. The upstream
// finish reason and the usage totals arrive in separate chunks, so the
// final record is held back until the stream ends.
type streamState struct {
	model        string
	finishReason string
	usage        *upstream.Usage
}

// next extracts the delta text from a chunk and files away finish reason
// and usage. emit is false for bookkeeping-only chunks, which produce no
// client-visible record.
func (s *streamState) next(chunk *upstream.ChatResponse) (content string, emit bool) {
	if chunk.Usage != nil {
		s.usage = chunk.Usage
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != "" {
		s.finishReason = choice.FinishReason
	}
	if choice.Delta == nil {
		return "", choice.FinishReason == ""
	}
	return choice.Delta.Content, true
}

func (s *streamState) doneReason() string {
	if s.finishReason == "" {
		return "stop"
	}
	return s.finishReason
}

// GenerateStream translates completion chunks. Every chunk it emits has
// Done false; the single terminal record comes from Final once the
// upstream stream is drained.
type GenerateStream struct {
	state streamState
}

func NewGenerateStream(clientModel string) *GenerateStream {
	return &GenerateStream{state: streamState{model: clientModel}}
}

// Next translates one upstream chunk. A nil result means the chunk
// carried only finish or usage bookkeeping.
func (g *GenerateStream) Next(chunk *upstream.ChatResponse) *api.GenerateResponse {
	content, emit := g.state.next(chunk)
	if !emit {
		return nil
	}
	return &api.GenerateResponse{
		Model:     g.state.model,
		CreatedAt: now(),
		Response:  content,
		Done:      false,
	}
}

// Final builds the terminal record: done, done reason, placeholder
// context, and whatever usage the upstream reported.
func (g *GenerateStream) Final() *api.GenerateResponse {
	out := &api.GenerateResponse{
		Model:      g.state.model,
		CreatedAt:  now(),
		Response:   "",
		Done:       true,
		DoneReason: g.state.doneReason(),
		Context:    placeholderContext,
	}
	if g.state.usage != nil {
		out.PromptEvalCount = g.state.usage.PromptTokens
		out.EvalCount = g.state.usage.CompletionTokens
	}
	return out
}

// ChatStream mirrors GenerateStream for the chat envelope.
type ChatStream struct {
	state streamState
}

func NewChatStream(clientModel string) *ChatStream {
	return &ChatStream{state: streamState{model: clientModel}}
}

func (c *ChatStream) Next(chunk *upstream.ChatResponse) *api.ChatResponse {
	content, emit := c.state.next(chunk)
	if !emit {
		return nil
	}
	return &api.ChatResponse{
		Model:     c.state.model,
		CreatedAt: now(),
		Message:   api.ChatMessage{Role: "assistant", Content: content},
		Done:      false,
	}
}

func (c *ChatStream) Final() *api.ChatResponse {
	out := &api.ChatResponse{
		Model:      c.state.model,
		CreatedAt:  now(),
		Message:    api.ChatMessage{Role: "assistant", Content: ""},
		Done:       true,
		DoneReason: c.state.doneReason(),
	}
	if c.state.usage != nil {
		out.PromptEvalCount = c.state.usage.PromptTokens
		out.EvalCount = c.state.usage.CompletionTokens
	}
	return out
}
