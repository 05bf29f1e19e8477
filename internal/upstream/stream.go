package upstream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/logger"
)

// maxLineSize bounds a single SSE event line. Chunks are small; anything
// beyond this is a protocol violation.
const maxLineSize = 1 << 20

var (
	dataPrefix = []byte("data: ")
	doneMarker = []byte("[DONE]")
)

// ChatStream is a pull-based iterator over a streaming chat completion.
// Callers loop on Recv until io.EOF and must call Close when finished,
// including on early exit.
type ChatStream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	log     *zap.Logger
	closed  bool
}

func newChatStream(resp *http.Response) *ChatStream {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &ChatStream{
		resp:    resp,
		scanner: scanner,
		log:     logger.Named("upstream.stream"),
	}
}

// Recv returns the next chunk. It returns io.EOF after the [DONE] marker
// or when the body ends cleanly, and a classified *APIError when the
// connection drops mid-stream. Malformed data lines are skipped.
func (s *ChatStream) Recv() (*ChatResponse, error) {
	if s.closed {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if !bytes.HasPrefix(line, dataPrefix) {
			// comments, blank keep-alives, event names
			continue
		}
		payload := bytes.TrimSpace(line[len(dataPrefix):])
		if bytes.Equal(payload, doneMarker) {
			return nil, io.EOF
		}

		var chunk ChatResponse
		if err := json.Unmarshal(payload, &chunk); err != nil {
			s.log.Warn("skipping malformed stream chunk",
				zap.Error(err),
				zap.Int("payload_bytes", len(payload)))
			continue
		}
		return &chunk, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, Classify(err)
	}
	return nil, io.EOF
}

// Close releases the underlying connection. Safe to call more than once.
func (s *ChatStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Body.Close()
}
