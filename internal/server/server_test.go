package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulzo/ollama-openai-proxy/internal/cache"
	"github.com/nulzo/ollama-openai-proxy/internal/config"
	"github.com/nulzo/ollama-openai-proxy/internal/retry"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/pkg/api"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, backend http.Handler) *Server {
	t.Helper()
	upstreamSrv := httptest.NewServer(backend)
	t.Cleanup(upstreamSrv.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "11434", Env: "test"},
		Upstream: config.UpstreamConfig{
			BaseURL:            upstreamSrv.URL,
			APIKey:             "test-key",
			RequestTimeout:     5 * time.Second,
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Cache: config.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Minute},
	}

	client := upstream.NewClient(cfg.Upstream, retry.Policy{
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Millisecond,
	})

	return New(cfg, zap.NewNop(), client, cache.NewMemoryCache(), nil, nil)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestTagsEndpoint(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"id":"gpt-4","created":1677652288},
			{"id":"whisper-1","created":1677652288},
			{"id":"gpt-3.5-turbo","created":1677652288}
		]}`))
	}))

	w := doJSON(t, s, http.MethodGet, "/api/tags", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.TagsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Models, 2)
	assert.Equal(t, "gpt-3.5-turbo", resp.Models[0].Name)
	assert.Equal(t, resp.Models[0].Name, resp.Models[0].Model)
	assert.Equal(t, "gpt-4", resp.Models[1].Name)
}

func TestTagsEndpointServesFromCache(t *testing.T) {
	var calls int
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4","created":1}]}`))
	}))

	require.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, "/api/tags", "").Code)
	require.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, "/api/tags", "").Code)
	assert.Equal(t, 1, calls)
}

func TestGenerateUnary(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req upstream.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.False(t, req.Stream)

		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Paris."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":8,"completion_tokens":2,"total_tokens":10}}`))
	}))

	w := doJSON(t, s, http.MethodPost, "/api/generate",
		`{"model":"llama2","prompt":"capital of France?","stream":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "llama2", resp.Model)
	assert.Equal(t, "Paris.", resp.Response)
	assert.True(t, resp.Done)
	assert.Equal(t, "stop", resp.DoneReason)
	assert.Equal(t, []int{128006, 882, 128007, 128006, 78191, 128007}, resp.Context)
	assert.Equal(t, 8, resp.PromptEvalCount)
	assert.Equal(t, 2, resp.EvalCount)
}

func TestGenerateStreamNDJSON(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req upstream.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range []string{"The", " sky", " is", " blue"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", word)
		}
		_, _ = w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"choices\":[],\"usage\":{\"prompt_tokens\":4,\"completion_tokens\":4,\"total_tokens\":8}}\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))

	w := doJSON(t, s, http.MethodPost, "/api/generate", `{"model":"gpt-4","prompt":"describe the sky"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	var chunks []api.GenerateResponse
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var chunk api.GenerateResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &chunk))
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 5)
	var text strings.Builder
	for i, chunk := range chunks[:4] {
		assert.False(t, chunk.Done, "chunk %d", i)
		assert.Empty(t, chunk.DoneReason)
		text.WriteString(chunk.Response)
	}
	assert.Equal(t, "The sky is blue", text.String())

	final := chunks[4]
	assert.True(t, final.Done)
	assert.Equal(t, "stop", final.DoneReason)
	assert.Equal(t, 4, final.PromptEvalCount)
	assert.Equal(t, 4, final.EvalCount)
	assert.NotEmpty(t, final.Context)
}

func TestGenerateStreamMidFailureSynthesizesTerminalChunk(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, buf, err := hj.Hijack()
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		payload := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\"}}]}\n\n"
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nTransfer-Encoding: chunked\r\n\r\n")
		_, _ = fmt.Fprintf(buf, "%x\r\n%s\r\n", len(payload), payload)
		_ = buf.Flush()
		// drop the connection without a terminating chunk
	}))

	w := doJSON(t, s, http.MethodPost, "/api/generate", `{"model":"gpt-4","prompt":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var chunks []api.GenerateResponse
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var chunk api.GenerateResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &chunk))
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 2)
	assert.Equal(t, "Hi", chunks[0].Response)
	assert.False(t, chunks[0].Done)

	final := chunks[1]
	assert.True(t, final.Done)
	assert.Equal(t, "error", final.DoneReason)
	assert.NotEmpty(t, final.Error)
	assert.NotEmpty(t, final.CorrelationID)
}

func TestGenerateValidation(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called for invalid requests")
	}))

	w := doJSON(t, s, http.MethodPost, "/api/generate", `{"model":"gpt-4"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "invalid_request_error", envelope.Error.Type)
	assert.Contains(t, envelope.Error.Details, "prompt")
	assert.NotEmpty(t, envelope.CorrelationID)
}

func TestChatUnary(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req upstream.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"hello!"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":6,"completion_tokens":2,"total_tokens":8}}`))
	}))

	w := doJSON(t, s, http.MethodPost, "/api/chat",
		`{"model":"gpt-4","stream":false,"messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "assistant", resp.Message.Role)
	assert.Equal(t, "hello!", resp.Message.Content)
	assert.True(t, resp.Done)
}

func TestChatStreamNDJSON(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hey\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))

	w := doJSON(t, s, http.MethodPost, "/api/chat",
		`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var chunks []api.ChatResponse
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var chunk api.ChatResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &chunk))
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 2)
	assert.Equal(t, "Hey", chunks[0].Message.Content)
	assert.False(t, chunks[0].Done)
	assert.True(t, chunks[1].Done)
	assert.Equal(t, "stop", chunks[1].DoneReason)
}

func TestChatValidationRejectsBadRole(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called for invalid requests")
	}))

	w := doJSON(t, s, http.MethodPost, "/api/chat",
		`{"model":"gpt-4","messages":[{"role":"wizard","content":"hi"}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmbeddingsEndpointAndAlias(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5]}],"model":"text-embedding-ada-002"}`))
	})

	for _, path := range []string{"/api/embeddings", "/api/embed"} {
		t.Run(path, func(t *testing.T) {
			s := newTestServer(t, handler)
			w := doJSON(t, s, http.MethodPost, path,
				`{"model":"text-embedding-ada-002","prompt":"embed me"}`)
			require.Equal(t, http.StatusOK, w.Code)

			var resp api.EmbeddingsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, []float64{0.25, -0.5}, resp.Embedding)
		})
	}
}

func TestUpstreamErrorTranslation(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))

	w := doJSON(t, s, http.MethodPost, "/api/generate",
		`{"model":"gpt-4","prompt":"hi","stream":false}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var envelope api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "authentication_error", envelope.Error.Type)
	assert.Equal(t, "Authentication failed. Please check your API key.", envelope.Error.Message)
	assert.Equal(t, "gpt-4", envelope.Model)
}

func TestCorrelationIDEcho(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	req.Header.Set("X-Correlation-ID", "req_test12345678")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req_test12345678", w.Header().Get("X-Correlation-ID"))
}

func TestCorrelationIDGenerated(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))

	w := doJSON(t, s, http.MethodGet, "/api/tags", "")
	assert.Regexp(t, `^req_[0-9a-f]{12}$`, w.Header().Get("X-Correlation-ID"))
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := doJSON(t, s, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.VersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Version)
}

func TestHealthDegradedWhenUpstreamDown(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	w := doJSON(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}

func TestReadyReturns503WhenUpstreamDown(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	w := doJSON(t, s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyReturns200WhenHealthy(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4"}]}`))
	}))

	w := doJSON(t, s, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp["status"])
}
