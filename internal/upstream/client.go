package upstream

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/config"
	"github.com/nulzo/ollama-openai-proxy/internal/httpclient"
	"github.com/nulzo/ollama-openai-proxy/internal/logger"
	"github.com/nulzo/ollama-openai-proxy/internal/retry"
)

// Client talks to the OpenAI-compatible backend. The underlying HTTP
// client is pooled and lazily created, and re-established transparently
// after Close.
type Client struct {
	cfg   config.UpstreamConfig
	log   *zap.Logger
	retry *retry.Executor

	mu   sync.Mutex
	http httpclient.HTTPClient

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// Stats is a point-in-time snapshot of client activity. Counts include
// every attempt, retries included.
type Stats struct {
	RequestCount int64   `json:"request_count"`
	ErrorCount   int64   `json:"error_count"`
	ErrorRate    float64 `json:"error_rate"`
}

// Health is the result of a connectivity probe against the backend.
type Health struct {
	Status          string `json:"status"`
	ModelsAvailable int    `json:"models_available"`
	Error           string `json:"error,omitempty"`
	Stats
}

func NewClient(cfg config.UpstreamConfig, retryPolicy retry.Policy) *Client {
	c := &Client{
		cfg: cfg,
		log: logger.Named("upstream"),
	}
	c.retry = retry.NewExecutor(retryPolicy, c.log, Retryable)
	return c
}

// httpClient returns the pooled client, creating it on first use.
func (c *Client) httpClient() httpclient.HTTPClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		c.http = &http.Client{
			Timeout: c.cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxConnsPerHost:     c.cfg.MaxConnections,
				MaxIdleConns:        c.cfg.MaxIdleConnections,
				MaxIdleConnsPerHost: c.cfg.MaxIdleConnections,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c.http
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
}

func (c *Client) send(ctx context.Context, method, path string, body, response any) error {
	c.requestCount.Add(1)
	err := httpclient.SendRequest(ctx, c.httpClient(), method, c.url(path), c.headers(), body, response)
	if err != nil {
		c.errorCount.Add(1)
		return Classify(err)
	}
	return nil
}

// ListModels fetches the backend's model catalog.
func (c *Client) ListModels(ctx context.Context) (*ModelList, error) {
	return retry.Do(ctx, c.retry, "list models", func(ctx context.Context) (*ModelList, error) {
		var list ModelList
		if err := c.send(ctx, http.MethodGet, "/models", nil, &list); err != nil {
			return nil, err
		}
		return &list, nil
	})
}

// CreateChatCompletion runs a non-streaming completion with retry.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req.Stream = false
	req.StreamOptions = nil
	return retry.Do(ctx, c.retry, "create chat completion", func(ctx context.Context) (*ChatResponse, error) {
		var resp ChatResponse
		if err := c.send(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

// CreateChatCompletionStream opens a streaming completion. Once bytes have
// been relayed the call cannot be replayed, so streams are never retried.
// The caller must Close the returned stream.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req *ChatRequest) (*ChatStream, error) {
	req.Stream = true
	req.StreamOptions = &StreamOptions{IncludeUsage: true}

	c.requestCount.Add(1)
	resp, err := httpclient.OpenStream(ctx, c.httpClient(), http.MethodPost, c.url("/chat/completions"), c.headers(), req)
	if err != nil {
		c.errorCount.Add(1)
		return nil, Classify(err)
	}
	return newChatStream(resp), nil
}

// CreateEmbedding runs an embedding request with retry.
func (c *Client) CreateEmbedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	return retry.Do(ctx, c.retry, "create embedding", func(ctx context.Context) (*EmbeddingResponse, error) {
		var resp EmbeddingResponse
		if err := c.send(ctx, http.MethodPost, "/embeddings", req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

// HealthCheck probes connectivity by listing models. It reports rather
// than fails: an unreachable backend yields status "unhealthy" and a nil
// error.
func (c *Client) HealthCheck(ctx context.Context) *Health {
	h := &Health{Stats: c.Statistics()}

	list, err := c.ListModels(ctx)
	if err != nil {
		c.log.Warn("health check failed", zap.Error(err))
		h.Status = "unhealthy"
		h.Error = err.Error()
		return h
	}

	h.Status = "healthy"
	h.ModelsAvailable = len(list.Data)
	return h
}

// Statistics returns the current attempt counters.
func (c *Client) Statistics() Stats {
	requests := c.requestCount.Load()
	errors := c.errorCount.Load()
	s := Stats{RequestCount: requests, ErrorCount: errors}
	if requests > 0 {
		s.ErrorRate = float64(errors) / float64(requests)
	}
	return s
}

// Close drops idle connections. The client remains usable; the next call
// creates a fresh pool.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hc, ok := c.http.(*http.Client); ok && hc != nil {
		hc.CloseIdleConnections()
	}
	c.http = nil
}
