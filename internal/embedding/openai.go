package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures the OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxBatchSize  int
	RatePerSecond int
}

// OpenAIEmbedder is an OpenAI-compatible embeddings client. Requests go
// through a rate limiter and a circuit breaker; transient failures are
// retried with exponential backoff honoring Retry-After.
type OpenAIEmbedder struct {
	baseURL      string
	apiKey       string
	model        string
	maxBatchSize int
	maxRetries   int
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker
	limiter      *rate.Limiter
	logger       *zap.Logger

	mu         sync.Mutex
	dimensions int // set lazily from the first response
}

// NewOpenAIEmbedder creates an embeddings client for an OpenAI-compatible API.
func NewOpenAIEmbedder(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing API key (set OPENAI_API_KEY)")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 64
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 10
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embeddings-api",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &OpenAIEmbedder{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		maxBatchSize: cfg.MaxBatchSize,
		maxRetries:   5,
		client:       &http.Client{Timeout: cfg.Timeout},
		breaker:      breaker,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RatePerSecond),
		logger:       logger,
	}, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	// Ollama-native single-embedding shape, for compatible proxies.
	Embedding []float32 `json:"embedding"`
}

// Embed returns an embedding vector for the given text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in batches of at most MaxBatchSize per request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.maxBatchSize {
		end := start + e.maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatchOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatchOnce(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}
		vecs, retryAfter, err := e.doRequest(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if retryAfter > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfter):
			}
		}
	}
	return nil, fmt.Errorf("embeddings request failed after %d attempts: %w", e.maxRetries+1, lastErr)
}

// doRequest performs a single embeddings call. The second return value is a
// server-requested delay from a Retry-After header, zero when absent.
func (e *OpenAIEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, time.Duration, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(embeddingsRequest{Input: texts, Model: e.model})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retryableError{
				status:     resp.Status,
				retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("embeddings API: %s: %s", resp.Status, string(payload))
		}
		return e.parseResponse(payload, len(texts))
	})
	if err != nil {
		var re *retryableError
		if errors.As(err, &re) {
			return nil, re.retryAfter, re
		}
		return nil, 0, err
	}
	return result.([][]float32), 0, nil
}

func (e *OpenAIEmbedder) parseResponse(payload []byte, want int) ([][]float32, error) {
	var out embeddingsResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	var vecs [][]float32
	switch {
	case len(out.Data) > 0:
		sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
		for _, d := range out.Data {
			vecs = append(vecs, d.Embedding)
		}
	case len(out.Embedding) > 0 && want == 1:
		vecs = [][]float32{out.Embedding}
	}
	if len(vecs) != want {
		return nil, fmt.Errorf("embeddings response: got %d vectors, want %d", len(vecs), want)
	}
	e.setDimensions(len(vecs[0]))
	return vecs, nil
}

func (e *OpenAIEmbedder) setDimensions(d int) {
	e.mu.Lock()
	if e.dimensions == 0 {
		e.dimensions = d
	}
	e.mu.Unlock()
}

// Dimensions returns the embedding dimension, 0 until the first successful call.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close is a no-op for the remote client.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// retryableError marks a response worth retrying (429 or 5xx).
type retryableError struct {
	status     string
	retryAfter time.Duration
}

func (r *retryableError) Error() string {
	return fmt.Sprintf("embeddings API: %s", r.status)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// retryDelay returns an exponential backoff delay capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
