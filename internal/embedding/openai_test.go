package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestEmbedder(t *testing.T, url string) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL:       url,
		APIKey:        "test-key",
		Model:         "text-embedding-3-small",
		Timeout:       5 * time.Second,
		MaxBatchSize:  2,
		RatePerSecond: 100,
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: got %q", got)
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		resp := map[string]interface{}{"data": []map[string]interface{}{}}
		data := resp["data"].([]map[string]interface{})
		for i := range req.Input {
			data = append(data, map[string]interface{}{
				"index":     i,
				"embedding": []float32{float32(i), 1, 0},
			})
		}
		resp["data"] = data
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	if e.Dimensions() != 3 {
		t.Errorf("dimensions: got %d, want 3", e.Dimensions())
	}
	// MaxBatchSize 2, three texts: two requests
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("expected 2 requests, got %d", n)
	}
}

func TestOpenAIEmbedder_OllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float32{0.1, 0.2},
		})
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 {
		t.Errorf("expected 2 dims, got %d", len(vec))
	}
}

func TestOpenAIEmbedder_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"index": 0, "embedding": []float32{1, 0}}},
		})
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	vec, err := e.Embed(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("expected retries to succeed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("got %v", vec)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestOpenAIEmbedder_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	_, err := e.Embed(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("client errors should not be retried: %d calls", n)
	}
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{}, zap.NewNop())
	if err == nil {
		t.Error("expected error for missing API key")
	}
}
