package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// failingEmbedder always errors, for exercising fallback paths.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("unavailable")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("unavailable")
}

func (failingEmbedder) Dimensions() int { return 0 }
func (failingEmbedder) Close() error    { return nil }

func TestFallbackEmbedder_PrimaryWins(t *testing.T) {
	primary := NewMockEmbedder(4)
	fallback := NewMockEmbedder(8)
	f := NewFallbackEmbedder(primary, fallback, zap.NewNop())

	vec, err := f.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 4 {
		t.Errorf("expected primary result (4 dims), got %d", len(vec))
	}
	if f.Dimensions() != 4 {
		t.Errorf("Dimensions: got %d", f.Dimensions())
	}
}

func TestFallbackEmbedder_UsesFallbackOnFailure(t *testing.T) {
	f := NewFallbackEmbedder(failingEmbedder{}, NewMockEmbedder(8), zap.NewNop())

	vec, err := f.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 8 {
		t.Errorf("expected fallback result (8 dims), got %d", len(vec))
	}

	vecs, err := f.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 8 {
		t.Errorf("batch fallback: got %d vectors", len(vecs))
	}
	if f.Dimensions() != 8 {
		t.Errorf("Dimensions should report fallback when primary unknown: got %d", f.Dimensions())
	}
}

func TestCachedEmbedder_CachesByText(t *testing.T) {
	inner := &countingEmbedder{inner: NewMockEmbedder(4)}
	c := NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "repeat")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := c.Embed(ctx, "repeat")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if v1[0] != v2[0] {
		t.Error("cached embedding should match original")
	}
}

func TestCachedEmbedder_BatchPartialHit(t *testing.T) {
	inner := &countingEmbedder{inner: NewMockEmbedder(4)}
	c := NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	vecs, err := c.EmbedBatch(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	// "a" was cached; only "b" and "c" go to the inner embedder
	if inner.batched != 2 {
		t.Errorf("expected 2 texts embedded in batch, got %d", inner.batched)
	}
	for i, v := range vecs {
		if len(v) != 4 {
			t.Errorf("vector %d has %d dims", i, len(v))
		}
	}
}

// countingEmbedder tracks how often the wrapped embedder is hit.
type countingEmbedder struct {
	inner   Embedder
	calls   int
	batched int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batched += len(texts)
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEmbedder) Close() error    { return c.inner.Close() }
