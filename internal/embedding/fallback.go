package embedding

import (
	"context"

	"go.uber.org/zap"
)

// FallbackEmbedder tries a primary embedder and falls back to a secondary
// one when the primary fails.
type FallbackEmbedder struct {
	primary  Embedder
	fallback Embedder
	logger   *zap.Logger
}

// NewFallbackEmbedder composes primary and fallback embedders.
func NewFallbackEmbedder(primary, fallback Embedder, logger *zap.Logger) *FallbackEmbedder {
	return &FallbackEmbedder{primary: primary, fallback: fallback, logger: logger}
}

// Embed embeds text with the primary embedder, using the fallback on failure.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.primary.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	f.logger.Warn("primary embedder failed, using fallback", zap.Error(err))
	return f.fallback.Embed(ctx, text)
}

// EmbedBatch embeds texts with the primary embedder, using the fallback on failure.
func (f *FallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := f.primary.EmbedBatch(ctx, texts)
	if err == nil {
		return vecs, nil
	}
	f.logger.Warn("primary embedder failed, using fallback", zap.Error(err), zap.Int("texts", len(texts)))
	return f.fallback.EmbedBatch(ctx, texts)
}

// Dimensions returns the primary dimension when known, otherwise the fallback's.
func (f *FallbackEmbedder) Dimensions() int {
	if d := f.primary.Dimensions(); d > 0 {
		return d
	}
	return f.fallback.Dimensions()
}

// Close closes both embedders.
func (f *FallbackEmbedder) Close() error {
	err := f.primary.Close()
	if cerr := f.fallback.Close(); err == nil {
		err = cerr
	}
	return err
}
