// Package vector provides vector index implementations and a factory for creating them.
package vector

import (
	"fmt"

	"go.uber.org/zap"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for small corpora (<10k vectors).
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses FAISS for efficient ANN search. Good for large corpora.
	// Requires the FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "faiss".
// FAISS requires building with -tags=faiss and having the FAISS library installed.
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// NewWithFallback creates a FAISS index when compiled in, falling back to the
// in-memory index otherwise. This is the constructor the server uses: the
// service stays functional on builds without the FAISS library.
func NewWithFallback(dimensions int, logger *zap.Logger) (VectorIndex, error) {
	if IsFAISSAvailable() {
		idx, err := NewFAISSIndex(dimensions)
		if err == nil {
			return idx, nil
		}
		logger.Warn("faiss index unavailable, falling back to memory", zap.Error(err))
	}
	return NewMemoryIndex(dimensions)
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
