// Package indexer provides document chunking and ingestion.
package indexer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
)

// chunkSeparators are tried in order when looking for a break point:
// paragraph, line, then word boundary.
var chunkSeparators = []string{"\n\n", "\n", " "}

// Chunker splits text into overlapping character windows, preferring to
// break at paragraph, line, or word boundaries.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into DocumentChunks with overlapping windows.
func (c *Chunker) Chunk(docID, text string) []*models.DocumentChunk {
	parts := c.split(text)
	chunks := make([]*models.DocumentChunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, &models.DocumentChunk{
			ID:         fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
			DocumentID: docID,
			Content:    part,
			ChunkIndex: i,
		})
	}
	return chunks
}

// split returns the chunk texts for text. Windows are chunkSize characters;
// each window after the first starts chunkOverlap characters before the
// previous break so context is shared across chunk boundaries.
func (c *Chunker) split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}

	var parts []string
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			if part := strings.TrimSpace(string(runes[start:])); part != "" {
				parts = append(parts, part)
			}
			break
		}
		cut := c.findBreak(runes, start, end)
		if part := strings.TrimSpace(string(runes[start:cut])); part != "" {
			parts = append(parts, part)
		}
		next := cut - c.chunkOverlap
		if next <= start {
			next = start + step
		}
		start = next
	}
	return parts
}

// findBreak returns the cut position for the window runes[start:end]. It
// picks the last separator occurrence in the window, but never cuts in the
// first half so chunks stay reasonably full.
func (c *Chunker) findBreak(runes []rune, start, end int) int {
	window := string(runes[start:end])
	minBreak := c.chunkSize / 2
	for _, sep := range chunkSeparators {
		i := strings.LastIndex(window, sep)
		if i < 0 {
			continue
		}
		offset := len([]rune(window[:i]))
		if offset >= minBreak {
			return start + offset
		}
	}
	return end
}
