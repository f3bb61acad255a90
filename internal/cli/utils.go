// Package cli provides CLI output utilities for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAnswer writes a query response to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteAnswer(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	writeAnswerText(w, response)
	return nil
}

func writeAnswerText(w io.Writer, response *models.QueryResponse) {
	fmt.Fprintf(w, "\n%s\n\n", response.Answer)
	fmt.Fprintf(w, "Answered in %dms from %d chunk(s)\n", response.QueryTime, response.RetrievedChunks)
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Score: %.4f | Source: %s | Chunk: %s\n", r.Score, r.Source, r.ChunkID)
		fmt.Fprintf(w, "%s\n", Truncate(r.Text, 200))
	}
}

// WriteDocumentList writes document summaries to w in the given format.
func WriteDocumentList(w io.Writer, docs []*models.DocumentSummary, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents indexed.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %-40s %d chunk(s)\n", d.ID, d.Source, d.ChunkCount)
	}
	fmt.Fprintf(w, "\n%d document(s)\n", len(docs))
	return nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
