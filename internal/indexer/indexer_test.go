package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestIndexer(t *testing.T, opts ...IndexerOption) (*Indexer, storage.Storage, vector.VectorIndex) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	idx, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(8)
	ing := NewIndexer(store, embedder, idx, NewChunker(100, 20), extract.NewExtractor(), opts...)
	return ing, store, idx
}

func TestIndexer_IndexDocument(t *testing.T) {
	ing, store, vecIdx := newTestIndexer(t)
	ctx := context.Background()

	content := strings.Repeat("Interesting facts about the solar system. ", 10)
	n, err := ing.IndexDocument(ctx, &models.DocumentInput{
		ID:      "doc1",
		Title:   "space.txt",
		Content: content,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n < 2 {
		t.Errorf("expected multiple chunks, got %d", n)
	}
	if vecIdx.Size() != n {
		t.Errorf("vector index size %d, want %d", vecIdx.Size(), n)
	}
	doc, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "space.txt" {
		t.Errorf("stored title: %s", doc.Title)
	}
	chunks, _ := store.GetChunksByDocumentID(ctx, "doc1")
	if len(chunks) != n {
		t.Errorf("stored chunks %d, want %d", len(chunks), n)
	}
}

func TestIndexer_IndexDocument_BreaksAtParagraphBoundary(t *testing.T) {
	ing, store, _ := newTestIndexer(t)
	ctx := context.Background()

	// Messy source text: extra spaces, a tab, and a run of blank lines.
	// Cleanup must keep the paragraph break so chunking can split on it.
	raw := "The first   paragraph talks about the\tmigration of birds across continents.\n\n\n\n" +
		"The second paragraph covers the feeding habits of shore birds in winter.\n"

	if _, err := ing.IndexDocument(ctx, &models.DocumentInput{ID: "doc1", Title: "birds.txt", Content: raw}); err != nil {
		t.Fatal(err)
	}
	chunks, err := store.GetChunksByDocumentID(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	want := "The first paragraph talks about the migration of birds across continents."
	if chunks[0].Content != want {
		t.Errorf("first chunk should end at the paragraph boundary:\ngot  %q\nwant %q", chunks[0].Content, want)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding service unavailable")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding service unavailable")
}

func (failingEmbedder) Dimensions() int { return 8 }
func (failingEmbedder) Close() error    { return nil }

func TestIndexer_IndexDocument_EmbedFailureLeavesNothing(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	vecIdx, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	ing := NewIndexer(store, failingEmbedder{}, vecIdx, NewChunker(100, 20), extract.NewExtractor())

	ctx := context.Background()
	_, err = ing.IndexDocument(ctx, &models.DocumentInput{ID: "doc1", Title: "doc.txt", Content: "some content"})
	if err == nil {
		t.Fatal("expected embedding error")
	}
	if n, _ := store.CountDocuments(ctx); n != 0 {
		t.Errorf("failed ingest should not persist a document, got %d", n)
	}
	summaries, _ := store.ListDocumentSummaries(ctx)
	if len(summaries) != 0 {
		t.Errorf("failed ingest should not be listed, got %+v", summaries)
	}
	if vecIdx.Size() != 0 {
		t.Errorf("vector index should be empty, size %d", vecIdx.Size())
	}
}

func TestIndexer_IndexDocument_AssignsID(t *testing.T) {
	ing, _, _ := newTestIndexer(t)
	input := &models.DocumentInput{Content: "hello world"}
	if _, err := ing.IndexDocument(context.Background(), input); err != nil {
		t.Fatal(err)
	}
	if input.ID == "" {
		t.Error("expected generated document ID")
	}
}

func TestIndexer_IndexDocument_Empty(t *testing.T) {
	ing, _, _ := newTestIndexer(t)
	_, err := ing.IndexDocument(context.Background(), &models.DocumentInput{ID: "e", Content: "   \n  "})
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestIndexer_DeleteDocument(t *testing.T) {
	ing, store, vecIdx := newTestIndexer(t)
	ctx := context.Background()

	if _, err := ing.IndexDocument(ctx, &models.DocumentInput{ID: "doc1", Content: "some text to delete"}); err != nil {
		t.Fatal(err)
	}
	if err := ing.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if vecIdx.Size() != 0 {
		t.Errorf("vector index should be empty, size %d", vecIdx.Size())
	}
	if n, _ := store.CountDocuments(ctx); n != 0 {
		t.Errorf("expected 0 documents, got %d", n)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("expected 0 chunks, got %d", n)
	}
}

func TestIndexer_DeleteDocument_Unknown(t *testing.T) {
	ing, _, _ := newTestIndexer(t)
	err := ing.DeleteDocument(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIndexer_IndexFile_SkipsUnchanged(t *testing.T) {
	ing, store, _ := newTestIndexer(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("first version of the notes"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ing.IndexFile(ctx, path, nil); err != nil {
		t.Fatal(err)
	}
	n1, _ := store.CountDocuments(ctx)
	if n1 != 1 {
		t.Fatalf("expected 1 document, got %d", n1)
	}

	// Unchanged file: no re-index, still one document
	if err := ing.IndexFile(ctx, path, nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountDocuments(ctx); n != 1 {
		t.Errorf("expected 1 document after re-index, got %d", n)
	}
}

func TestIndexer_IndexFile_ExtensionFilter(t *testing.T) {
	ing, _, _ := newTestIndexer(t)
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte("binary"), 0600); err != nil {
		t.Fatal(err)
	}
	err := ing.IndexFile(context.Background(), path, []string{".txt", ".md"})
	if err == nil {
		t.Error("expected error for disallowed extension")
	}
}

func TestIndexer_IndexDirectory(t *testing.T) {
	ing, store, _ := newTestIndexer(t)
	ctx := context.Background()

	dir := t.TempDir()
	files := map[string]string{
		"a.txt":     "contents of a",
		"b.md":      "contents of b",
		"c.png":     "skipped binary",
		"sub/d.log": "skipped log",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		_ = os.MkdirAll(filepath.Dir(p), 0755)
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	n, err := ing.IndexDirectory(ctx, dir, []string{".txt", ".md"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 files indexed, got %d", n)
	}
	if docs, _ := store.CountDocuments(ctx); docs != 2 {
		t.Errorf("expected 2 documents, got %d", docs)
	}
}

func TestIndexer_PersistsVectorIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	ing, _, _ := newTestIndexer(t, WithVectorIndexPath(path))

	if _, err := ing.IndexDocument(context.Background(), &models.DocumentInput{ID: "p", Content: "persist me"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("vector index should be saved after indexing: %v", err)
	}
}
