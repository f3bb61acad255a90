// Package answer provides the retrieval-augmented question answering engine.
package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrNoDocuments is returned when a question arrives before any document
// has been indexed. The query handler maps it to HTTP 400.
var ErrNoDocuments = errors.New("no documents have been indexed yet")

// Engine answers questions by retrieving relevant chunks and prompting a
// local language model with them.
type Engine struct {
	storage     storage.Storage
	embedder    embedding.Embedder
	vectorIndex vector.VectorIndex
	llm         llm.Client
	config      *config.RetrievalConfig
	logger      *zap.Logger
}

// NewEngine creates an answering engine with the given dependencies.
func NewEngine(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	llmClient llm.Client,
	cfg *config.RetrievalConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		storage:     store,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		llm:         llmClient,
		config:      cfg,
		logger:      logger,
	}
}

// Answer retrieves the chunks most similar to the question and generates an
// answer from them. Model failures degrade to a fixed answer rather than an
// error so the retrieved context is still returned to the caller.
func (e *Engine) Answer(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	startTime := time.Now()
	if err := req.Validate(e.config.TopK); err != nil {
		return nil, err
	}
	if e.vectorIndex.Size() == 0 {
		return nil, ErrNoDocuments
	}

	queryEmbedding, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	utils.NormalizeL2(queryEmbedding)

	hits, err := e.vectorIndex.Search(ctx, queryEmbedding, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	retrieved := e.resolveChunks(ctx, hits)
	response := &models.QueryResponse{
		Question:        req.Question,
		RetrievedChunks: len(retrieved),
		Results:         retrieved,
	}
	if len(retrieved) == 0 {
		response.Answer = llm.AnswerNoContext
		response.QueryTime = time.Since(startTime).Milliseconds()
		return response, nil
	}

	texts := make([]string, len(retrieved))
	for i, r := range retrieved {
		texts[i] = r.Text
	}
	response.Answer = e.generate(ctx, req.Question, texts)
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// resolveChunks loads chunk text and the owning document's title for each hit.
// Hits whose chunk or document has been deleted since indexing are dropped.
func (e *Engine) resolveChunks(ctx context.Context, hits []*vector.VectorResult) []*models.RetrievedChunk {
	retrieved := make([]*models.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := e.storage.GetChunk(ctx, hit.ID)
		if err != nil {
			e.logger.Warn("retrieved chunk missing from storage", zap.String("chunk_id", hit.ID), zap.Error(err))
			continue
		}
		source := chunk.DocumentID
		if doc, err := e.storage.GetDocument(ctx, chunk.DocumentID); err == nil {
			source = doc.Title
		}
		retrieved = append(retrieved, &models.RetrievedChunk{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Source:     source,
			Score:      float32(hit.Score),
			Text:       chunk.Content,
		})
	}
	return retrieved
}

func (e *Engine) generate(ctx context.Context, question string, texts []string) string {
	prompt := llm.BuildPrompt(question, texts)
	answer, err := e.llm.Chat(ctx, prompt)
	if err != nil {
		e.logger.Warn("model generation failed", zap.Error(err))
		return llm.AnswerModelError
	}
	if answer == "" {
		return llm.AnswerEmpty
	}
	return answer
}
