package types

import (
	"context"

	"github.com/tove/storyforge/internal/models"
)

// CompletionClient is the language model boundary: a system instruction plus
// user content in, generated text out.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ScoredChunk pairs a chunk with its similarity to a query. Higher is more
// relevant, regardless of the backing index's native ordering.
type ScoredChunk struct {
	Chunk      models.Chunk
	Similarity float64
}

// VectorIndex stores chunk embeddings for a single pipeline run and answers
// nearest-neighbor queries by text.
type VectorIndex interface {
	Add(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, k, fetchK int) ([]ScoredChunk, error)
}

// IndexFactory builds a fresh vector index for one evidence-collection run.
type IndexFactory func() (VectorIndex, error)

// TokenCounter returns a token count used for budget checks.
type TokenCounter interface {
	Count(text string) int
}
