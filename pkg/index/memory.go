package index

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/internal/types"
)

// MemoryIndex is an in-process vector index backed by chromem-go. One index
// serves one evidence-collection run; nothing is persisted.
type MemoryIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   types.Embedder
}

func NewMemoryIndex(embedder types.Embedder) (*MemoryIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("run_chunks", nil, queryEmbeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &MemoryIndex{
		db:         db,
		collection: collection,
		embedder:   embedder,
	}, nil
}

// queryEmbeddingFunc adapts the Embedder for chromem query-time embedding.
// Chunk embeddings are computed in batch at Add time instead.
func queryEmbeddingFunc(embedder types.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

func (m *MemoryIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := m.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s_%d", chunk.Source, chunk.ChunkIndex),
			Content:   chunk.Content,
			Embedding: embeddings[i],
			Metadata: map[string]string{
				"source":      chunk.Source,
				"chunk_index": strconv.Itoa(chunk.ChunkIndex),
				"is_quote":    strconv.FormatBool(chunk.IsQuote),
				"has_numbers": strconv.FormatBool(chunk.HasNumbers),
			},
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	return nil
}

// Search returns up to k chunks for the query, similarity descending. The
// candidate pool is fetchK wide before the cut to k; chromem requires the
// pool to stay within the collection size.
func (m *MemoryIndex) Search(ctx context.Context, query string, k, fetchK int) ([]types.ScoredChunk, error) {
	if fetchK < k {
		fetchK = k
	}

	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if fetchK > count {
		fetchK = count
	}

	results, err := m.collection.Query(ctx, query, fetchK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	if len(results) > k {
		results = results[:k]
	}

	scored := make([]types.ScoredChunk, len(results))
	for i, r := range results {
		chunkIndex, _ := strconv.Atoi(r.Metadata["chunk_index"])
		scored[i] = types.ScoredChunk{
			Chunk: models.Chunk{
				Content:    r.Content,
				Source:     r.Metadata["source"],
				ChunkIndex: chunkIndex,
				IsQuote:    r.Metadata["is_quote"] == "true",
				HasNumbers: r.Metadata["has_numbers"] == "true",
			},
			Similarity: float64(r.Similarity),
		}
	}

	return scored, nil
}
