package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/internal/types"
)

// PgvectorConfig configures the Postgres-backed index. It is the backend of
// choice when a corpus is too large to embed comfortably in memory.
type PgvectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PgvectorIndex stores chunk embeddings in a pgvector table. The table is
// cleared on creation: chunks belong to a single run, same as MemoryIndex.
type PgvectorIndex struct {
	config   PgvectorConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewPgvectorIndex(config PgvectorConfig, embedder types.Embedder) (*PgvectorIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.TableName == "" {
		config.TableName = "evidence_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	idx := &PgvectorIndex{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := idx.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (p *PgvectorIndex) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT,
			chunk_index INTEGER,
			is_quote BOOLEAN,
			has_numbers BOOLEAN,
			embedding vector(%d)
		)`, p.config.TableName, p.config.VectorDim)

	_, err = p.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		p.config.TableName, p.config.TableName)

	_, err = p.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	// Chunks are per-run state; drop whatever a previous run left behind.
	_, err = p.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", p.config.TableName))
	if err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}

	return nil
}

func (p *PgvectorIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := p.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, content, chunk_index, is_quote, has_numbers, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		p.config.TableName)

	for i, chunk := range chunks {
		id := fmt.Sprintf("%s_%d", chunk.Source, chunk.ChunkIndex)
		_, err = tx.Exec(ctx, stmt,
			id,
			chunk.Source,
			chunk.Content,
			chunk.ChunkIndex,
			chunk.IsQuote,
			chunk.HasNumbers,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Search embeds the query and returns up to k chunks ordered by cosine
// similarity descending. pgvector sorts by distance ascending; similarity
// is 1 - distance so both backends rank the same way.
func (p *PgvectorIndex) Search(ctx context.Context, query string, k, fetchK int) ([]types.ScoredChunk, error) {
	if fetchK < k {
		fetchK = k
	}

	queryEmbedding, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT content, source, chunk_index, is_quote, has_numbers,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		p.config.TableName)

	rows, err := p.pool.Query(ctx, sql, pgvector.NewVector(queryEmbedding), fetchK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var scored []types.ScoredChunk
	for rows.Next() {
		var sc types.ScoredChunk
		err := rows.Scan(
			&sc.Chunk.Content,
			&sc.Chunk.Source,
			&sc.Chunk.ChunkIndex,
			&sc.Chunk.IsQuote,
			&sc.Chunk.HasNumbers,
			&sc.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scored = append(scored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(scored) > k {
		scored = scored[:k]
	}

	return scored, nil
}

func (p *PgvectorIndex) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
