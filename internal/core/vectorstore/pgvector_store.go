package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

// PgVectorStore keeps letter chunks in a pgvector table. It shares the pool
// opened by the database client.
type PgVectorStore struct {
	db *sql.DB
}

func NewPgVectorStore(db *sql.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// UpsertChunks writes one batch in a single transaction. IDs are
// deterministic ("<year>-<pos>"), so re-running the same file overwrites
// rows instead of duplicating them.
func (s *PgVectorStore) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO letter_chunks (id, year, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET year = EXCLUDED.year, content = EXCLUDED.content, embedding = EXCLUDED.embedding
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.Year, ch.Content, vec); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// SearchChunks returns the top-limit chunks nearest to the query embedding.
func (s *PgVectorStore) SearchChunks(ctx context.Context, queryVec []float32, limit int) ([]models.Chunk, error) {
	const q = `
		SELECT id, year, content, embedding
		FROM letter_chunks
		ORDER BY embedding <-> $1
		LIMIT $2
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := s.db.QueryContext(ctx, q, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var (
			ch  models.Chunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.Year, &ch.Content, &emb); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// DeleteChunksByYear drops every chunk belonging to one source year. Run
// before re-upserting a changed file so re-chunking with different
// parameters cannot orphan old vectors.
func (s *PgVectorStore) DeleteChunksByYear(ctx context.Context, year string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM letter_chunks WHERE year = $1`, year)
	return err
}

func (s *PgVectorStore) GetIngestedSource(ctx context.Context, year string) (*models.IngestedSource, error) {
	const q = `
		SELECT year, content_hash, chunk_count, updated_at
		FROM ingested_sources WHERE year = $1
	`
	var src models.IngestedSource
	err := s.db.QueryRowContext(ctx, q, year).Scan(&src.Year, &src.ContentHash, &src.ChunkCount, &src.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *PgVectorStore) RecordIngestedSource(ctx context.Context, src *models.IngestedSource) error {
	const q = `
		INSERT INTO ingested_sources (year, content_hash, chunk_count, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (year) DO UPDATE
		SET content_hash = EXCLUDED.content_hash, chunk_count = EXCLUDED.chunk_count, updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, q, src.Year, src.ContentHash, src.ChunkCount)
	return err
}

var _ core.VectorStore = (*PgVectorStore)(nil)
