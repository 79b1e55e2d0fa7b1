package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore is a pgvector-backed alternative to the file-persisted index
// for deployments that already run Postgres. Entries are stored unit-
// normalized, so the inner-product operator ranks identically to the
// in-memory index.
type PostgresStore struct {
	pool  *pgxpool.Pool
	model string
}

func NewPostgresStore(pool *pgxpool.Pool, model string) *PostgresStore {
	return &PostgresStore{pool: pool, model: model}
}

// ReplaceAll atomically replaces the stored vector set with the entries of a
// freshly built index. Rebuilds are whole-corpus, mirroring the in-memory
// semantics.
func (s *PostgresStore) ReplaceAll(ctx context.Context, idx *Index) (err error) {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if idx == nil || !idx.built {
		return ErrNotBuilt
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM legal_chunks"); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for _, entry := range idx.entries {
		if _, err = tx.Exec(ctx, `
			INSERT INTO legal_chunks (chunk_id, document_path, document_title, chunk_index, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, entry.ChunkID, entry.DocumentPath, entry.DocumentTitle, entry.ChunkIndex, entry.Text, pgvector.NewVector(entry.Vector)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", entry.ChunkID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Search returns the k most similar stored chunks to the query vector.
func (s *PostgresStore) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if k <= 0 {
		k = 1
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, document_path, document_title, chunk_index, content,
		       (embedding <#> $1::vector) AS neg_inner_product
		FROM legal_chunks
		ORDER BY embedding <#> $1::vector, id
		LIMIT $2
	`, pgvector.NewVector(normalize(query)), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var res Result
		var negInner float64
		if scanErr := rows.Scan(&res.Entry.ChunkID, &res.Entry.DocumentPath, &res.Entry.DocumentTitle,
			&res.Entry.ChunkIndex, &res.Entry.Text, &negInner); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		res.Score = -negInner
		results = append(results, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

var _ Searcher = (*PostgresStore)(nil)
