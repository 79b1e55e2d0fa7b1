// Package records persists append-only query and event records after
// successful pipeline runs. The pipeline never depends on persistence
// succeeding.
package records

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Query struct {
	ID       string
	Question string
	Context  string
	Response string
	At       time.Time
}

type Event struct {
	ID      string
	Type    string
	Details string
	At      time.Time
}

type Recorder interface {
	SaveQuery(ctx context.Context, q Query) error
	LogEvent(ctx context.Context, e Event) error
}

// PostgresRecorder appends records to the queries and logs tables.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) SaveQuery(ctx context.Context, q Query) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.At.IsZero() {
		q.At = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO queries (id, question, context, response, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, q.ID, q.Question, q.Context, q.Response, q.At); err != nil {
		return fmt.Errorf("insert query record: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) LogEvent(ctx context.Context, e Event) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO logs (id, event_type, details, created_at)
		VALUES ($1, $2, $3, $4)
	`, e.ID, e.Type, e.Details, e.At); err != nil {
		return fmt.Errorf("insert event record: %w", err)
	}
	return nil
}

var _ Recorder = (*PostgresRecorder)(nil)
