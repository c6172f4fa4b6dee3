// Package postgres implements the embedding store on PostgreSQL with the
// pgvector extension, storing vectors in a native vector column.
package postgres

import (
	"context"
	"database/sql"
	"time"

	// PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/pawmatch/pawmatch/plugin/matcher"
)

// DB is the PostgreSQL embedding store driver.
type DB struct {
	db *sql.DB
}

// NewDB opens a PostgreSQL connection.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres db")
	}
	return &DB{db: db}, nil
}

// Migrate enables pgvector and creates the embedding table.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return errors.Wrap(err, "create vector extension")
	}
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS embedding (
			entity_id TEXT PRIMARY KEY,
			vector vector NOT NULL,
			source TEXT NOT NULL,
			created_ts TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// GetEmbedding returns the stored embedding or nil when absent.
func (d *DB) GetEmbedding(ctx context.Context, entityID string) (*matcher.Embedding, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT vector, source, created_ts FROM embedding WHERE entity_id = $1
	`, entityID)

	var vec pgvector.Vector
	var source string
	var createdAt time.Time
	if err := row.Scan(&vec, &source, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &matcher.Embedding{
		EntityID:  entityID,
		Vector:    vec.Slice(),
		Source:    source,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// UpsertEmbedding stores or replaces an embedding.
func (d *DB) UpsertEmbedding(ctx context.Context, embedding *matcher.Embedding) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO embedding (entity_id, vector, source, created_ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id) DO UPDATE SET
			vector = excluded.vector,
			source = excluded.source,
			created_ts = excluded.created_ts
	`, embedding.EntityID, pgvector.NewVector(embedding.Vector), embedding.Source, embedding.CreatedAt)
	return err
}

// DeleteEmbedding removes an embedding.
func (d *DB) DeleteEmbedding(ctx context.Context, entityID string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM embedding WHERE entity_id = $1`, entityID)
	return err
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}
