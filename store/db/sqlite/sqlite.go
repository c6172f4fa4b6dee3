// Package sqlite implements the embedding store on SQLite. Vectors are
// stored as little-endian float32 blobs since SQLite has no vector type.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"

	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/pawmatch/pawmatch/plugin/matcher"
)

// DB is the SQLite embedding store driver.
type DB struct {
	db *sql.DB
}

// NewDB opens a SQLite database at the given DSN.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite db %s", dsn)
	}
	return &DB{db: db}, nil
}

// Migrate creates the embedding table.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS embedding (
			entity_id TEXT PRIMARY KEY,
			vector BLOB NOT NULL,
			source TEXT NOT NULL,
			created_ts INTEGER NOT NULL
		)
	`)
	return err
}

// GetEmbedding returns the stored embedding or nil when absent.
func (d *DB) GetEmbedding(ctx context.Context, entityID string) (*matcher.Embedding, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT vector, source, created_ts FROM embedding WHERE entity_id = ?
	`, entityID)

	var blob []byte
	var source string
	var createdTS int64
	if err := row.Scan(&blob, &source, &createdTS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	vector, err := DecodeVector(blob)
	if err != nil {
		return nil, err
	}
	return &matcher.Embedding{
		EntityID:  entityID,
		Vector:    vector,
		Source:    source,
		CreatedAt: time.Unix(createdTS, 0).UTC(),
	}, nil
}

// UpsertEmbedding stores or replaces an embedding.
func (d *DB) UpsertEmbedding(ctx context.Context, embedding *matcher.Embedding) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO embedding (entity_id, vector, source, created_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			vector = excluded.vector,
			source = excluded.source,
			created_ts = excluded.created_ts
	`, embedding.EntityID, EncodeVector(embedding.Vector), embedding.Source, embedding.CreatedAt.Unix())
	return err
}

// DeleteEmbedding removes an embedding.
func (d *DB) DeleteEmbedding(ctx context.Context, entityID string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM embedding WHERE entity_id = ?`, entityID)
	return err
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// EncodeVector serializes a vector as little-endian float32 bytes.
func EncodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector deserializes a little-endian float32 blob.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
