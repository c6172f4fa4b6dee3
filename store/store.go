// Package store persists entity embeddings so a restarted process does not
// re-embed every known entity. It sits behind the in-memory cache as a
// second read tier.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pawmatch/pawmatch/plugin/matcher"
)

// Driver is the database-specific embedding storage contract.
type Driver interface {
	Migrate(ctx context.Context) error
	GetEmbedding(ctx context.Context, entityID string) (*matcher.Embedding, error)
	UpsertEmbedding(ctx context.Context, embedding *matcher.Embedding) error
	DeleteEmbedding(ctx context.Context, entityID string) error
	Close() error
}

// Store provides embedding persistence over a database driver.
type Store struct {
	driver Driver
}

// New creates a store and runs migrations.
func New(ctx context.Context, driver Driver) (*Store, error) {
	if driver == nil {
		return nil, errors.New("store driver is required")
	}
	if err := driver.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "migrate embedding store")
	}
	return &Store{driver: driver}, nil
}

// GetEmbedding returns the stored embedding for an entity, or nil when the
// entity has none.
func (s *Store) GetEmbedding(ctx context.Context, entityID string) (*matcher.Embedding, error) {
	if entityID == "" {
		return nil, errors.New("entity id is required")
	}
	emb, err := s.driver.GetEmbedding(ctx, entityID)
	if err != nil {
		return nil, errors.Wrapf(err, "get embedding for %s", entityID)
	}
	return emb, nil
}

// UpsertEmbedding stores or replaces an entity's embedding.
func (s *Store) UpsertEmbedding(ctx context.Context, embedding *matcher.Embedding) error {
	if embedding == nil || embedding.EntityID == "" {
		return errors.New("embedding with entity id is required")
	}
	if err := s.driver.UpsertEmbedding(ctx, embedding); err != nil {
		return errors.Wrapf(err, "upsert embedding for %s", embedding.EntityID)
	}
	return nil
}

// DeleteEmbedding removes an entity's embedding. Deleting a missing entity
// is not an error.
func (s *Store) DeleteEmbedding(ctx context.Context, entityID string) error {
	if entityID == "" {
		return errors.New("entity id is required")
	}
	if err := s.driver.DeleteEmbedding(ctx, entityID); err != nil {
		return errors.Wrapf(err, "delete embedding for %s", entityID)
	}
	return nil
}

// Close closes the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close()
}

// Ensure Store satisfies the engine's persistence contract.
var _ matcher.EmbeddingStore = (*Store)(nil)
