package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/rulesage/internal/db"
	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

// store is the consumer interface for chunk lookups (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo reads corpus chunks by id. Implements retrieval.DocumentReader.
type Repo struct {
	store store
	keys  Keyspace
}

// New creates a chunk repository.
func New(s store, keys Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// Get loads one chunk. The returned candidate has distance 0.
func (r *Repo) Get(ctx context.Context, id string) (candidate.Candidate, error) {
	fields, err := r.store.HGetAll(ctx, r.keys.Key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return candidate.Candidate{}, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
		}
		return candidate.Candidate{}, fmt.Errorf("%w: get chunk %s: %w", domain.ErrUpstreamUnavailable, id, err)
	}
	return FromHash(id, fields, 0), nil
}
