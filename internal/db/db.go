package db

import (
	"context"
	"time"
)

// Store is the read side of the rulebook index: chunk hashes, the FT vector
// index over them and a small KV area for the embedding cache.
type Store interface {
	Pinger
	HashReader
	KVStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashReader loads one chunk hash.
type HashReader interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KVStore holds opaque cached values. A non-positive ttl means no expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Searcher runs KNN queries over an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
