package redis

import (
	"context"

	"github.com/kailas-cloud/rulesage/internal/db"
)

// HGetAll returns every field of a chunk hash. Redis answers a missing key
// with an empty map, which is reported as db.ErrKeyNotFound.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return m, nil
}
