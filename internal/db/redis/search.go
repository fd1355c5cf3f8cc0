package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/rulesage/internal/db"
)

// ScoreField is the alias FT.SEARCH assigns to the KNN distance.
const ScoreField = "__vector_score"

// SearchKNN runs FT.SEARCH KNN and returns hits by ascending cosine distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := knnArgs(q)
	if err != nil {
		return nil, err
	}

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Key: q.IndexName, Err: err}
	}
	return parseKNNResult(raw)
}

func knnArgs(q *db.KNNQuery) ([]string, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = db.DefaultVectorField
	}
	args := []string{q.IndexName, fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, field, ScoreField)}

	if len(q.ReturnFields) > 0 {
		fields := slices.Clone(q.ReturnFields)
		if !slices.Contains(fields, ScoreField) {
			fields = append(fields, ScoreField)
		}
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	return append(args,
		"SORTBY", ScoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	), nil
}

// parseKNNResult decodes the RESP2 reply [total, key1, fields1, key2, fields2, ...].
// Malformed hits are skipped.
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total), Entries: make([]db.SearchEntry, 0, (len(raw)-1)/2)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		fields := fieldMap(pairs)
		entry := db.SearchEntry{Key: key, Fields: fields}
		if v, ok := fields[ScoreField]; ok {
			if d, err := strconv.ParseFloat(v, 64); err == nil {
				entry.Distance = d
			}
			delete(fields, ScoreField)
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, err := pairs[j].ToString()
		if err != nil {
			continue
		}
		value, err := pairs[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// vectorToBytes encodes a FLOAT32 vector blob.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
