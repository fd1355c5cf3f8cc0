package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/rulesage/internal/domain"
)

// MaxLength is the maximum accepted query length in bytes.
const MaxLength = 4096

// Intent is the detected shape of a query.
type Intent string

// Intent values.
const (
	None       Intent = "none"
	Comparison Intent = "comparison"
)

// Query is a classified retrieval request. Built once, never mutated.
type Query struct {
	raw       string
	intent    Intent
	entities  []string
	k         int
	expandedK int
}

// New validates a classified query.
// k is the caller's result budget; expandedK is the neighbor count requested from the index.
func New(raw string, c Classification, k, expandedK int) (Query, error) {
	if strings.TrimSpace(raw) == "" {
		return Query{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(raw) > MaxLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxLength)
	}
	if k <= 0 {
		return Query{}, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidQuery, k)
	}
	if expandedK < k {
		expandedK = k
	}

	q := Query{raw: raw, intent: None, k: k, expandedK: expandedK}
	if c.Intent == Comparison && len(c.Entities) == 2 {
		q.intent = Comparison
		q.entities = []string{c.Entities[0], c.Entities[1]}
	}
	return q, nil
}

// Raw returns the original query text.
func (q *Query) Raw() string { return q.raw }

// Intent returns the detected intent.
func (q *Query) Intent() Intent { return q.intent }

// Entities returns a copy of the extracted entity names (normalized).
func (q *Query) Entities() []string {
	if len(q.entities) == 0 {
		return nil
	}
	return append([]string(nil), q.entities...)
}

// K returns the caller's result budget (max_results for the gap filter).
func (q *Query) K() int { return q.k }

// ExpandedK returns the neighbor count requested from the vector index.
func (q *Query) ExpandedK() int { return q.expandedK }

// IsComparison reports whether two entities were extracted.
func (q *Query) IsComparison() bool { return q.intent == Comparison }
