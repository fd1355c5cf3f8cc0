package retrieval

import (
	"context"

	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

// Searcher is the vector search collaborator: up to n candidates for text,
// ordered by non-decreasing distance. Connection failures wrap
// domain.ErrUpstreamUnavailable.
type Searcher interface {
	Search(ctx context.Context, text string, n int) ([]candidate.Candidate, error)
}

// DocumentReader loads a single corpus chunk by id (parent category lookup).
type DocumentReader interface {
	Get(ctx context.Context, id string) (candidate.Candidate, error)
}
