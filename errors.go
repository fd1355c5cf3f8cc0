package rulesage

import "github.com/kailas-cloud/rulesage/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery            = domain.ErrInvalidQuery
	ErrNotFound                = domain.ErrNotFound
	ErrUpstreamUnavailable     = domain.ErrUpstreamUnavailable
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrCompletionProviderError = domain.ErrCompletionProviderError
)
