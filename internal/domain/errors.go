package domain

import "errors"

var (
	// ErrInvalidQuery signals a rejected caller query (empty, too long, bad k).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotFound signals a missing corpus document.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable signals a vector search connection or timeout failure.
	// It is surfaced unchanged; nothing in the engine retries it.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals an answer-generation provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
)
