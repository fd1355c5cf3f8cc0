package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects provider token usage for a single request.
// The handler puts a mutable pointer into the context before calling the
// service; collaborators add to it; the handler reads it for the response.
// Targeted entity searches embed concurrently, so updates are locked.
type Usage struct {
	mu               sync.Mutex
	embeddingTokens  int
	promptTokens     int
	completionTokens int
	embedded         bool
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records embedding tokens. A cache hit records zero but
// still marks the request as embedded.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.embedded = true
	u.mu.Unlock()
}

// AddCompletionTokens records answer generation tokens.
func (u *Usage) AddCompletionTokens(prompt, completion int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.promptTokens += prompt
	u.completionTokens += completion
	u.mu.Unlock()
}

// UsageSnapshot is a point-in-time copy of Usage.
type UsageSnapshot struct {
	EmbeddingTokens  int
	PromptTokens     int
	CompletionTokens int
	Embedded         bool
}

// Snapshot returns the current totals. Safe on a nil receiver.
func (u *Usage) Snapshot() UsageSnapshot {
	if u == nil {
		return UsageSnapshot{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsageSnapshot{
		EmbeddingTokens:  u.embeddingTokens,
		PromptTokens:     u.promptTokens,
		CompletionTokens: u.completionTokens,
		Embedded:         u.embedded,
	}
}
