package rulesage

import (
	"context"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/usecase/answer"
	"github.com/kailas-cloud/rulesage/internal/usecase/retrieval"
)

// Embedder converts query text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Completer generates an answer from a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (Completion, error)
}

// Completion is generated text with token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Chunk is one ranked corpus entry.
type Chunk struct {
	ID       string
	Title    string
	Type     string
	Distance float64
	Document string
	Metadata map[string]string
}

// Trace explains how a result set was ranked.
type Trace struct {
	QueryID           string
	Intent            string
	Entities          []string
	K                 int
	ExpandedK         int
	PoolSize          int
	QueryMustDropped  []string
	TargetedHits      []string
	MatchedTitles     []string
	ParentCategoryID  string
	Gaps              []float64
	Strategy          string
	CutIndex          int
	DistanceThreshold float64
	Forced            []string
}

// Result is a ranked retrieval.
type Result struct {
	Chunks []Chunk
	Trace  Trace
	Usage  Usage
}

// Answer is a generated answer with the retrieval behind it.
type Answer struct {
	Text          string
	Context       string
	ContextChunks int
	Result        Result
	Usage         Usage
}

// Usage reports tokens spent on one call.
type Usage struct {
	EmbeddingTokens  int
	PromptTokens     int
	CompletionTokens int
}

// Health is an aggregated readiness report. Status is "ok", "degraded" or "error".
type Health struct {
	Status string
	Checks map[string]string
}

func chunksFrom(cands []candidate.Candidate) []Chunk {
	out := make([]Chunk, len(cands))
	for i := range cands {
		c := &cands[i]
		out[i] = Chunk{
			ID:       c.ID(),
			Title:    c.Title(),
			Type:     c.Meta(candidate.MetaType),
			Distance: c.Distance(),
			Document: c.Document(),
			Metadata: c.Metadata(),
		}
	}
	return out
}

func traceFrom(t *retrieval.Trace) Trace {
	return Trace{
		QueryID:           t.QueryID,
		Intent:            string(t.Intent),
		Entities:          t.Entities,
		K:                 t.K,
		ExpandedK:         t.ExpandedK,
		PoolSize:          t.PoolSize,
		QueryMustDropped:  t.QueryMustDropped,
		TargetedHits:      t.TargetedHits,
		MatchedTitles:     t.MatchedTitles,
		ParentCategoryID:  t.ParentCategoryID,
		Gaps:              t.Gaps,
		Strategy:          string(t.Strategy),
		CutIndex:          t.CutIndex,
		DistanceThreshold: t.DistanceThreshold,
		Forced:            t.Forced,
	}
}

func usageFrom(u domain.UsageSnapshot) Usage {
	return Usage{
		EmbeddingTokens:  u.EmbeddingTokens,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
	}
}

func answerFrom(a *answer.Answer) *Answer {
	u := usageFrom(a.Usage)
	return &Answer{
		Text:          a.Text,
		Context:       a.Context,
		ContextChunks: a.ContextChunks,
		Result: Result{
			Chunks: chunksFrom(a.Retrieval.Results),
			Trace:  traceFrom(&a.Retrieval.Trace),
			Usage:  Usage{EmbeddingTokens: u.EmbeddingTokens},
		},
		Usage: u,
	}
}

// embedderAdapter bridges the public Embedder to domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// completerAdapter bridges the public Completer to domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	r, err := a.inner.Complete(ctx, req.System, req.User)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	return domain.CompletionResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}, nil
}
