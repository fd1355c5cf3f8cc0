package search

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kailas-cloud/rulesage/internal/db"
	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/repository/chunk"
)

var tracer = otel.Tracer("rulesage/search")

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

var returnFields = []string{
	chunk.FieldContent,
	candidate.MetaName,
	candidate.MetaTitle,
	candidate.MetaType,
	candidate.MetaSpellSchool,
	candidate.MetaParentCategoryID,
	candidate.MetaQueryMust,
}

// Repo is the vector search client over the chunk index.
// Implements retrieval.Searcher.
type Repo struct {
	store    store
	embedder domain.Embedder
	keys     chunk.Keyspace
}

// New creates a search repository.
func New(s store, embedder domain.Embedder, keys chunk.Keyspace) *Repo {
	return &Repo{store: s, embedder: embedder, keys: keys}
}

// Search embeds text and returns up to n nearest chunks by cosine distance,
// closest first.
func (r *Repo) Search(ctx context.Context, text string, n int) ([]candidate.Candidate, error) {
	if n <= 0 {
		return []candidate.Candidate{}, nil
	}

	ctx, span := tracer.Start(ctx, "search.KNN", trace.WithAttributes(
		attribute.String("search.index", r.keys.IndexName()),
		attribute.Int("search.k", n),
	))
	defer span.End()

	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed failed")
		return nil, fmt.Errorf("%w: vectorize query: %w", domain.ErrUpstreamUnavailable, err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.keys.IndexName(),
		VectorField:  r.keys.VectorField,
		Vector:       emb.Embedding,
		K:            n,
		ReturnFields: returnFields,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "knn failed")
		return nil, fmt.Errorf("%w: search knn %s: %w", domain.ErrUpstreamUnavailable, r.keys.Collection, err)
	}

	out := toCandidates(sr, r.keys, n)
	span.SetAttributes(attribute.Int("search.results", len(out)))
	return out, nil
}

func toCandidates(sr *db.SearchResult, keys chunk.Keyspace, n int) []candidate.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return []candidate.Candidate{}
	}

	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		out = append(out, chunk.FromHash(keys.ID(entry.Key), entry.Fields, entry.Distance))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance() < out[j].Distance()
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
