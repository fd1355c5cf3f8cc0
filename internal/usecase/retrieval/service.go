package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/domain/query"
	logpkg "github.com/kailas-cloud/rulesage/internal/logger"
	"github.com/kailas-cloud/rulesage/internal/metrics"
)

var tracer = otel.Tracer("rulesage/retrieval")

// Service is the adaptive retrieval engine. It holds only immutable
// configuration and collaborators and is safe for concurrent use.
type Service struct {
	search Searcher
	docs   DocumentReader
	cfg    Config
	logger *zap.Logger
}

// New creates a retrieval service. docs may be nil, which disables
// parent category insertion.
func New(search Searcher, docs DocumentReader, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{search: search, docs: docs, cfg: cfg, logger: logger}
}

// Retrieve classifies raw, searches with a widened pool when two entities
// are compared, puts the named entities first and trims the sequence at the
// first significant distance gap. k == 0 selects the configured default.
func (s *Service) Retrieve(ctx context.Context, raw string, k int) (Response, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Retrieve")
	defer span.End()

	resp, err := s.retrieve(ctx, raw, k)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	intent := resp.Trace.Intent
	if intent == "" {
		intent = query.None
	}
	metrics.RetrievalQueriesTotal.WithLabelValues(string(intent), status).Inc()
	return resp, err
}

func (s *Service) retrieve(ctx context.Context, raw string, k int) (Response, error) {
	if k == 0 {
		k = s.cfg.DefaultK
	}
	if s.cfg.MaxK > 0 && k > s.cfg.MaxK {
		return Response{}, fmt.Errorf("%w: k must be at most %d, got %d", domain.ErrInvalidQuery, s.cfg.MaxK, k)
	}

	c := query.Classify(raw)
	q, err := query.New(raw, c, k, expandedK(c.Intent, k, s.cfg.ExpansionFactor, s.cfg.ExpansionCap))
	if err != nil {
		return Response{}, err
	}

	tr := Trace{
		QueryID:        uuid.NewString(),
		Intent:         q.Intent(),
		Entities:       q.Entities(),
		K:              q.K(),
		ExpandedK:      q.ExpandedK(),
		GapThreshold:   s.cfg.GapThreshold,
		DistanceMargin: s.cfg.DistanceMargin,
		CutIndex:       -1,
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("retrieval.query_id", tr.QueryID),
		attribute.String("retrieval.intent", string(tr.Intent)),
		attribute.Int("retrieval.expanded_k", tr.ExpandedK),
	)
	log := logpkg.FromContext(ctx, s.logger).
		With(zap.String("query_id", tr.QueryID)).
		With(logpkg.TraceFields(ctx)...)

	pool, err := s.searchPool(ctx, q.Raw(), q.ExpandedK())
	if err != nil {
		return Response{Trace: tr}, fmt.Errorf("vector search: %w", err)
	}
	tr.PoolSize = len(pool)
	log.Debug("Candidate pool",
		zap.String("intent", string(tr.Intent)),
		zap.Strings("entities", tr.Entities),
		zap.Int("expanded_k", tr.ExpandedK),
		zap.Int("pool", len(pool)),
	)

	if len(pool) == 0 {
		tr.Strategy = StrategyEmpty
		s.observe(log, tr, 0)
		return Response{Results: []candidate.Candidate{}, Trace: tr}, nil
	}

	if s.cfg.QueryMustFilter {
		pool, tr.QueryMustDropped = s.applyQueryMust(log, q.Raw(), q.Entities(), pool)
		metrics.RetrievalQueryMustDroppedTotal.Add(float64(len(tr.QueryMustDropped)))
	}

	if q.IsComparison() && s.cfg.TargetedEntitySearch {
		pool, tr.TargetedHits = s.searchMissingEntities(ctx, log, q.Entities(), pool)
	}

	ordered, reps := prioritize(pool, q.Entities())
	for i := range reps {
		tr.MatchedTitles = append(tr.MatchedTitles, reps[i].Title())
		tr.EntityIDs = append(tr.EntityIDs, reps[i].ID())
	}

	if s.cfg.ParentCategory {
		ordered, tr.ParentCategoryID = s.insertParentCategory(ctx, log, ordered)
	}

	out := gapFilter(ordered, filterParams{
		gapThreshold:   s.cfg.GapThreshold,
		distanceMargin: s.cfg.DistanceMargin,
		minResults:     s.cfg.MinResults,
		maxResults:     q.K(),
	}, reps)

	tr.Gaps = out.gaps
	tr.Strategy = out.strategy
	tr.CutIndex = out.cutIndex
	tr.DistanceThreshold = out.threshold
	for i := range out.forced {
		tr.Forced = append(tr.Forced, out.forced[i].Title())
	}
	metrics.RetrievalForcedEntitiesTotal.Add(float64(len(out.forced)))

	s.observe(log, tr, len(out.kept))
	return Response{Results: out.kept, Trace: tr}, nil
}

func (s *Service) searchPool(ctx context.Context, text string, n int) ([]candidate.Candidate, error) {
	ctx, span := tracer.Start(ctx, "retrieval.VectorSearch",
		trace.WithAttributes(attribute.Int("search.n", n)))
	defer span.End()

	start := time.Now()
	pool, err := s.search.Search(ctx, text, n)
	metrics.VectorSearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	span.SetAttributes(attribute.Int("search.returned", len(pool)))
	return pool, nil
}

func (s *Service) observe(log *zap.Logger, tr Trace, results int) {
	metrics.RetrievalResults.WithLabelValues(string(tr.Intent)).Observe(float64(results))
	metrics.RetrievalCutsTotal.WithLabelValues(string(tr.Strategy)).Inc()

	log.Info("retrieval",
		zap.String("intent", string(tr.Intent)),
		zap.Int("k", tr.K),
		zap.Int("pool", tr.PoolSize),
		zap.Int("results", results),
		zap.String("strategy", string(tr.Strategy)),
		zap.Int("cut_index", tr.CutIndex),
		zap.Strings("forced", tr.Forced),
		zap.Int("query_must_dropped", len(tr.QueryMustDropped)),
	)
}
