package retrieval

import (
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/domain/query"
)

// Response is the outcome of one retrieval: the final ordered results plus a
// trace of every ranking decision.
type Response struct {
	Results []candidate.Candidate
	Trace   Trace
}

// Trace records how a result set was produced. It is always populated;
// transports decide whether to expose it.
type Trace struct {
	QueryID   string
	Intent    query.Intent
	Entities  []string
	K         int
	ExpandedK int
	PoolSize  int

	QueryMustDropped []string
	TargetedHits     []string
	MatchedTitles    []string
	EntityIDs        []string
	ParentCategoryID string

	Gaps              []float64
	GapThreshold      float64
	DistanceMargin    float64
	DistanceThreshold float64
	Strategy          Strategy
	CutIndex          int
	Forced            []string
}
