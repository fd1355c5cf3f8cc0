package chi

import (
	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/usecase/retrieval"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeInvalidQuery       ErrorCode = "invalid_query"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeUpstream           ErrorCode = "upstream_unavailable"
	ErrorCodeEmbeddingProvider  ErrorCode = "embedding_provider_error"
	ErrorCodeCompletionProvider ErrorCode = "completion_provider_error"
	ErrorCodeInternal           ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question    string `json:"question"`
	K           int    `json:"k,omitempty"`
	Debug       bool   `json:"debug,omitempty"`
	ShowContext bool   `json:"show_context,omitempty"`
}

// ResultItem is one ranked chunk.
type ResultItem struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Distance float64           `json:"distance"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TraceResponse exposes the ranking decisions of one retrieval.
type TraceResponse struct {
	Intent            string    `json:"intent"`
	Entities          []string  `json:"entities,omitempty"`
	K                 int       `json:"k"`
	ExpandedK         int       `json:"expanded_k"`
	PoolSize          int       `json:"pool_size"`
	QueryMustDropped  []string  `json:"query_must_dropped,omitempty"`
	TargetedHits      []string  `json:"targeted_hits,omitempty"`
	MatchedTitles     []string  `json:"matched_titles,omitempty"`
	ParentCategoryID  string    `json:"parent_category_id,omitempty"`
	Gaps              []float64 `json:"gaps"`
	GapThreshold      float64   `json:"gap_threshold"`
	DistanceMargin    float64   `json:"distance_threshold_margin"`
	DistanceThreshold float64   `json:"distance_threshold,omitempty"`
	Strategy          string    `json:"strategy"`
	CutIndex          int       `json:"cut_index"`
	Forced            []string  `json:"forced,omitempty"`
}

// RetrieveResponse is the body returned by POST /v1/retrieve.
type RetrieveResponse struct {
	QueryID string         `json:"query_id"`
	Intent  string         `json:"intent"`
	Results []ResultItem   `json:"results"`
	Trace   *TraceResponse `json:"trace,omitempty"`
}

// UsageResponse reports provider tokens spent on a request.
type UsageResponse struct {
	EmbeddingTokens  int `json:"embedding_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// AskResponse is the body returned by POST /v1/ask.
type AskResponse struct {
	QueryID string         `json:"query_id"`
	Answer  string         `json:"answer"`
	Results []ResultItem   `json:"results"`
	Usage   UsageResponse  `json:"usage"`
	Context *string        `json:"context,omitempty"`
	Trace   *TraceResponse `json:"trace,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func resultsToDTO(cands []candidate.Candidate) []ResultItem {
	items := make([]ResultItem, len(cands))
	for i := range cands {
		c := &cands[i]
		items[i] = ResultItem{
			ID:       c.ID(),
			Title:    c.Title(),
			Distance: c.Distance(),
			Document: c.Document(),
			Metadata: c.Metadata(),
		}
	}
	return items
}

func traceToDTO(t *retrieval.Trace) *TraceResponse {
	gaps := t.Gaps
	if gaps == nil {
		gaps = []float64{}
	}
	return &TraceResponse{
		Intent:            string(t.Intent),
		Entities:          t.Entities,
		K:                 t.K,
		ExpandedK:         t.ExpandedK,
		PoolSize:          t.PoolSize,
		QueryMustDropped:  t.QueryMustDropped,
		TargetedHits:      t.TargetedHits,
		MatchedTitles:     t.MatchedTitles,
		ParentCategoryID:  t.ParentCategoryID,
		Gaps:              gaps,
		GapThreshold:      t.GapThreshold,
		DistanceMargin:    t.DistanceMargin,
		DistanceThreshold: t.DistanceThreshold,
		Strategy:          string(t.Strategy),
		CutIndex:          t.CutIndex,
		Forced:            t.Forced,
	}
}

func usageToDTO(u domain.UsageSnapshot) UsageResponse {
	return UsageResponse{
		EmbeddingTokens:  u.EmbeddingTokens,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
	}
}
