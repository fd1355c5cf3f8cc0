package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/usecase/answer"
	"github.com/kailas-cloud/rulesage/internal/usecase/retrieval"
)

const rule = "================================================================================"

type resultRow struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Type     string  `json:"type,omitempty"`
	Distance float64 `json:"distance"`
}

type retrievalOut struct {
	QueryID string           `json:"query_id"`
	Intent  string           `json:"intent"`
	Results []resultRow      `json:"results"`
	Trace   *retrieval.Trace `json:"trace,omitempty"`
}

type answerOut struct {
	retrievalOut
	Answer           string  `json:"answer"`
	Context          *string `json:"context,omitempty"`
	EmbeddingTokens  int     `json:"embedding_tokens"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
}

func rows(cands []candidate.Candidate) []resultRow {
	out := make([]resultRow, len(cands))
	for i := range cands {
		c := &cands[i]
		out[i] = resultRow{ID: c.ID(), Title: c.Title(), Type: c.Meta(candidate.MetaType), Distance: c.Distance()}
	}
	return out
}

func retrievalView(resp *retrieval.Response, debug bool) retrievalOut {
	v := retrievalOut{
		QueryID: resp.Trace.QueryID,
		Intent:  string(resp.Trace.Intent),
		Results: rows(resp.Results),
	}
	if debug {
		t := resp.Trace
		v.Trace = &t
	}
	return v
}

func answerView(ans *answer.Answer, debug, showContext bool) answerOut {
	v := answerOut{
		retrievalOut:     retrievalView(&ans.Retrieval, debug),
		Answer:           ans.Text,
		EmbeddingTokens:  ans.Usage.EmbeddingTokens,
		PromptTokens:     ans.Usage.PromptTokens,
		CompletionTokens: ans.Usage.CompletionTokens,
	}
	if showContext {
		c := ans.Context
		v.Context = &c
	}
	return v
}

func printRetrieval(w io.Writer, resp *retrieval.Response, debug bool) {
	if debug {
		printTrace(w, &resp.Trace)
	}
	fmt.Fprintf(w, "Retrieved chunks (%d):\n", len(resp.Results))
	for i, r := range rows(resp.Results) {
		typ := r.Type
		if typ == "" {
			typ = "N/A"
		}
		fmt.Fprintf(w, "  %d. %s (type: %s, distance: %.4f)\n", i+1, r.Title, typ, r.Distance)
	}
}

func printAnswer(w io.Writer, ans *answer.Answer, debug, showContext bool) {
	printRetrieval(w, &ans.Retrieval, debug)

	if showContext {
		fmt.Fprintf(w, "\n%s\nCONTEXT SENT TO LLM:\n%s\n%s\n%s\n", rule, rule, ans.Context, rule)
	}

	fmt.Fprintf(w, "\n%s\nANSWER:\n%s\n%s\n%s\n", rule, rule, ans.Text, rule)
	fmt.Fprintf(w, "tokens: embedding=%d prompt=%d completion=%d\n",
		ans.Usage.EmbeddingTokens, ans.Usage.PromptTokens, ans.Usage.CompletionTokens)
}

func printTrace(w io.Writer, t *retrieval.Trace) {
	fmt.Fprintf(w, "query_id: %s\n", t.QueryID)
	fmt.Fprintf(w, "intent: %s", t.Intent)
	if len(t.Entities) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(t.Entities, " | "))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "k: %d  expanded_k: %d  pool: %d\n", t.K, t.ExpandedK, t.PoolSize)
	if len(t.QueryMustDropped) > 0 {
		fmt.Fprintf(w, "query_must dropped: %s\n", strings.Join(t.QueryMustDropped, ", "))
	}
	if len(t.TargetedHits) > 0 {
		fmt.Fprintf(w, "targeted hits: %s\n", strings.Join(t.TargetedHits, ", "))
	}
	if len(t.MatchedTitles) > 0 {
		fmt.Fprintf(w, "matched titles: %s\n", strings.Join(t.MatchedTitles, ", "))
	}
	if t.ParentCategoryID != "" {
		fmt.Fprintf(w, "parent category: %s\n", t.ParentCategoryID)
	}
	gaps := make([]string, len(t.Gaps))
	for i, g := range t.Gaps {
		gaps[i] = fmt.Sprintf("%.4f", g)
	}
	fmt.Fprintf(w, "gaps: [%s]\n", strings.Join(gaps, ", "))
	fmt.Fprintf(w, "strategy: %s  cut_index: %d  gap_threshold: %.2f  margin: %.2f\n",
		t.Strategy, t.CutIndex, t.GapThreshold, t.DistanceMargin)
	if t.Strategy == retrieval.StrategyThreshold {
		fmt.Fprintf(w, "distance threshold: %.4f\n", t.DistanceThreshold)
	}
	if len(t.Forced) > 0 {
		fmt.Fprintf(w, "forced: %s\n", strings.Join(t.Forced, ", "))
	}
	fmt.Fprintln(w)
}
