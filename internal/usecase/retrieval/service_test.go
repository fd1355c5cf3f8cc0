package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/domain/query"
	logpkg "github.com/kailas-cloud/rulesage/internal/logger"
)

// --- Mocks ---

type searchCall struct {
	text string
	n    int
}

type mockSearcher struct {
	mu       sync.Mutex
	fallback []candidate.Candidate
	byText   map[string][]candidate.Candidate
	errs     map[string]error
	err      error
	calls    []searchCall
}

func (m *mockSearcher) Search(_ context.Context, text string, n int) ([]candidate.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, searchCall{text: text, n: n})
	if err, ok := m.errs[text]; ok {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	pool, ok := m.byText[text]
	if !ok {
		pool = m.fallback
	}
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool, nil
}

func (m *mockSearcher) callsSnapshot() []searchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]searchCall(nil), m.calls...)
}

type mockDocs struct {
	docs  map[string]candidate.Candidate
	err   error
	calls int
}

func (m *mockDocs) Get(_ context.Context, id string) (candidate.Candidate, error) {
	m.calls++
	if m.err != nil {
		return candidate.Candidate{}, m.err
	}
	d, ok := m.docs[id]
	if !ok {
		return candidate.Candidate{}, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func withMeta(id, title string, d float64, meta map[string]string) candidate.Candidate {
	return candidate.New(id, title, d, "doc "+id, meta)
}

// dragonPool is a 15-candidate comparison pool: Black Dragon near the top,
// Gold Dragon far down.
func dragonPool() []candidate.Candidate {
	ds := []float64{0.12, 0.15, 0.16, 0.17, 0.18, 0.19, 0.20, 0.21, 0.22, 0.23, 0.24, 0.25, 0.26, 0.48, 0.50}
	pool := make([]candidate.Candidate, len(ds))
	for i, d := range ds {
		title := fmt.Sprintf("Dragon Lore %d", i)
		switch i {
		case 1:
			title = "Black Dragon"
		case 13:
			title = "Gold Dragon"
		}
		pool[i] = titled(fmt.Sprintf("c%d", i), title, d)
	}
	return pool
}

// --- Tests ---

func TestRetrieve_ScenarioC_ComparisonKeepsBothEntities(t *testing.T) {
	s := &mockSearcher{fallback: dragonPool()}
	svc := New(s, nil, DefaultConfig(), nil)

	resp, err := svc.Retrieve(context.Background(), "Black Dragon vs Gold Dragon", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := s.callsSnapshot()
	if len(calls) != 1 || calls[0].n != 15 {
		t.Fatalf("expected one search for 15 neighbors, got %+v", calls)
	}

	titles := make(map[string]bool)
	for i := range resp.Results {
		titles[resp.Results[i].Title()] = true
	}
	if !titles["Black Dragon"] || !titles["Gold Dragon"] {
		t.Errorf("both entities must be present, got %v", candidate.IDs(resp.Results))
	}
	if len(resp.Results) > 5+2 {
		t.Errorf("expected at most 7 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Title() != "Black Dragon" {
		t.Errorf("expected Black Dragon first, got %q", resp.Results[0].Title())
	}

	tr := resp.Trace
	if tr.Intent != query.Comparison {
		t.Errorf("expected comparison intent, got %q", tr.Intent)
	}
	if diff := cmp.Diff([]string{"black dragon", "gold dragon"}, tr.Entities); diff != "" {
		t.Errorf("entities mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Black Dragon", "Gold Dragon"}, tr.MatchedTitles); diff != "" {
		t.Errorf("matched titles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Gold Dragon"}, tr.Forced); diff != "" {
		t.Errorf("forced mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c1", "c13"}, tr.EntityIDs); diff != "" {
		t.Errorf("entity ids mismatch (-want +got):\n%s", diff)
	}
	if tr.QueryID == "" {
		t.Error("expected query id")
	}
	if len(tr.Gaps) != 14 {
		t.Errorf("expected 14 gaps, got %d", len(tr.Gaps))
	}
}

func TestRetrieve_ComparisonPhrasingsKeepBothEntities(t *testing.T) {
	queries := []string{
		"Compare Black Dragon vs Gold Dragon",
		"Compare the Black Dragon versus the Gold Dragon",
		"Gold Dragon vs Black Dragon. Which breathes acid?",
		"Black dragon vs. gold dragon. Which one is lawful?",
		"Planning a lair fight. Black Dragon versus Gold Dragon?",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			svc := New(&mockSearcher{fallback: dragonPool()}, nil, DefaultConfig(), nil)

			resp, err := svc.Retrieve(context.Background(), q, 5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			ids := make(map[string]bool)
			for i := range resp.Results {
				ids[resp.Results[i].ID()] = true
			}
			if !ids["c1"] || !ids["c13"] {
				t.Errorf("both entities must be present, got %v (entities %q)",
					candidate.IDs(resp.Results), resp.Trace.Entities)
			}
			if len(resp.Trace.EntityIDs) != 2 {
				t.Errorf("expected two entity representatives, got %v", resp.Trace.EntityIDs)
			}
		})
	}
}

func TestRetrieve_ScenarioD_EmptyPool(t *testing.T) {
	svc := New(&mockSearcher{}, nil, DefaultConfig(), nil)

	resp, err := svc.Retrieve(context.Background(), "rules for underwater combat", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", resp.Results)
	}
	if resp.Trace.Strategy != StrategyEmpty {
		t.Errorf("expected empty strategy, got %q", resp.Trace.Strategy)
	}
}

func TestRetrieve_NoneIntentSearchesK(t *testing.T) {
	s := &mockSearcher{fallback: seq(0.12, 0.18, 0.22, 0.35, 0.50)}
	svc := New(s, nil, DefaultConfig(), nil)

	resp, err := svc.Retrieve(context.Background(), "How does turning undead work?", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := s.callsSnapshot()
	if len(calls) != 1 || calls[0].n != 5 {
		t.Fatalf("expected one search for 5 neighbors, got %+v", calls)
	}
	if diff := cmp.Diff([]string{"c0", "c1", "c2"}, candidate.IDs(resp.Results)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if resp.Trace.Strategy != StrategyGap || resp.Trace.CutIndex != 2 {
		t.Errorf("expected gap cut at 2, got %q at %d", resp.Trace.Strategy, resp.Trace.CutIndex)
	}
}

func TestRetrieve_DefaultK(t *testing.T) {
	s := &mockSearcher{}
	svc := New(s, nil, DefaultConfig(), nil)

	if _, err := svc.Retrieve(context.Background(), "owlbear", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := s.callsSnapshot(); calls[0].n != 5 {
		t.Errorf("expected default k 5, got %d", calls[0].n)
	}
}

func TestRetrieve_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
		k     int
	}{
		{"empty query", "", 5},
		{"negative k", "owlbear", -1},
		{"k above max", "owlbear", 51},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &mockSearcher{}
			svc := New(s, nil, DefaultConfig(), nil)

			_, err := svc.Retrieve(context.Background(), tc.query, tc.k)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
			if len(s.callsSnapshot()) != 0 {
				t.Error("search must not be called for invalid input")
			}
		})
	}
}

func TestRetrieve_UpstreamErrorSurfaces(t *testing.T) {
	s := &mockSearcher{err: fmt.Errorf("%w: dial tcp: connection refused", domain.ErrUpstreamUnavailable)}
	svc := New(s, nil, DefaultConfig(), nil)

	_, err := svc.Retrieve(context.Background(), "owlbear", 5)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(s.callsSnapshot()) != 1 {
		t.Error("expected exactly one search attempt")
	}
}

func TestRetrieve_QueryMustFilter(t *testing.T) {
	pool := []candidate.Candidate{
		withMeta("cleric-ac6", "Cleric Attack Matrix AC 6", 0.10, map[string]string{
			candidate.MetaQueryMust: `{"contain_one_of":[["cleric","clerics"],["armor class 6","ac 6"]]}`,
		}),
		withMeta("fighter-ac6", "Fighter Attack Matrix AC 6", 0.11, map[string]string{
			candidate.MetaQueryMust: `{"contain_one_of":[["fighter","fighters"],["armor class 6","ac 6"]]}`,
		}),
		withMeta("notes", "Explanatory Notes", 0.12, map[string]string{
			candidate.MetaType:      "reference",
			candidate.MetaQueryMust: `{"contain":"psionic"}`,
		}),
		withMeta("broken", "Broken Requirement", 0.13, map[string]string{
			candidate.MetaQueryMust: `{"contain":`,
		}),
	}
	svc := New(&mockSearcher{fallback: pool}, nil, DefaultConfig(), nil)

	resp, err := svc.Retrieve(context.Background(), "What does a 7th level cleric need to hit armor class 6?", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"fighter-ac6"}, resp.Trace.QueryMustDropped); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"cleric-ac6", "notes", "broken"}, candidate.IDs(resp.Results)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieve_StageLogsCarryQueryID(t *testing.T) {
	pool := []candidate.Candidate{
		withMeta("a", "A", 0.10, nil),
		withMeta("broken", "Broken Requirement", 0.11, map[string]string{
			candidate.MetaQueryMust: `{"contain":`,
		}),
	}
	core, logs := observer.New(zap.DebugLevel)
	ctx := logpkg.ContextWithLogger(context.Background(), zap.New(core))
	svc := New(&mockSearcher{fallback: pool}, nil, DefaultConfig(), zap.NewNop())

	resp, err := svc.Retrieve(ctx, "cleric spells", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("Ignoring malformed query_must").All()
	if len(entries) != 1 {
		t.Fatalf("expected one malformed query_must entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["query_id"]; got != resp.Trace.QueryID {
		t.Errorf("query_id = %v, want %q", got, resp.Trace.QueryID)
	}
}

func TestRetrieve_QueryMustFilterDisabled(t *testing.T) {
	pool := []candidate.Candidate{
		withMeta("a", "A", 0.10, nil),
		withMeta("b", "B", 0.11, map[string]string{candidate.MetaQueryMust: `{"contain":"fighter"}`}),
	}
	cfg := DefaultConfig()
	cfg.QueryMustFilter = false
	svc := New(&mockSearcher{fallback: pool}, nil, cfg, nil)

	resp, err := svc.Retrieve(context.Background(), "cleric spells", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestRetrieve_TargetedEntitySearch(t *testing.T) {
	pool := []candidate.Candidate{
		titled("bd", "Black Dragon", 0.15),
		titled("l1", "Dragon Lore", 0.18),
		titled("l2", "Dragon Habitat", 0.20),
	}
	s := &mockSearcher{
		fallback: pool,
		byText: map[string][]candidate.Candidate{
			"gold dragon": {titled("gd", "Gold Dragon", 0.30)},
		},
	}
	cfg := DefaultConfig()
	cfg.TargetedEntitySearch = true
	svc := New(s, nil, cfg, nil)

	resp, err := svc.Retrieve(context.Background(), "black dragon vs gold dragon", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"gd"}, resp.Trace.TargetedHits); diff != "" {
		t.Errorf("targeted hits mismatch (-want +got):\n%s", diff)
	}
	ids := candidate.IDs(resp.Results)
	if len(ids) < 2 || ids[0] != "bd" || ids[1] != "gd" {
		t.Errorf("expected entities first, got %v", ids)
	}

	var targeted *searchCall
	for _, c := range s.callsSnapshot() {
		if c.text == "gold dragon" {
			targeted = &c
		}
	}
	if targeted == nil || targeted.n != 1 {
		t.Errorf("expected a 1-NN search for the missing entity, got %+v", s.callsSnapshot())
	}
}

func TestRetrieve_TargetedEntitySearchFailureIgnored(t *testing.T) {
	s := &mockSearcher{
		fallback: []candidate.Candidate{titled("bd", "Black Dragon", 0.15), titled("x", "Lore", 0.2)},
		errs:     map[string]error{"gold dragon": errors.New("boom")},
	}
	cfg := DefaultConfig()
	cfg.TargetedEntitySearch = true
	svc := New(s, nil, cfg, nil)

	resp, err := svc.Retrieve(context.Background(), "black dragon vs gold dragon", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Trace.TargetedHits) != 0 {
		t.Errorf("expected no targeted hits, got %v", resp.Trace.TargetedHits)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestRetrieve_ParentCategoryInsertion(t *testing.T) {
	pool := []candidate.Candidate{
		withMeta("m1", "Red Dragon", 0.20, map[string]string{candidate.MetaParentCategoryID: "cat-dragons"}),
		titled("m2", "Blue Dragon", 0.22),
		titled("m3", "Green Dragon", 0.24),
		titled("m4", "White Dragon", 0.26),
	}
	docs := &mockDocs{docs: map[string]candidate.Candidate{
		"cat-dragons": withMeta("cat-dragons", "Dragons", 0, map[string]string{candidate.MetaType: "category"}),
	}}
	svc := New(&mockSearcher{fallback: pool}, docs, DefaultConfig(), nil)

	resp, err := svc.Retrieve(context.Background(), "red dragon breath weapon", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Results) < 2 || resp.Results[1].ID() != "cat-dragons" {
		t.Fatalf("expected category at position 1, got %v", candidate.IDs(resp.Results))
	}
	if got := resp.Results[1].Distance(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("expected category distance 0.25, got %v", got)
	}
	if resp.Trace.ParentCategoryID != "cat-dragons" {
		t.Errorf("expected parent id in trace, got %q", resp.Trace.ParentCategoryID)
	}
}

func TestRetrieve_ParentCategorySkipped(t *testing.T) {
	t.Run("already in pool", func(t *testing.T) {
		pool := []candidate.Candidate{
			withMeta("m1", "Red Dragon", 0.20, map[string]string{candidate.MetaParentCategoryID: "cat"}),
			titled("cat", "Dragons", 0.21),
		}
		docs := &mockDocs{}
		svc := New(&mockSearcher{fallback: pool}, docs, DefaultConfig(), nil)

		if _, err := svc.Retrieve(context.Background(), "red dragon", 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if docs.calls != 0 {
			t.Errorf("expected no lookup, got %d", docs.calls)
		}
	})

	t.Run("lookup fails", func(t *testing.T) {
		pool := []candidate.Candidate{
			withMeta("m1", "Red Dragon", 0.20, map[string]string{candidate.MetaParentCategoryID: "cat"}),
			titled("m2", "Blue Dragon", 0.21),
		}
		docs := &mockDocs{err: errors.New("connection reset")}
		svc := New(&mockSearcher{fallback: pool}, docs, DefaultConfig(), nil)

		resp, err := svc.Retrieve(context.Background(), "red dragon", 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"m1", "m2"}, candidate.IDs(resp.Results)); diff != "" {
			t.Errorf("results mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		pool := []candidate.Candidate{
			withMeta("m1", "Red Dragon", 0.20, map[string]string{candidate.MetaParentCategoryID: "cat"}),
			titled("m2", "Blue Dragon", 0.21),
		}
		docs := &mockDocs{docs: map[string]candidate.Candidate{"cat": titled("cat", "Dragons", 0)}}
		cfg := DefaultConfig()
		cfg.ParentCategory = false
		svc := New(&mockSearcher{fallback: pool}, docs, cfg, nil)

		if _, err := svc.Retrieve(context.Background(), "red dragon", 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if docs.calls != 0 {
			t.Errorf("expected no lookup, got %d", docs.calls)
		}
	})
}

func TestRetrieve_ConcurrentUse(t *testing.T) {
	s := &mockSearcher{fallback: dragonPool()}
	svc := New(s, nil, DefaultConfig(), nil)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := "Black Dragon vs Gold Dragon"
			if i%2 == 0 {
				q = "dragon lore"
			}
			if _, err := svc.Retrieve(context.Background(), q, 5); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}
