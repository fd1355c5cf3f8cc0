package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/usecase/retrieval"
)

type mockRetriever struct {
	resp retrieval.Response
	err  error
	gotK int
}

func (m *mockRetriever) Retrieve(ctx context.Context, _ string, k int) (retrieval.Response, error) {
	m.gotK = k
	domain.UsageFromContext(ctx).AddEmbeddingTokens(5)
	return m.resp, m.err
}

type mockCompleter struct {
	req    domain.CompletionRequest
	result domain.CompletionResult
	err    error
}

func (m *mockCompleter) Complete(_ context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	m.req = req
	return m.result, m.err
}

func TestAsk_HappyPath(t *testing.T) {
	r := &mockRetriever{resp: retrieval.Response{
		Results: []candidate.Candidate{chunk("Black Dragon", "monster", "BLACK DRAGON breathes acid")},
		Trace:   retrieval.Trace{QueryID: "q-1"},
	}}
	c := &mockCompleter{result: domain.CompletionResult{Text: "Acid.", PromptTokens: 90, CompletionTokens: 3}}
	svc := New(r, c, NewAssembler(nil, 0), DefaultConfig(), zap.NewNop())

	ans, err := svc.Ask(context.Background(), "What does a black dragon breathe?", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.gotK != 7 {
		t.Errorf("expected k=7 passed through, got %d", r.gotK)
	}
	if ans.Text != "Acid." || ans.ContextChunks != 1 {
		t.Errorf("unexpected answer %+v", ans)
	}
	if !strings.Contains(c.req.User, "BLACK DRAGON breathes acid") {
		t.Errorf("context missing from prompt: %q", c.req.User)
	}
	if !strings.Contains(c.req.User, "Question: What does a black dragon breathe?") {
		t.Errorf("question missing from prompt: %q", c.req.User)
	}
	if c.req.Temperature != 0.1 || c.req.MaxTokens != 800 {
		t.Errorf("unexpected generation settings %+v", c.req)
	}
	if c.req.System == "" {
		t.Error("expected a system prompt")
	}

	want := domain.UsageSnapshot{EmbeddingTokens: 5, PromptTokens: 90, CompletionTokens: 3, Embedded: true}
	if ans.Usage != want {
		t.Errorf("usage = %+v, want %+v", ans.Usage, want)
	}
}

func TestAsk_UsesCallerUsage(t *testing.T) {
	r := &mockRetriever{}
	c := &mockCompleter{result: domain.CompletionResult{PromptTokens: 10, CompletionTokens: 2}}
	svc := New(r, c, nil, DefaultConfig(), nil)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Ask(ctx, "q", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := usage.Snapshot().CompletionTokens; got != 2 {
		t.Errorf("expected caller usage updated, got %d", got)
	}
}

func TestAsk_RetrievalError(t *testing.T) {
	r := &mockRetriever{err: domain.ErrUpstreamUnavailable}
	c := &mockCompleter{}
	svc := New(r, c, nil, DefaultConfig(), zap.NewNop())

	_, err := svc.Ask(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if c.req.User != "" {
		t.Error("completer must not be called after a retrieval failure")
	}
}

func TestAsk_CompletionError(t *testing.T) {
	r := &mockRetriever{}
	c := &mockCompleter{err: domain.ErrCompletionProviderError}
	svc := New(r, c, nil, DefaultConfig(), zap.NewNop())

	_, err := svc.Ask(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrCompletionProviderError) {
		t.Fatalf("expected ErrCompletionProviderError, got %v", err)
	}
}

func TestAsk_BudgetKeepsEntityRepresentatives(t *testing.T) {
	words := strings.Repeat("w ", 40)
	r := &mockRetriever{resp: retrieval.Response{
		Results: []candidate.Candidate{
			chunk("Black Dragon", "monster", "BLACK "+words),
			chunk("Dragon Lore 1", "monster", words),
			chunk("Dragon Lore 2", "monster", words),
			chunk("Gold Dragon", "monster", "GOLD "+words),
		},
		Trace: retrieval.Trace{QueryID: "q-2", EntityIDs: []string{"Black Dragon", "Gold Dragon"}},
	}}
	c := &mockCompleter{result: domain.CompletionResult{Text: "Both are dragons."}}
	svc := New(r, c, NewAssembler(wordCounter{}, 130), DefaultConfig(), zap.NewNop())

	ans, err := svc.Ask(context.Background(), "Black Dragon vs Gold Dragon", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.ContextChunks != 3 {
		t.Errorf("expected 3 context chunks, got %d", ans.ContextChunks)
	}
	if !strings.Contains(c.req.User, "BLACK") || !strings.Contains(c.req.User, "GOLD") {
		t.Errorf("both entities must reach the prompt: %q", c.req.User)
	}
}
