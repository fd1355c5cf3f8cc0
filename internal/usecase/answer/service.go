package answer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/usecase/retrieval"
)

var tracer = otel.Tracer("rulesage/answer")

// Retriever runs the adaptive retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, raw string, k int) (retrieval.Response, error)
}

// Config holds generation settings.
type Config struct {
	Temperature float32
	MaxTokens   int
}

// DefaultConfig returns temperature 0.1 and 800 completion tokens.
func DefaultConfig() Config {
	return Config{Temperature: 0.1, MaxTokens: 800}
}

// Answer is a generated answer with the retrieval that grounded it.
type Answer struct {
	Text          string
	Context       string
	ContextChunks int
	Retrieval     retrieval.Response
	Usage         domain.UsageSnapshot
}

// Service answers questions over the rulebook corpus.
type Service struct {
	retriever Retriever
	completer domain.Completer
	assembler *Assembler
	cfg       Config
	logger    *zap.Logger
}

// New creates an answer service.
func New(r Retriever, c domain.Completer, a *Assembler, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if a == nil {
		a = NewAssembler(nil, 0)
	}
	return &Service{retriever: r, completer: c, assembler: a, cfg: cfg, logger: logger}
}

// Ask retrieves context for question and generates an answer from it.
func (s *Service) Ask(ctx context.Context, question string, k int) (Answer, error) {
	ctx, span := tracer.Start(ctx, "answer.Ask")
	defer span.End()

	usage := domain.UsageFromContext(ctx)
	if usage == nil {
		ctx, usage = domain.NewContextWithUsage(ctx)
	}

	resp, err := s.retriever.Retrieve(ctx, question, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	contextText, chunks := s.assembler.Assemble(resp.Results, resp.Trace.EntityIDs...)
	span.SetAttributes(
		attribute.Int("answer.results", len(resp.Results)),
		attribute.Int("answer.context_chunks", chunks),
	)
	if chunks < len(resp.Results) {
		s.logger.Debug("context truncated by token budget",
			zap.String("query_id", resp.Trace.QueryID),
			zap.Int("results", len(resp.Results)),
			zap.Int("kept", chunks),
		)
	}

	out, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      systemPrompt,
		User:        userPrompt(question, contextText),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	usage.AddCompletionTokens(out.PromptTokens, out.CompletionTokens)

	s.logger.Info("answer",
		zap.String("query_id", resp.Trace.QueryID),
		zap.Int("context_chunks", chunks),
		zap.Int("prompt_tokens", out.PromptTokens),
		zap.Int("completion_tokens", out.CompletionTokens),
	)

	return Answer{
		Text:          out.Text,
		Context:       contextText,
		ContextChunks: chunks,
		Retrieval:     resp,
		Usage:         usage.Snapshot(),
	}, nil
}
