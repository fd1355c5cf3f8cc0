package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/metrics"
)

// Config holds the provider settings shared by Embedder and ChatClient.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

// Embedder implements domain.Embedder against the OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// NewEmbedder creates an embedding provider. A zero Dimensions leaves the
// vector size to the model.
func NewEmbedder(cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     newClient(cfg.APIKey, cfg.BaseURL),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed returns the vector for text. Runs of whitespace (newlines included)
// are collapsed to a single space before the request.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ctx, span := tracer.Start(ctx, "openai.Embed")
	defer span.End()
	span.SetAttributes(attribute.String("embedding.model", e.model))

	req := openai.EmbeddingRequest{
		Input:          []string{normalizeInput(text)},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		e.fail("api_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return domain.EmbeddingResult{}, parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	case len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0:
		e.fail("empty_response")
		span.SetStatus(codes.Error, "empty response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	usage := resp.Usage
	e.succeed(elapsed, usage)
	span.SetAttributes(
		attribute.Int("embedding.dimensions", len(resp.Data[0].Embedding)),
		attribute.Int("embedding.total_tokens", usage.TotalTokens),
	)
	e.logger.Debug("Embedding request completed",
		zap.String("model", e.model),
		zap.Duration("duration", elapsed),
		zap.Int("total_tokens", usage.TotalTokens),
	)

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: usage.PromptTokens,
		TotalTokens:  usage.TotalTokens,
	}, nil
}

func (e *Embedder) fail(reason string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, reason).Inc()
}

func (e *Embedder) succeed(elapsed time.Duration, usage openai.Usage) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(elapsed.Seconds())
	if usage.TotalTokens == 0 {
		return
	}
	metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(usage.PromptTokens))
	metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(usage.TotalTokens))
}

// HealthCheck lists models; it costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func normalizeInput(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
