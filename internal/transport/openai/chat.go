package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/metrics"
)

var tracer = otel.Tracer("rulesage/openai")

// ChatClient implements domain.Completer. It generates answers via the OpenAI-compatible chat completions API.
type ChatClient struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewChatClient creates a chat completion client. Dimensions are ignored.
func NewChatClient(cfg *Config) *ChatClient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatClient{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  cfg.Model,
		user:   cfg.User,
		logger: logger,
	}
}

// Complete sends one chat completion request.
func (c *ChatClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "openai.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		User:        c.user,
	})

	metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return domain.CompletionResult{}, parseAPIError("completion", err, domain.ErrCompletionProviderError)
	}

	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		span.SetStatus(codes.Error, "empty response")
		return domain.CompletionResult{}, fmt.Errorf("empty completion response: %w", domain.ErrCompletionProviderError)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)

	c.logger.Debug("Completion request completed",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return domain.CompletionResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
