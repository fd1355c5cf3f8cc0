package domain

import (
	"context"
	"fmt"
)

// Embedder turns query text into a vector in the corpus embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one query vector with the provider tokens it cost.
// Cached results were served by the embedding cache and cost nothing.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
	Cached       bool
}

// InstructionEmbedder prefixes every query with a task instruction.
// Instruction-tuned models (Qwen3, e5, bge) embed passages bare and queries
// with the instruction, so only the retrieval side goes through this.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner. An empty instruction passes text through.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed embeds instruction+text.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	if e.instruction == "" {
		return e.inner.Embed(ctx, text)
	}
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
