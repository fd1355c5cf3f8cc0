package domain

import "context"

// Completer generates text from a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// CompletionRequest is one system+user completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// CompletionResult is the generated text with token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
