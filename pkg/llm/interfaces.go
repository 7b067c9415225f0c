// Package llm provides text-generation clients for report and SQL generation.
package llm

import (
	"context"
)

// TextGenerator defines the interface for text-generation operations.
// Responses are free text requiring defensive parsing by callers; no
// structured output is assumed. Use this interface for dependency injection
// to enable mocking in tests.
type TextGenerator interface {
	// GenerateText produces a completion for the prompt. systemPrompt may be
	// empty; maxTokens bounds the response length.
	GenerateText(ctx context.Context, prompt string, systemPrompt string, maxTokens int) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure the concrete clients implement TextGenerator at compile time.
var (
	_ TextGenerator = (*AnthropicClient)(nil)
	_ TextGenerator = (*OpenAIClient)(nil)
)
