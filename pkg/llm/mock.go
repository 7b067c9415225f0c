package llm

import (
	"context"
)

// MockTextGenerator is a mock implementation of TextGenerator for testing.
type MockTextGenerator struct {
	GenerateTextFunc  func(ctx context.Context, prompt string, systemPrompt string, maxTokens int) (string, error)
	GetModelFunc      func() string
	GenerateTextCalls int
}

var _ TextGenerator = (*MockTextGenerator)(nil)

func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string, systemPrompt string, maxTokens int) (string, error) {
	m.GenerateTextCalls++
	if m.GenerateTextFunc != nil {
		return m.GenerateTextFunc(ctx, prompt, systemPrompt, maxTokens)
	}
	return "", nil
}

func (m *MockTextGenerator) GetModel() string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc()
	}
	return "mock-model"
}
