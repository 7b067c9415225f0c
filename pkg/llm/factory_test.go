package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/config"
)

func TestNewFromConfig_Anthropic(t *testing.T) {
	generator, err := NewFromConfig(&config.LLMConfig{
		Provider: "anthropic",
		APIKey:   "test-key",
		Model:    "claude-3-5-sonnet-20241022",
	}, zap.NewNop())

	require.NoError(t, err)
	client, ok := generator.(*AnthropicClient)
	require.True(t, ok)
	assert.Equal(t, "claude-3-5-sonnet-20241022", client.GetModel())
}

func TestNewFromConfig_OpenAI(t *testing.T) {
	generator, err := NewFromConfig(&config.LLMConfig{
		Provider: "openai",
		APIKey:   "test-key",
		Model:    "gpt-4o",
	}, zap.NewNop())

	require.NoError(t, err)
	client, ok := generator.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", client.GetModel())
}

func TestNewFromConfig_UnsupportedProvider(t *testing.T) {
	_, err := NewFromConfig(&config.LLMConfig{Provider: "bedrock"}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestNewAnthropicClient_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicClient(&AnthropicConfig{Model: "claude-3-5-sonnet-20241022"}, zap.NewNop())
	require.Error(t, err)
}

func TestNewOpenAIClient_EndpointWithoutKey(t *testing.T) {
	// Self-hosted gateways often need no API key.
	client, err := NewOpenAIClient(&OpenAIConfig{
		Endpoint: "http://localhost:8000/v1",
		Model:    "local-model",
	}, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "local-model", client.GetModel())
}
