package providers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/manthysbr/toolchat/internal/adapters/llm"
	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	tests := []struct {
		name     string
		mutate   func(c *domain.AppConfig)
		wantType interface{}
		wantErr  string
	}{
		{"openai needs a key", func(c *domain.AppConfig) {}, nil, "api_key is required"},
		{"openai", func(c *domain.AppConfig) { c.LLM.APIKey = "sk" }, &llm.OpenAIProposer{}, ""},
		{"local needs no key", func(c *domain.AppConfig) { c.LLM.Provider = "local" }, &llm.OpenAIProposer{}, ""},
		{"anthropic", func(c *domain.AppConfig) { c.LLM.Provider = "Anthropic"; c.LLM.APIKey = "k" }, &llm.AnthropicProposer{}, ""},
		{"anthropic needs a key", func(c *domain.AppConfig) { c.LLM.Provider = "anthropic" }, nil, "api_key is required"},
		{"unknown", func(c *domain.AppConfig) { c.LLM.Provider = "carrier-pigeon" }, nil, "unsupported llm provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			tt.mutate(cfg)
			p, err := Build(logger, cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, p)
		})
	}
}

func TestLocalHost(t *testing.T) {
	assert.Equal(t, llm.DefaultOllamaHost, localHost(""))
	assert.Equal(t, llm.DefaultOllamaHost, localHost(domain.DefaultConfig().LLM.BaseURL))
	assert.Equal(t, "http://gpu:11434", localHost("http://gpu:11434"))
}
