package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/manthysbr/toolchat/internal/adapters/llm"
	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/ports"
)

// Build creates the model proposer from app configuration.
// It hides local/remote provider selection from callers.
func Build(logger *slog.Logger, config *domain.AppConfig) (ports.Proposer, error) {
	return BuildWithClient(logger, config, nil)
}

// BuildWithClient is Build with an injectable HTTP client.
func BuildWithClient(logger *slog.Logger, config *domain.AppConfig, client *http.Client) (ports.Proposer, error) {
	if config == nil {
		config = domain.DefaultConfig()
	}
	cfg := config.LLM

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", domain.ProviderOpenAI:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			cfg.BaseURL = domain.DefaultConfig().LLM.BaseURL
		}
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("llm api_key is required when provider=openai")
		}
		logger.Info("using openai provider", "base_url", cfg.BaseURL, "model", cfg.Model)
		return llm.NewOpenAIProposer(logger, cfg, client), nil

	case domain.ProviderLocal:
		host := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
		if host == "" {
			host = localHost(cfg.BaseURL)
		}
		cfg.BaseURL = llm.OllamaChatURL(host)
		cfg.APIKey = ""
		logger.Info("using local provider", "base_url", cfg.BaseURL, "model", cfg.Model)
		return llm.NewOpenAIProposer(logger, cfg, client), nil

	case domain.ProviderAnthropic:
		if strings.TrimSpace(cfg.APIKey) == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			return nil, fmt.Errorf("llm api_key is required when provider=anthropic")
		}
		if cfg.BaseURL == domain.DefaultConfig().LLM.BaseURL {
			cfg.BaseURL = ""
		}
		logger.Info("using anthropic provider", "model", cfg.Model)
		return llm.NewAnthropicProposer(logger, cfg, client), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// localHost ignores the remote default so an untouched config still points
// at the local Ollama daemon.
func localHost(baseURL string) string {
	if strings.TrimSpace(baseURL) == "" || baseURL == domain.DefaultConfig().LLM.BaseURL {
		return llm.DefaultOllamaHost
	}
	return baseURL
}
