package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

const (
	NoResponseText    = "(no response)"
	EmptyResponseText = "(empty response)"
)

// OpenAIProposer implements ports.Proposer using an OpenAI-compatible API.
// Works with: OpenAI, Azure OpenAI, Together AI, local Ollama /v1, etc.
type OpenAIProposer struct {
	logger    *slog.Logger
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
}

// NewOpenAIProposer creates a new OpenAI-compatible proposer
func NewOpenAIProposer(logger *slog.Logger, cfg domain.LLMConfig, client *http.Client) *OpenAIProposer {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIProposer{
		logger:    logger,
		client:    client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Parameters  domain.ToolParameters `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   *string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// UsesMaxTokens reports whether model takes the legacy max_tokens field.
// 4o models do; newer families want max_completion_tokens.
func UsesMaxTokens(model string) bool {
	return strings.Contains(model, "4o")
}

func (p *OpenAIProposer) buildRequest(messages []domain.Message, tools []*domain.Tool) map[string]interface{} {
	msgs := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleTool:
			msgs = append(msgs, chatMessage{Role: "function", Name: m.ToolName, Content: m.Content})
		default:
			msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
		}
	}

	payload := map[string]interface{}{
		"model":    p.model,
		"messages": msgs,
	}

	if len(tools) > 0 {
		defs := make([]chatTool, 0, len(tools))
		for _, t := range tools {
			defs = append(defs, chatTool{
				Type: "function",
				Function: chatFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		payload["tools"] = defs
		payload["tool_choice"] = "auto"
	}

	if p.maxTokens > 0 {
		if UsesMaxTokens(p.model) {
			payload["max_tokens"] = p.maxTokens
		} else {
			payload["max_completion_tokens"] = p.maxTokens
		}
	}
	return payload
}

// Propose sends one chat completion request and maps the first choice
func (p *OpenAIProposer) Propose(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Decision, error) {
	url := fmt.Sprintf("%s/chat/completions", p.baseURL)

	payloadBytes, err := json.Marshal(p.buildRequest(messages, tools))
	if err != nil {
		return domain.Decision{}, &domain.TransportError{Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return domain.Decision{}, &domain.TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	p.logger.Debug("chat completion request", "model", p.model, "messages", len(messages), "tools", len(tools))
	start := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Decision{}, &domain.TransportError{Err: fmt.Errorf("failed to call API: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Decision{}, &domain.TransportError{Err: fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Decision{}, &domain.TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	p.logger.Debug("chat completion response", "choices", len(result.Choices), "duration_ms", time.Since(start).Milliseconds())

	if len(result.Choices) == 0 {
		return domain.TextDecision(NoResponseText), nil
	}

	msg := result.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		d := domain.ToolCallDecision(call.Function.Name, call.Function.Arguments)
		d.CallID = call.ID
		return d, nil
	}

	if msg.Content == nil || *msg.Content == "" {
		return domain.TextDecision(EmptyResponseText), nil
	}
	return domain.TextDecision(*msg.Content), nil
}
