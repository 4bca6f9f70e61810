package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/manthysbr/toolchat/internal/core/domain"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// AnthropicProposer implements ports.Proposer on the Messages API
type AnthropicProposer struct {
	logger    *slog.Logger
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicProposer builds a client from cfg. The SDK's own retries are
// disabled; failures surface once as transport errors.
func NewAnthropicProposer(logger *slog.Logger, cfg domain.LLMConfig, httpClient *http.Client) *AnthropicProposer {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &AnthropicProposer{
		logger:    logger,
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func anthropicTools(tools []*domain.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Parameters.Properties,
				Required:   t.Parameters.Required,
			},
		}})
	}
	return out
}

// buildParams splits the system preamble off and maps the rest of the
// history to alternating message params. Tool results go back as user text.
func (p *AnthropicProposer) buildParams(messages []domain.Message, tools []*domain.Tool) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
	}

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case domain.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case domain.RoleTool:
			text := fmt.Sprintf("Result of tool %s: %s", m.ToolName, m.Content)
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if len(tools) > 0 {
		params.Tools = anthropicTools(tools)
	}
	return params
}

func (p *AnthropicProposer) Propose(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Decision, error) {
	p.logger.Debug("messages request", "model", p.model, "messages", len(messages), "tools", len(tools))

	msg, err := p.client.Messages.New(ctx, p.buildParams(messages, tools))
	if err != nil {
		return domain.Decision{}, &domain.TransportError{Err: err}
	}
	if len(msg.Content) == 0 {
		return domain.TextDecision(NoResponseText), nil
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			d := domain.ToolCallDecision(v.Name, v.JSON.Input.Raw())
			d.CallID = v.ID
			return d, nil
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		}
	}

	if text.Len() == 0 {
		return domain.TextDecision(EmptyResponseText), nil
	}
	return domain.TextDecision(text.String()), nil
}
