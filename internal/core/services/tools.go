package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/ports"
)

// schemaFor derives the parameter schema of a tool from its input struct
func schemaFor[T any]() domain.ToolParameters {
	// inline reflection also covers unnamed structs, which get no definition
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	params := domain.ToolParameters{Type: "object", Properties: map[string]interface{}{}}
	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tool schema for %T: %v", v, err))
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		panic(fmt.Sprintf("tool schema for %T: %v", v, err))
	}
	if params.Properties == nil {
		params.Properties = map[string]interface{}{}
	}
	return params
}

// bindArgs decodes validated tool arguments into the input struct T
func bindArgs[T any](params map[string]interface{}) (T, error) {
	var in T
	raw, err := json.Marshal(params)
	if err != nil {
		return in, err
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("invalid arguments: %w", err)
	}
	return in, nil
}

// ToolDeps carries what the built-in tools need from the outside
type ToolDeps struct {
	Config     domain.ToolsConfig
	Files      ports.FileStore // nil disables the store_* tools
	HTTPClient *http.Client    // nil uses a client with the tavily timeout
}

// NewDefaultRegistry registers every built-in tool whose dependencies are
// available, then keeps only cfg.Enabled when it is non-empty.
func NewDefaultRegistry(logger *slog.Logger, deps ToolDeps) (*domain.ToolRegistry, error) {
	cfg := deps.Config
	reg := domain.NewToolRegistry()

	tools := []*domain.Tool{
		NewGetConstantsTool(cfg.ConstantX, cfg.ConstantY),
		NewAddTool(),
		NewNumberGuessTool(cfg.GuessTarget, cfg.GuessMax),
		NewReadDocsTool(cfg.DocsRoot),
		NewTavilySearchTool(TavilyConfig{APIKey: cfg.TavilyAPIKey, URL: cfg.TavilyURL}, deps.HTTPClient),
	}
	if deps.Files != nil {
		tools = append(tools,
			NewStoreReadTool(deps.Files),
			NewStoreWriteTool(deps.Files),
			NewStoreListTool(deps.Files),
		)
	}

	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("register %s: %w", t.Name, err)
		}
	}

	if len(cfg.Enabled) > 0 {
		var unknown []string
		reg, unknown = reg.Only(cfg.Enabled)
		if len(unknown) > 0 {
			logger.Warn("unknown tools in tools.enabled", "names", strings.Join(unknown, ","))
		}
	}

	logger.Info("tool registry ready", "tools", strings.Join(reg.Names(), ","))
	return reg, nil
}
