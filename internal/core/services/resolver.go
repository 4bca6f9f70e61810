package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/manthysbr/toolchat/internal/core/domain"
)

// Resolver classifies a Decision against a ToolRegistry and runs the
// requested tool. It never retries.
type Resolver struct {
	logger *slog.Logger
	tools  *domain.ToolRegistry
}

func NewResolver(logger *slog.Logger, tools *domain.ToolRegistry) *Resolver {
	return &Resolver{logger: logger, tools: tools}
}

// Tools returns the tools offered to the model, ordered by name.
func (r *Resolver) Tools() []*domain.Tool {
	return r.tools.ListTools()
}

// Resolve turns d into exactly one Resolution. Tool handlers run
// synchronously on the caller's goroutine.
func (r *Resolver) Resolve(ctx context.Context, d domain.Decision) domain.Resolution {
	if !d.IsToolCall() {
		return domain.Resolution{Kind: domain.ResolutionModelText, Text: d.Text}
	}

	tool, ok := r.tools.Lookup(d.ToolName)
	if !ok {
		r.logger.Warn("tool not found", "tool", d.ToolName)
		return domain.Resolution{Kind: domain.ResolutionToolNotFound, ToolName: d.ToolName}
	}

	params, err := ParseArguments(d.Arguments)
	if err == nil {
		err = validateArguments(tool.Parameters, params)
	}
	if err != nil {
		r.logger.Warn("tool arguments rejected", "tool", tool.Name, "error", err)
		return domain.Resolution{
			Kind:      domain.ResolutionArgumentsParseError,
			ToolName:  tool.Name,
			Arguments: d.Arguments,
			Err:       err,
		}
	}

	result, err := executeTool(ctx, tool, params)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", tool.Name, "error", err)
		return domain.Resolution{Kind: domain.ResolutionExecutionError, ToolName: tool.Name, Err: err}
	}

	r.logger.Debug("tool executed", "tool", tool.Name)
	return domain.Resolution{Kind: domain.ResolutionExecuted, ToolName: tool.Name, Result: result}
}

// ParseArguments decodes a raw argument payload into a JSON object. An empty
// payload is treated as an empty object. Numbers stay json.Number so that
// integers keep their exact value.
func ParseArguments(raw string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]interface{}{}, nil
	}

	var params map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode arguments: trailing data after object")
	}
	if params == nil {
		return nil, errors.New("arguments must be a JSON object")
	}
	return params, nil
}

func validateArguments(params domain.ToolParameters, args map[string]interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	schema := openapi3.NewSchema()
	if err := schema.UnmarshalJSON(raw); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if err := schema.VisitJSON(args); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return checkIntegers(params, args)
}

// checkIntegers rejects integer arguments outside int64. The schema check
// accepts any whole number, including 1e300.
func checkIntegers(params domain.ToolParameters, args map[string]interface{}) error {
	for name, prop := range params.Properties {
		def, ok := prop.(map[string]interface{})
		if !ok || def["type"] != "integer" {
			continue
		}
		n, ok := args[name].(json.Number)
		if !ok {
			continue
		}
		if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
			return fmt.Errorf("argument %q: %s must be a 64-bit integer literal", name, n)
		}
	}
	return nil
}

func executeTool(ctx context.Context, tool *domain.Tool, params map[string]interface{}) (result interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return tool.Execute(ctx, params)
}

// EncodeResult renders a tool result as the content of a tool message.
// Strings pass through; everything else is JSON encoded.
func EncodeResult(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.RawMessage:
		return string(val), nil
	case []byte:
		return string(val), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(raw), nil
}
