package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := domain.NewToolRegistry()
	require.NoError(t, reg.Register(services.NewAddTool()))
	require.NoError(t, reg.Register(services.NewGetConstantsTool(42, 7)))

	s, err := NewServer(logger, services.NewResolver(logger, reg), "test")
	require.NoError(t, err)
	return s
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer(t)

	msg := s.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string                 `json:"name"`
				InputSchema map[string]interface{} `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Len(t, resp.Result.Tools, 2)

	names := []string{resp.Result.Tools[0].Name, resp.Result.Tools[1].Name}
	assert.ElementsMatch(t, []string{"add", "get_constants"}, names)
	for _, tool := range resp.Result.Tools {
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
}

func TestServer_Call(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		tool    string
		args    string
		isError bool
		want    string
	}{
		{"executed", "add", `{"x":2,"y":3}`, false, `{"sum":5}`},
		{"no arguments", "get_constants", `{}`, false, `{"X":42,"Y":7}`},
		{"unknown tool", "nope", `{}`, true, "tool_not_found"},
		{"bad arguments", "add", `{"x":"two","y":3}`, true, "arguments_parse_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.call(ctx, tt.tool, tt.args)
			assert.Equal(t, tt.isError, res.IsError)
			if tt.isError {
				assert.Contains(t, resultText(t, res), tt.want)
				return
			}
			assert.JSONEq(t, tt.want, resultText(t, res))
		})
	}
}

func TestServer_HandlerEncodesArguments(t *testing.T) {
	s := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Name = "add"
	req.Params.Arguments = map[string]interface{}{"x": 40, "y": 2}

	res, err := s.handle("add")(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"sum":42}`, resultText(t, res))
}
