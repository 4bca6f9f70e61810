package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const ServerName = "toolchat"

// Server exposes the tool registry to MCP clients. Every call is classified
// by the Resolver, exactly like a model-issued tool call.
type Server struct {
	logger   *slog.Logger
	resolver *services.Resolver
	mcp      *server.MCPServer
}

// NewServer advertises every tool known to resolver.
func NewServer(logger *slog.Logger, resolver *services.Resolver, version string) (*Server, error) {
	s := &Server{
		logger:   logger,
		resolver: resolver,
		mcp:      server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
	}

	for _, t := range resolver.Tools() {
		schema, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal schema of %s: %w", t.Name, err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, schema), s.handle(t.Name))
	}
	return s, nil
}

// ServeStdio blocks serving JSON-RPC over in/out until ctx is done or in
// reaches EOF.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("mcp server listening on stdio", "tools", len(s.resolver.Tools()))
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

func (s *Server) handle(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode arguments: %v", err)), nil
		}
		return s.call(ctx, name, string(args)), nil
	}
}

func (s *Server) call(ctx context.Context, name, args string) *mcp.CallToolResult {
	res := s.resolver.Resolve(ctx, domain.ToolCallDecision(name, args))
	if !res.Executed() {
		failure := domain.FailureFromError(res.AsError())
		s.logger.Warn("mcp tool call failed", "tool", name, "kind", failure.Kind, "error", failure.Message)
		return mcp.NewToolResultError(failure.Error())
	}

	text, err := services.EncodeResult(res.Result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	s.logger.Debug("mcp tool call", "tool", name)
	return mcp.NewToolResultText(text)
}
