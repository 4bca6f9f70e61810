package cli

import (
	"context"
	"errors"

	mcpadapter "github.com/manthysbr/toolchat/internal/adapters/mcp"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

func NewCmdMCP(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP on stdin/stdout",
		Long: `Expose the tool registry as a Model Context Protocol server on stdio.
Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), root)
		},
	}
}

func runMCP(ctx context.Context, root *RootOptions) error {
	a, err := root.setup(ctx, root.ErrOut)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := mcpadapter.NewServer(a.logger, a.resolver, Version)
	if err != nil {
		return err
	}

	if err := srv.ServeStdio(ctx, root.In, root.Out); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
