package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/manthysbr/toolchat/internal/cli"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("toolchat failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cmd := cli.NewDefaultCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return err
	}
	logger.Debug("toolchat exited")
	return nil
}
