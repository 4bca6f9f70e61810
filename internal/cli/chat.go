package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/manthysbr/toolchat/internal/tui"
	"github.com/spf13/cobra"
)

const chatExample = `
  # Open the interactive chat
  toolchat

  # Use a local Ollama model
  toolchat chat --provider local --model llama3.1`

type ChatOptions struct {
	LogFile string

	root *RootOptions
}

func NewChatOptions(root *RootOptions) *ChatOptions {
	return &ChatOptions{root: root}
}

func NewCmdChat(root *RootOptions) *cobra.Command {
	o := NewChatOptions(root)

	cmd := &cobra.Command{
		Use:     "chat",
		Short:   "Open the interactive chat",
		Long:    "Open the full-screen chat. Logs go to ui.log_file so they do not draw over the screen.",
		Example: chatExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&o.LogFile, "log-file", o.LogFile, "log file (default ui.log_file)")
	return cmd
}

func (o *ChatOptions) Run(ctx context.Context) error {
	base, err := o.root.loadConfig()
	if err != nil {
		return err
	}
	if o.LogFile == "" {
		o.LogFile = base.UI.LogFile
	}

	if err := os.MkdirAll(filepath.Dir(o.LogFile), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(o.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	logger, err := o.root.NewLogger(f)
	if err != nil {
		return err
	}
	logger.Info("starting chat")

	a, err := o.root.openApp(ctx, logger, base)
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.newEngine(ctx, a.cfg.Agent.KeepHistory)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eng.bridge.Start(ctx)

	m := tui.New(logger, eng.bridge, eng.chat, tui.Config{
		PollInterval: a.cfg.UI.PollInterval,
		Provider:     a.cfg.LLM.Provider,
		Model:        a.cfg.LLM.Model,
		Restored:     eng.chat.History().Len(),
	})
	return tui.Run(m)
}
