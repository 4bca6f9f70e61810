package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manthysbr/toolchat/internal/adapters/llm"
	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/spf13/cobra"
)

type ModelsOptions struct {
	Host    string
	Timeout time.Duration

	root *RootOptions
}

func NewCmdModels(root *RootOptions) *cobra.Command {
	o := &ModelsOptions{root: root, Timeout: 10 * time.Second}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models installed in the local Ollama daemon",
		Long:  "List the models the local provider can use. The host comes from --host, OLLAMA_HOST or llm.base_url, in that order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&o.Host, "host", o.Host, "Ollama host, e.g. http://localhost:11434")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", o.Timeout, "request timeout")
	return cmd
}

func (o *ModelsOptions) Complete() error {
	if o.Host != "" {
		return nil
	}
	if env := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); env != "" {
		o.Host = env
		return nil
	}
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.LLM.Provider == domain.ProviderLocal && cfg.LLM.BaseURL != domain.DefaultConfig().LLM.BaseURL {
		o.Host = cfg.LLM.BaseURL
		return nil
	}
	o.Host = llm.DefaultOllamaHost
	return nil
}

func (o *ModelsOptions) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	models, err := llm.ListLocalModels(ctx, nil, o.Host)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(o.root.ErrOut, "no local models installed; try: ollama pull llama3.1")
		return nil
	}

	table := newTable("NAME", "SIZE", "MODIFIED")
	for _, m := range models {
		table.AddRow(m.Name, humanBytes(m.SizeBytes), m.ModifiedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(o.root.Out, table)
	return nil
}
