package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/manthysbr/toolchat/internal/config"
	"github.com/spf13/cobra"
)

const configExample = `
  # Show the effective configuration, secrets masked
  toolchat config show

  # Persist a setting; it survives restarts and wins over the config file
  toolchat config set llm.model gpt-4o
  toolchat config set llm.api_key sk-...`

func NewCmdConfig(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Show or change the persisted settings",
		Example: configExample,
	}
	cmd.AddCommand(newCmdConfigShow(root), newCmdConfigSet(root))
	return cmd
}

func newCmdConfigShow(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.Context(), root)
		},
	}
}

func runConfigShow(ctx context.Context, root *RootOptions) error {
	a, err := root.setup(ctx, root.ErrOut)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Clone()
	cfg.LLM.APIKey = config.MaskSecret(cfg.LLM.APIKey)
	cfg.Tools.TavilyAPIKey = config.MaskSecret(cfg.Tools.TavilyAPIKey)

	if used := root.loader.ConfigFileUsed(); used != "" {
		fmt.Fprintln(root.ErrOut, dimColor("config file: "+used))
	}
	if pinned := root.loader.Pinned(); len(pinned) > 0 {
		fmt.Fprintln(root.ErrOut, dimColor("set by flag or env: "+strings.Join(pinned, ", ")))
	}
	return printJSON(root.Out, cfg)
}

// ConfigSetOptions persists one editable key.
type ConfigSetOptions struct {
	key   string
	value string
	root  *RootOptions
}

func newCmdConfigSet(root *RootOptions) *cobra.Command {
	o := &ConfigSetOptions{root: root}

	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting in the database",
		Long:  "Persist a setting in the database. API keys are stored encrypted.\n\nEditable keys: " + strings.Join(config.EditableKeys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}
}

func (o *ConfigSetOptions) Complete(args []string) error {
	o.key = strings.ToLower(strings.TrimSpace(args[0]))
	o.value = args[1]
	return nil
}

func (o *ConfigSetOptions) Validate() error {
	if !slices.Contains(config.EditableKeys, o.key) {
		return fmt.Errorf("unknown or read-only setting %q (editable: %s)", o.key, strings.Join(config.EditableKeys, ", "))
	}
	return nil
}

func (o *ConfigSetOptions) Run(ctx context.Context) error {
	a, err := o.root.setup(ctx, o.root.ErrOut)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.settings.Set(ctx, o.key, o.value); err != nil {
		return err
	}
	fmt.Fprintln(o.root.Out, okColor("✓"), o.key, "saved")

	if slices.Contains(o.root.loader.Pinned(), o.key) {
		fmt.Fprintf(o.root.ErrOut, "note: %s is also set by a flag or %s, which wins for this process\n", o.key, config.EnvName(o.key))
	}
	return nil
}
