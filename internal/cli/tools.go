package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/services"
	"github.com/spf13/cobra"
)

const toolsExample = `
  # List the tools the model can call
  toolchat tools list

  # Run a tool directly, without the model
  toolchat tools run add '{"x": 2, "y": 3}'
  toolchat tools run get_constants`

func NewCmdTools(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tools",
		Short:   "Inspect and run the built-in tools",
		Example: toolsExample,
	}
	cmd.AddCommand(NewCmdToolsList(root), NewCmdToolsRun(root))
	return cmd
}

type ToolsListOptions struct {
	Output string

	root *RootOptions
}

func NewCmdToolsList(root *RootOptions) *cobra.Command {
	o := &ToolsListOptions{root: root, Output: "table"}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(o.Output); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, "output format: table or json")
	return cmd
}

type toolView struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  domain.ToolParameters `json:"parameters"`
}

func (o *ToolsListOptions) Run(ctx context.Context) error {
	a, err := o.root.setup(ctx, o.root.ErrOut)
	if err != nil {
		return err
	}
	defer a.Close()

	tools := a.resolver.Tools()
	if o.Output == "json" {
		views := make([]toolView, 0, len(tools))
		for _, t := range tools {
			views = append(views, toolView{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
		}
		return printJSON(o.root.Out, views)
	}

	table := newTable("NAME", "PARAMETERS", "DESCRIPTION")
	for _, t := range tools {
		table.AddRow(t.Name, paramSummary(t.Parameters), t.Description)
	}
	fmt.Fprintln(o.root.Out, table)
	return nil
}

// paramSummary lists parameter names, required ones first and marked with *.
func paramSummary(p domain.ToolParameters) string {
	required := map[string]bool{}
	for _, r := range p.Required {
		required[r] = true
	}
	names := make([]string, 0, len(p.Properties))
	for name := range p.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})
	for i, n := range names {
		if required[n] {
			names[i] = n + "*"
		}
	}
	if len(names) == 0 {
		return dimColor("-")
	}
	return strings.Join(names, ", ")
}

type ToolsRunOptions struct {
	Timeout time.Duration

	name      string
	arguments string
	root      *RootOptions
}

func NewCmdToolsRun(root *RootOptions) *cobra.Command {
	o := &ToolsRunOptions{root: root, Timeout: 30 * time.Second}

	cmd := &cobra.Command{
		Use:   "run <name> [json-arguments]",
		Short: "Run one tool with JSON arguments",
		Long:  "Run a tool through the same resolver the model uses, so lookup, argument parsing and schema checks behave identically.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&o.Timeout, "timeout", o.Timeout, "tool execution timeout")
	return cmd
}

func (o *ToolsRunOptions) Complete(args []string) error {
	o.name = args[0]
	if len(args) > 1 {
		o.arguments = args[1]
	}
	return nil
}

func (o *ToolsRunOptions) Run(ctx context.Context) error {
	a, err := o.root.setup(ctx, o.root.ErrOut)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	start := time.Now()
	res := a.resolver.Resolve(ctx, domain.ToolCallDecision(o.name, o.arguments))
	if !res.Executed() {
		fmt.Fprintln(o.root.ErrOut, failColor("✗ "+o.name))
		return domain.FailureFromError(res.AsError())
	}

	out, err := services.EncodeResult(res.Result)
	if err != nil {
		return err
	}
	fmt.Fprintln(o.root.Out, out)
	fmt.Fprintln(o.root.ErrOut, okColor("✓ "+o.name), dimColor(time.Since(start).Round(time.Millisecond).String()))
	return nil
}
