package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const askExample = `
  # One question, fresh history, markdown rendered answer
  toolchat ask "what is get_constants x plus y?"

  # Plain text output with the tool calls on stderr
  toolchat ask --raw --verbose "read the readme.md doc"`

type AskOptions struct {
	Raw     bool
	Verbose bool
	Width   int

	prompt string
	root   *RootOptions
}

func NewAskOptions(root *RootOptions) *AskOptions {
	return &AskOptions{root: root, Width: 100}
}

func NewCmdAsk(root *RootOptions) *cobra.Command {
	o := NewAskOptions(root)

	cmd := &cobra.Command{
		Use:     "ask <prompt...>",
		Short:   "Ask one question and print the answer",
		Long:    "Run a single prompt with a fresh history. Nothing is stored.",
		Example: askExample,
		Args:    cobra.MinimumNArgs(1),
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

	cmd.Flags().BoolVar(&o.Raw, "raw", o.Raw, "print the answer without markdown rendering")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", o.Verbose, "print tool calls to stderr")
	cmd.Flags().IntVar(&o.Width, "width", o.Width, "wrap width for rendered answers")
	return cmd
}

func (o *AskOptions) Complete(args []string) error {
	o.prompt = strings.TrimSpace(strings.Join(args, " "))
	return nil
}

func (o *AskOptions) Validate() error {
	if o.prompt == "" {
		return domain.ErrEmptyPrompt
	}
	return nil
}

func (o *AskOptions) Run(ctx context.Context) error {
	a, err := o.root.setup(ctx, o.root.ErrOut)
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.newEngine(ctx, false)
	if err != nil {
		return err
	}

	resp, err := o.exchange(ctx, eng)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return resp.Failure
	}

	if o.Raw {
		fmt.Fprintln(o.root.Out, resp.Text)
		return nil
	}
	fmt.Fprintln(o.root.Out, tui.RenderMarkdown(resp.Text, o.Width))
	return nil
}

// exchange runs the bridge just long enough to answer one prompt.
func (o *AskOptions) exchange(ctx context.Context, eng *engine) (domain.Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.bridge.Run(gctx)
	})

	p := domain.NewPrompt(o.prompt)
	if err := eng.bridge.Submit(p); err != nil {
		cancel()
		g.Wait()
		return domain.Response{}, err
	}

	var resp domain.Response
	g.Go(func() error {
		defer cancel()
		steps := eng.bridge.Steps()
		for {
			select {
			case s, ok := <-steps:
				if !ok {
					steps = nil
					continue
				}
				o.printStep(s)
			case r, ok := <-eng.bridge.Responses():
				if !ok {
					return domain.ErrBridgeClosed
				}
				for {
					s, ok := eng.bridge.TryStep()
					if !ok {
						break
					}
					o.printStep(s)
				}
				resp = r
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return domain.Response{}, err
	}
	if resp.PromptID != p.ID {
		return domain.Response{}, errors.New("interrupted before an answer")
	}
	return resp, nil
}

func (o *AskOptions) printStep(s domain.StepEvent) {
	if !o.Verbose {
		return
	}
	if line := tui.StepLine(s); line != "" {
		fmt.Fprintln(o.root.ErrOut, line)
	}
}
