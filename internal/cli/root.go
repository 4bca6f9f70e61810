package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/manthysbr/toolchat/internal/config"
	"github.com/spf13/cobra"
)

// IOStreams are the standard streams a command reads from and writes to.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// RootOptions holds the persistent flags shared by every sub command.
type RootOptions struct {
	ConfigFile string
	LogLevel   string

	loader *config.Loader
	IOStreams
}

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"provider":  "llm.provider",
	"model":     "llm.model",
	"base-url":  "llm.base_url",
	"max-loops": "agent.max_loops",
	"db":        "storage.db_path",
	"addr":      "server.addr",
}

// NewDefaultCommand creates the `toolchat` command on the process streams.
func NewDefaultCommand() *cobra.Command {
	return NewRootCommand(IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
}

func NewRootCommand(streams IOStreams) *cobra.Command {
	o := &RootOptions{
		LogLevel:  "info",
		loader:    config.NewLoader(),
		IOStreams: streams,
	}

	chat := NewCmdChat(o)
	cmds := &cobra.Command{
		Use:   "toolchat",
		Short: "toolchat is a terminal assistant that calls tools",
		Long: `toolchat sends your prompt to a chat model together with a set of tools.
When the model asks for a tool, toolchat runs it and feeds the result back,
until the model answers or the loop limit is reached.

Without a sub command it opens the interactive chat.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          chat.RunE,
	}
	cmds.SetIn(streams.In)
	cmds.SetOut(streams.Out)
	cmds.SetErr(streams.ErrOut)

	flags := cmds.PersistentFlags()
	flags.StringVar(&o.ConfigFile, "config", o.ConfigFile, "config file (default ./toolchat.yaml or ~/.toolchat/toolchat.yaml)")
	flags.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level: debug, info, warn or error")
	flags.String("provider", "", "model provider: openai, local or anthropic")
	flags.String("model", "", "model name")
	flags.String("base-url", "", "model API base URL")
	flags.Int("max-loops", 0, "maximum proposals per prompt")
	flags.String("db", "", "DuckDB database file")
	flags.String("addr", "", "listen address for serve")

	for name, key := range flagKeys {
		if err := o.loader.BindFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmds.AddCommand(
		chat,
		NewCmdAsk(o),
		NewCmdServe(o),
		NewCmdTools(o),
		NewCmdFiles(o),
		NewCmdConfig(o),
		NewCmdMCP(o),
		NewCmdModels(o),
	)
	return cmds
}

// NewLogger builds the JSON logger every command uses.
func (o *RootOptions) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(o.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: use debug, info, warn or error", s)
	}
	return level, nil
}
