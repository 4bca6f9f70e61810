package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/services"
	"github.com/spf13/cobra"
)

const filesExample = `
  # Store a file and read it back
  toolchat files put notes/todo.md ./todo.md
  echo "hello" | toolchat files put notes/hello.txt
  toolchat files get notes/todo.md

  # Copy a directory in and out of the store
  toolchat files import ./docs docs
  toolchat files export ./out docs`

// FilesOptions is shared by the files sub commands.
type FilesOptions struct {
	Output  string
	OutFile string

	root *RootOptions
}

func NewFilesOptions(root *RootOptions) *FilesOptions {
	return &FilesOptions{root: root, Output: "table"}
}

func NewCmdFiles(root *RootOptions) *cobra.Command {
	o := NewFilesOptions(root)

	cmd := &cobra.Command{
		Use:     "files",
		Short:   "Manage the key-value file store the store_* tools use",
		Example: filesExample,
	}

	ls := &cobra.Command{
		Use:     "ls [prefix]",
		Aliases: []string{"list"},
		Short:   "List stored files",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(o.Output); err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return o.withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				return o.list(ctx, a, prefix)
			})
		},
	}
	ls.Flags().StringVarP(&o.Output, "output", "o", o.Output, "output format: table or json")

	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Print a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				return o.get(ctx, a, args[0])
			})
		},
	}
	get.Flags().StringVarP(&o.OutFile, "out", "f", o.OutFile, "write to this local file instead of stdout")

	put := &cobra.Command{
		Use:   "put <path> [local-file]",
		Short: "Store a local file, or stdin when no file is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				return o.put(ctx, a, args)
			})
		},
	}

	rm := &cobra.Command{
		Use:     "rm <path>...",
		Aliases: []string{"delete"},
		Short:   "Delete stored files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				for _, arg := range args {
					p, err := domain.CleanFilePath(arg)
					if err != nil {
						return err
					}
					if err := a.repo.DeleteFile(ctx, p); err != nil {
						return err
					}
					fmt.Fprintln(o.root.Out, "deleted", p)
				}
				return nil
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import <dir> [prefix]",
		Short: "Copy every file under a local directory into the store",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				n, err := services.ImportDir(ctx, a.repo, args[0], optionalArg(args, 1))
				if err != nil {
					return fmt.Errorf("import %s: %w", args[0], err)
				}
				fmt.Fprintf(o.root.Out, "imported %d files\n", n)
				return nil
			})
		},
	}

	exp := &cobra.Command{
		Use:   "export <dir> [prefix]",
		Short: "Write stored files under prefix into a local directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				n, err := services.ExportDir(ctx, a.repo, args[0], optionalArg(args, 1))
				if err != nil {
					return fmt.Errorf("export to %s: %w", args[0], err)
				}
				fmt.Fprintf(o.root.Out, "exported %d files\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(ls, get, put, rm, imp, exp)
	return cmd
}

func (o *FilesOptions) withStore(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := o.root.setup(ctx, o.root.ErrOut)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (o *FilesOptions) list(ctx context.Context, a *app, prefix string) error {
	files, err := a.repo.ListFiles(ctx, prefix)
	if err != nil {
		return err
	}
	if o.Output == "json" {
		if files == nil {
			files = []domain.StoredFile{}
		}
		return printJSON(o.root.Out, files)
	}

	table := newTable("PATH", "SIZE", "MODIFIED")
	for _, f := range files {
		table.AddRow(f.Path, humanBytes(f.SizeBytes), f.ModifiedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(o.root.Out, table)
	return nil
}

func (o *FilesOptions) get(ctx context.Context, a *app, arg string) error {
	p, err := domain.CleanFilePath(arg)
	if err != nil {
		return err
	}
	f, err := a.repo.GetFile(ctx, p)
	if err != nil {
		return err
	}
	if o.OutFile == "" {
		_, err = o.root.Out.Write(f.Data)
		return err
	}
	if err := os.WriteFile(o.OutFile, f.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.OutFile, err)
	}
	fmt.Fprintf(o.root.ErrOut, "wrote %s (%s)\n", o.OutFile, humanBytes(f.SizeBytes))
	return nil
}

func (o *FilesOptions) put(ctx context.Context, a *app, args []string) error {
	p, err := domain.CleanFilePath(args[0])
	if err != nil {
		return err
	}

	var data []byte
	if src := optionalArg(args, 1); src != "" {
		data, err = os.ReadFile(src)
	} else {
		data, err = io.ReadAll(o.root.In)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	if err := a.repo.PutFile(ctx, p, data); err != nil {
		return err
	}
	fmt.Fprintf(o.root.Out, "stored %s (%s)\n", p, humanBytes(int64(len(data))))
	return nil
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
