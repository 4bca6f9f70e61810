package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

var (
	headerColor = color.New(color.Bold, color.FgCyan).SprintFunc()
	okColor     = color.New(color.FgGreen).SprintFunc()
	failColor   = color.New(color.Bold, color.FgRed).SprintFunc()
	dimColor    = color.New(color.Faint).SprintFunc()
)

// newTable returns a wrapped table with a coloured header row.
func newTable(columns ...string) *uitable.Table {
	t := uitable.New()
	t.MaxColWidth = 80
	t.Wrap = true

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = headerColor(c)
	}
	t.AddRow(header...)
	return t
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateOutput(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q: use table or json", format)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
