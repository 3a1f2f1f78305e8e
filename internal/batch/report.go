package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Report formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Report writes entries to w in the given format.
func Report(w io.Writer, entries []Entry, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatTable:
		return renderTable(w, entries)
	case FormatText, "":
		return renderText(w, entries)
	}
	return fmt.Errorf("unknown report format %q (want text, table or json)", format)
}

func renderText(w io.Writer, entries []Entry) error {
	msgs := make([]string, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.Message())
	}
	_, err := fmt.Fprintln(w, strings.Join(msgs, "\n\n"))
	return err
}

func renderTable(w io.Writer, entries []Entry) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"File", "Outcome", "Rows", "Flagged", "Deleted", "Unique", "Output"})
	for _, e := range entries {
		output := e.Output
		if e.Outcome.Failed() {
			output = e.Error
		}
		t.AppendRow(table.Row{
			filepath.Base(e.Input),
			string(e.Outcome),
			e.Summary.OriginalRows,
			e.Summary.FlaggedRows,
			e.Summary.DeletedRows,
			e.Summary.UniqueRows,
			output,
		})
	}

	t.Render()
	_, err := fmt.Fprintf(w, "(%d files)\n", len(entries))
	return err
}
