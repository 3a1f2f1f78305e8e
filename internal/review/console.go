package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/types"
)

// MaxConsoleRows caps how many flagged rows the console prints.
const MaxConsoleRows = 50

// Console asks on a line-oriented terminal. Delete must be confirmed.
type Console struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

func (c *Console) Present(ctx context.Context, req cleaner.ReviewRequest) (types.Decision, error) {
	if c.scanner == nil {
		c.scanner = bufio.NewScanner(c.In)
	}

	c.printRows(req)

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		answer, err := c.ask("[k]eep, [d]elete or [c]ancel these rows? ")
		if err != nil {
			return 0, err
		}

		switch answer {
		case "k", "keep":
			return types.DecisionKeep, nil
		case "c", "cancel":
			return types.DecisionCancel, nil
		case "d", "delete":
			confirm, err := c.ask("Are you sure you want to permanently delete these rows? [y/N] ")
			if err != nil {
				return 0, err
			}
			if confirm == "y" || confirm == "yes" {
				return types.DecisionDelete, nil
			}
		}
	}
}

func (c *Console) ask(prompt string) (string, error) {
	fmt.Fprint(c.Out, prompt)
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.ToLower(strings.TrimSpace(c.scanner.Text())), nil
}

func (c *Console) printRows(req cleaner.ReviewRequest) {
	fmt.Fprintf(c.Out, "%s: %d rows contain special characters.\n", req.Source, len(req.Flagged))

	t := table.NewWriter()
	t.SetOutputMirror(c.Out)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Row"}
	for _, h := range req.Headers {
		header = append(header, h)
	}
	t.AppendHeader(header)

	for i, f := range req.Flagged {
		if i == MaxConsoleRows {
			break
		}
		row := table.Row{f.Index + 2} // 1-based, after the header line
		for _, cell := range f.Cells {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	t.Render()

	if len(req.Flagged) > MaxConsoleRows {
		fmt.Fprintf(c.Out, "... and %d more\n", len(req.Flagged)-MaxConsoleRows)
	}
}
