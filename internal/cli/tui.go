package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nconklindev/unitclean/internal/batch"
	"github.com/nconklindev/unitclean/internal/ui"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [dir]",
		Short: "Pick files and review flagged rows in the terminal",
		Long: `Open the terminal UI. Pick a CSV or XLSX file, review rows with special
characters and see the result. Logs go to --log-file when set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTUI,
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd.Context())

	opts := ui.Options{
		Read:         cfg.Clean.ReadOptions(),
		OutputDir:    cfg.Clean.OutputDir,
		WriteRemoved: cfg.Clean.WriteRemoved,
		Logger:       loggerFrom(cmd.Context()),
	}
	if len(args) > 0 {
		opts.StartDir = args[0]
	}

	p := tea.NewProgram(ui.InitialModel(opts), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}

	// Leave a record of the session once the alt screen is gone.
	if m, ok := final.(ui.Model); ok && len(m.Entries()) > 0 {
		return batch.Report(cmd.OutOrStdout(), m.Entries(), batch.FormatText)
	}
	return nil
}
