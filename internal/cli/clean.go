package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nconklindev/unitclean/internal/batch"
	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/config"
	"github.com/nconklindev/unitclean/internal/review"
)

// ErrFilesFailed is returned by clean when at least one file failed. The
// other files are still processed.
var ErrFilesFailed = errors.New("one or more files failed")

// CleanOptions holds options for the clean command.
type CleanOptions struct {
	Format string
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	opts := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean <files...>",
		Short: "Clean files without the terminal UI",
		Long: `Clean one or more CSV or XLSX files in order and print a summary.

Rows with special characters are handled according to --on-flag. With "ask"
the rows are printed and you choose to keep, delete or cancel; deleting must
be confirmed.`,
		Example: `  # Ask about flagged rows
  unitclean clean units.csv towers.xlsx

  # Drop flagged rows without asking and keep a copy of them
  unitclean clean --on-flag delete --write-removed units.csv

  # Machine-readable summary
  unitclean clean --on-flag keep --format json *.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args, opts)
		},
	}

	cmd.Flags().String("on-flag", config.OnFlagAsk, "rows with special characters: ask|keep|delete|cancel")
	cmd.Flags().StringVar(&opts.Format, "format", batch.FormatText, "summary format: text|table|json")

	_ = cmd.RegisterFlagCompletionFunc("on-flag", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OnFlagAsk, config.OnFlagKeep, config.OnFlagDelete, config.OnFlagCancel}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{batch.FormatText, batch.FormatTable, batch.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runClean(cmd *cobra.Command, args []string, opts *CleanOptions) error {
	switch opts.Format {
	case batch.FormatText, batch.FormatTable, batch.FormatJSON:
	default:
		return fmt.Errorf("unknown format %q (want text, table or json)", opts.Format)
	}

	cfg := configFrom(cmd.Context())
	logger := loggerFrom(cmd.Context())

	var gate cleaner.Gate
	if d, fixed := cfg.Clean.FixedDecision(); fixed {
		gate = review.Fixed(d)
	} else {
		gate = &review.Console{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &batch.Runner{
		Pipeline:     &cleaner.Pipeline{Gate: gate, Logger: logger},
		Read:         cfg.Clean.ReadOptions(),
		OutputDir:    cfg.Clean.OutputDir,
		WriteRemoved: cfg.Clean.WriteRemoved,
		Logger:       logger,
	}

	if cfg.Clean.OutputDir != "" {
		if err := os.MkdirAll(cfg.Clean.OutputDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	entries := runner.Run(ctx, args)
	if err := batch.Report(cmd.OutOrStdout(), entries, opts.Format); err != nil {
		return err
	}

	if batch.AnyFailed(entries) {
		return ErrFilesFailed
	}
	return nil
}
