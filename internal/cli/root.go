// Package cli provides the unitclean command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nconklindev/unitclean/internal/config"
	"github.com/nconklindev/unitclean/internal/logging"
)

// BuildInfo is set at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type configKey struct{}

type loggerKey struct{}

// NewRootCmd creates the root command. Without a subcommand it starts the
// terminal UI.
func NewRootCmd(info BuildInfo) *cobra.Command {
	var (
		cfgFile string
		logFile *os.File
	)

	rootCmd := &cobra.Command{
		Use:   "unitclean",
		Short: "Clean and de-duplicate unit lists in CSV and XLSX files",
		Long: `unitclean reads spreadsheets of apartment units, flags rows with special
characters for review, and writes a cleaned CSV where every unit label is
unique, disambiguated by tower and corporate columns when needed.

Run without a command to pick files in the terminal UI.`,
		Version: info.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// A missing .env is normal.
			_ = godotenv.Load()

			cfg, used, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.ErrOrStderr()
			if cfg.Log.File != "" {
				logFile, err = os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				w = logFile
			} else if isTUI(cmd) {
				// keep the alt screen clean
				w = io.Discard
			}
			logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, w)
			if used != "" {
				logger.Debug("using config file", "path", used)
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logFile != nil {
				return logFile.Close()
			}
			return nil
		},
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("unitclean {{.Version}}\ncommit: %s\nbuilt: %s\n", info.Commit, info.Date))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./unitclean.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text|json)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().String("output-dir", "", "directory for cleaned files (default: next to each input)")
	rootCmd.PersistentFlags().Bool("write-removed", false, "also write deleted rows to <name>_removed.csv")
	rootCmd.PersistentFlags().Bool("detect-header", false, "find the header row in XLSX files instead of using the first row")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewTUICommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewVersionCommand(info))

	return rootCmd
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	rootCmd := NewRootCmd(info)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func isTUI(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "tui"
}

// configFrom retrieves the config stored by the root command.
func configFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg, _, err := config.Load("", nil)
	if err != nil {
		return &config.Config{}
	}
	return cfg
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
