package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nconklindev/unitclean/internal/config"
	"github.com/nconklindev/unitclean/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload and review pages over HTTP",
		Long: `Start a web server where files can be uploaded, flagged rows reviewed and
cleaned files downloaded one by one or as a zip.

Reviews left unanswered longer than --review-ttl are cancelled.`,
		Example: `  unitclean serve --addr :9000
  unitclean serve --on-flag delete --work-dir /var/lib/unitclean`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("review-ttl", 0, "cancel reviews left unanswered this long (default 30m)")
	cmd.Flags().String("work-dir", "", "directory for uploaded and cleaned files (default: a temp dir)")
	cmd.Flags().String("on-flag", config.OnFlagAsk, "rows with special characters: ask|keep|delete|cancel")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := configFrom(cmd.Context())
	logger := loggerFrom(cmd.Context())

	srv, err := web.NewServer(web.Options{
		Server: cfg.Server,
		Clean:  cfg.Clean,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
