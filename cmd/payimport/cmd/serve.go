package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/payimport/internal/logging"
	"github.com/JonMunkholm/payimport/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the import HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  POST /api/imports   multipart upload in field "file"
  GET  /healthz       database health

On SIGINT/SIGTERM the server stops accepting requests and waits up to
SERVER_SHUTDOWN_TIMEOUT for running imports to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logging.Setup(level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"currency", cfg.Import.DefaultCurrency,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"notify_mode", cfg.Notify.Mode,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, pipeline, store)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	return server.Start()
}
