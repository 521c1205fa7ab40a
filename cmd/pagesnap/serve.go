package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/use-agent/pagesnap/api"
	"github.com/use-agent/pagesnap/capture"
	"github.com/use-agent/pagesnap/snapshot"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the capture HTTP service",
		Long: "serve exposes POST /api/v1/capture, POST /api/v1/diff and\n" +
			"GET /api/v1/health. Configuration comes from PAGESNAP_* variables.",
		Args: cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initLogger(a.cfg.Log, a.stdout)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	slog.Info("pagesnap starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxCaptures", cfg.Server.MaxCaptures,
		"outputDir", cfg.Capture.OutputDir,
	)

	writer := snapshot.NewWriter(afero.NewOsFs(), snapshot.WithCreateDirs(cfg.Capture.CreateDirs))
	pipeline := capture.NewPipeline(cfg.Browser, cfg.Capture, writer, capture.WithLauncher(a.launch))
	router := api.NewRouter(pipeline, cfg, time.Now())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// In-flight captures get the navigation timeout plus a margin to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Capture.NavigationTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
		return err
	}
	slog.Info("pagesnap stopped")
	return nil
}
