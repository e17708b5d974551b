package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"genotasks/internal/replica"
	"genotasks/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a board node: HTTP API, frontend and peer sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("GenoTasks node", slog.String("version", Version), slog.String("node", cfg.Replica.NodeID))

	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	srv := server.New(n.board, n.replica, logger, cfg.Server.StaticDir)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	syncer := replica.NewSyncer(n.replica, cfg.Replica.Peers, cfg.Replica.SyncInterval, logger)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("replica sync stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	<-syncDone

	logger.Info("server stopped")
	return nil
}
