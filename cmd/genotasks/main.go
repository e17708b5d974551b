// Command genotasks runs a GenoTasks board node and offers offline
// import/export against its local journal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"genotasks/internal/board"
	"genotasks/internal/config"
	"genotasks/internal/quota"
	"genotasks/internal/replica"
	"genotasks/internal/repository"
	"genotasks/internal/storage/sqlite"
)

var Version = "dev"

var (
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "genotasks",
		Short:         "GenoTasks - replicated weekly task board for production teams",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			slog.SetDefault(logger)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("GENOTASKS_CONFIG"), "path to YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(weekCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// node bundles everything a command needs to read and write the board.
type node struct {
	journal *sqlite.Store
	replica *replica.Node
	repo    *repository.Repository
	board   *board.Service
}

func openNode(ctx context.Context) (*node, error) {
	journal, err := sqlite.Open(cfg.Storage.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	rep, err := replica.Open(ctx, cfg.Replica.NodeID, journal, logger)
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("open replica: %w", err)
	}

	repo := repository.New(rep, logger)
	svc := board.New(rep, repo, quota.New(cfg.QuotaCaps()), logger)
	return &node{journal: journal, replica: rep, repo: repo, board: svc}, nil
}

func (n *node) Close() {
	n.repo.Close()
	if err := n.journal.Close(); err != nil {
		logger.Error("close journal", slog.String("error", err.Error()))
	}
}
