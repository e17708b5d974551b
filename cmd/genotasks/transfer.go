package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"genotasks/internal/board"
	"genotasks/internal/models"
)

func exportCmd() *cobra.Command {
	var (
		week   string
		outDir string
		stdout bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one week of the local board to a text file",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode(cmd.Context())
			if err != nil {
				return err
			}
			defer n.Close()

			if week == "" {
				week = n.board.CurrentWeek()
			}
			filename, body, err := n.board.Export(week)
			if err != nil {
				return err
			}
			if stdout {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}

			path := filepath.Join(outDir, filename)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", week, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&week, "week", "w", "", `week label, e.g. "Sem 32 2024" (default: current week)`)
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the export to")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print the export instead of writing a file")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a text export into the local journal",
		Long: `Import a text export into the local journal.

Every task gets a fresh id. The tasks reach other nodes the next time this
node serves its replica feed; a node already running on the same database
picks them up after a restart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import: %w", err)
			}
			defer f.Close()

			n, err := openNode(cmd.Context())
			if err != nil {
				return err
			}
			defer n.Close()

			result, err := n.board.Import(cmd.Context(), f)
			for _, w := range result.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s\n", w)
			}
			if errors.Is(err, board.ErrNothingImported) {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s)\n", len(result.Tasks))
			return nil
		},
	}
}

func weekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week [YYYY-MM-DD]",
		Short: "Print the week label of a date (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if len(args) == 1 {
				parsed, err := time.ParseInLocation(models.DateLayout, args[0], time.Local)
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", args[0], err)
				}
				day = parsed
			}
			fmt.Fprintln(cmd.OutOrStdout(), models.WeekOf(day))
			return nil
		},
	}
}
