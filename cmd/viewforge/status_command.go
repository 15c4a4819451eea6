package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"viewforge/internal/ledger"
	"viewforge/internal/manifest"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var runsFlag int
	var manifestFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show manifest render progress and recent run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if manifestFlag != "" {
				cfg.Manifest = manifestFlag
			}
			out := cmd.OutOrStdout()

			store, err := manifest.Load(cfg.Manifest)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					fmt.Fprintf(out, "No manifest at %s; run `viewforge scan` first\n", cfg.Manifest)
					return nil
				}
				return fmt.Errorf("load manifest: %w", err)
			}

			stats := store.Stats()
			fmt.Fprintf(out, "Manifest: %s\n", store.Path())
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Objects"},
				[][]string{
					{"Total", strconv.Itoa(stats.Total)},
					{"Downloaded", strconv.Itoa(stats.Downloaded)},
					{"Download failed", strconv.Itoa(stats.DownloadFailed)},
					{"Render done", strconv.Itoa(stats.RenderDone)},
					{"Render failed", strconv.Itoa(stats.RenderFailed)},
					{"Render timed out", strconv.Itoa(stats.RenderTimedOut)},
					{"Render pending", strconv.Itoa(stats.RenderPending)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))

			runs, err := recentRuns(cmd, cfg.LogDir, runsFlag)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortRunID(run.ID),
					run.StartedAt.Local().Format(time.DateTime),
					runState(run),
					strconv.Itoa(run.Selected),
					strconv.Itoa(run.Counts.Done),
					strconv.Itoa(run.Counts.Failed + run.Counts.TimedOut),
					strconv.Itoa(run.Counts.Interrupted),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "State", "Selected", "Done", "Failed", "Interrupted"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&runsFlag, "runs", 10, "Number of recent runs to display")
	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "Manifest file path (overrides config)")
	return cmd
}

func recentRuns(cmd *cobra.Command, logDir string, limit int) ([]ledger.Run, error) {
	ledgerStore, err := ledger.Open(logDir)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	defer ledgerStore.Close()
	return ledgerStore.RecentRuns(cmd.Context(), limit)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runState(run ledger.Run) string {
	switch {
	case run.FinishedAt == nil:
		return "running"
	case run.Counts.Interrupted > 0:
		return "interrupted"
	default:
		return "finished"
	}
}
