package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"viewforge/internal/orchestrator"
	"viewforge/internal/selection"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		manifestFlag     string
		outputDirFlag    string
		blenderPathFlag  string
		renderScriptFlag string
		numWorkersFlag   int
		timeoutFlag      int
		limitFlag        int
		resumeFlag       bool
		retryFailedFlag  bool
		dryRunFlag       bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render views and masks for every eligible manifest object",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if manifestFlag != "" {
				cfg.Manifest = manifestFlag
			}
			if outputDirFlag != "" {
				cfg.OutputDir = outputDirFlag
			}
			if blenderPathFlag != "" {
				cfg.BlenderPath = blenderPathFlag
			}
			if cmd.Flags().Changed("render_script") {
				cfg.RenderScript = renderScriptFlag
			}
			if cmd.Flags().Changed("num_workers") {
				cfg.NumWorkers = numWorkersFlag
			}
			if cmd.Flags().Changed("timeout") {
				cfg.TimeoutSeconds = timeoutFlag
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			orch := orchestrator.New(cfg, logger)
			orch.ShowProgress = stdoutIsTerminal() && !dryRunFlag

			summary, err := orch.Run(signalCtx, selection.Policy{
				Resume:      resumeFlag,
				RetryFailed: retryFailedFlag,
				DryRun:      dryRunFlag,
				Limit:       limitFlag,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.DryRun {
				fmt.Fprint(out, orchestrator.DescribeSelection(summary))
				return nil
			}
			printRunSummary(out, summary)

			if !summary.Completed() {
				return signalCtx.Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "Manifest file path (overrides config)")
	cmd.Flags().StringVar(&outputDirFlag, "output_dir", "", "Directory for rendered views and masks (overrides config)")
	cmd.Flags().StringVar(&blenderPathFlag, "blender_path", "", "Renderer executable (overrides config)")
	cmd.Flags().StringVar(&renderScriptFlag, "render_script", "", "Scene script passed to the renderer (overrides config)")
	cmd.Flags().IntVar(&numWorkersFlag, "num_workers", 0, "Concurrent renderer processes (overrides config)")
	cmd.Flags().IntVar(&timeoutFlag, "timeout", 0, "Per-object render timeout in seconds (overrides config)")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Render at most this many objects (0 = no limit)")
	cmd.Flags().BoolVar(&resumeFlag, "resume", false, "Skip objects whose outputs already exist and are complete")
	cmd.Flags().BoolVar(&retryFailedFlag, "retry_failed", false, "Re-render previously failed or timed-out objects")
	cmd.Flags().BoolVar(&dryRunFlag, "dry_run", false, "List what would be rendered without invoking the renderer")
	return cmd
}

var titleCaser = cases.Title(language.English)

func printRunSummary(out io.Writer, summary *orchestrator.Summary) {
	rows := [][]string{
		{titleCaser.String("selected"), strconv.Itoa(summary.Selected)},
		{titleCaser.String("done"), strconv.Itoa(summary.Done)},
		{titleCaser.String("failed"), strconv.Itoa(summary.Failed)},
		{titleCaser.String("timed out"), strconv.Itoa(summary.TimedOut)},
		{titleCaser.String("skipped"), strconv.Itoa(summary.Skipped())},
		{titleCaser.String("healed"), strconv.Itoa(summary.Healed)},
	}
	if summary.Interrupted > 0 {
		rows = append(rows, []string{titleCaser.String("interrupted"), strconv.Itoa(summary.Interrupted)})
	}
	if summary.Done > 0 {
		rows = append(rows, []string{
			titleCaser.String("avg render time"),
			fmt.Sprintf("%.1fs", summary.AvgRenderSeconds),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Result", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
	if summary.RunID != "" {
		fmt.Fprintf(out, "Run ID: %s\n", summary.RunID)
	}
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
