package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"

	"viewforge/internal/config"
	"viewforge/internal/ledger"
	"viewforge/internal/logging"
	"viewforge/internal/manifest"
	"viewforge/internal/render"
	"viewforge/internal/selection"
)

// Orchestrator owns the top-level control loop for render runs.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	// ShowProgress enables the terminal progress bar. The CLI sets it when
	// stdout is a TTY; it stays off in tests and pipelines.
	ShowProgress bool
}

// New constructs an orchestrator.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// Run executes one full render pass under the given policy. Per-object
// failures never produce an error; the returned Summary carries them. An
// error means a configuration problem that prevented any work from starting,
// or a persistence failure at the end of the run.
func (o *Orchestrator) Run(ctx context.Context, pol selection.Policy) (*Summary, error) {
	store, err := manifest.Load(o.cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	timeout := time.Duration(o.cfg.TimeoutSeconds) * time.Second
	sel := selection.Select(store.Records(), filepath.Dir(o.cfg.Manifest), o.cfg.OutputDir, timeout, pol, o.logger)

	summary := &Summary{
		Selected:      len(sel.Tasks),
		SkippedDone:   sel.SkippedDone,
		SkippedFailed: sel.SkippedFailed,
		Healed:        sel.Healed,
	}

	if pol.DryRun {
		summary.DryRun = true
		for _, task := range sel.Tasks {
			summary.SelectedIDs = append(summary.SelectedIDs, task.ObjectID)
		}
		o.logger.Info("dry run complete", logging.Int("selected", summary.Selected))
		return summary, nil
	}

	if len(sel.Tasks) == 0 {
		o.logger.Info("nothing to render",
			logging.Int("skipped_done", sel.SkippedDone),
			logging.Int("skipped_failed", sel.SkippedFailed),
		)
		return summary, nil
	}

	if _, err := exec.LookPath(o.cfg.BlenderPath); err != nil {
		return nil, fmt.Errorf("renderer executable not found: %w", err)
	}
	if err := o.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	// One active run per manifest: two orchestrators racing the same
	// manifest would double-schedule objects and corrupt each other's
	// status updates.
	runLock := flock.New(o.cfg.Manifest + ".lock")
	locked, err := runLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another render run already holds %s", runLock.Path())
	}
	defer func() { _ = runLock.Unlock() }()

	ledgerStore, err := ledger.Open(o.cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	defer ledgerStore.Close()

	runID, err := ledgerStore.BeginRun(ctx, o.cfg.Manifest, pol.Resume, pol.RetryFailed, len(sel.Tasks))
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	summary.RunID = runID

	client, err := render.New(o.cfg.BlenderPath, o.cfg.RenderScript)
	if err != nil {
		return nil, fmt.Errorf("renderer client: %w", err)
	}

	o.logger.Info("run started",
		logging.String("run_id", runID),
		logging.Int("selected", len(sel.Tasks)),
		logging.Int("workers", o.cfg.NumWorkers),
		logging.Duration("task_timeout", timeout),
		logging.Bool("resume", pol.Resume),
		logging.Bool("retry_failed", pol.RetryFailed),
	)

	pool := render.NewPool(client, o.cfg.NumWorkers, o.logger)
	recorder := render.NewRecorder(store, ledgerStore, runID, o.logger)

	bar := o.newProgressBar(len(sel.Tasks))

	// Recording must survive run cancellation: outcomes already received
	// are persisted even while ctx is dead.
	recordCtx := context.WithoutCancel(ctx)

	var successSeconds float64
	received := 0
	for outcome := range pool.Run(ctx, sel.Tasks) {
		if outcome.Result != render.ResultCanceled {
			received++
		}
		switch outcome.Result {
		case render.ResultSuccess:
			summary.Done++
			successSeconds += outcome.Duration.Seconds()
		case render.ResultFailure:
			summary.Failed++
		case render.ResultTimeout:
			summary.TimedOut++
		}
		if err := recorder.Record(recordCtx, outcome); err != nil {
			o.logger.Error("record outcome",
				logging.String("object_id", outcome.ObjectID),
				logging.Error(err),
			)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	summary.Interrupted = len(sel.Tasks) - received
	if summary.Done > 0 {
		summary.AvgRenderSeconds = successSeconds / float64(summary.Done)
	}

	if err := recorder.Flush(); err != nil {
		return summary, fmt.Errorf("persist manifest: %w", err)
	}
	if err := ledgerStore.FinishRun(recordCtx, runID, ledger.Counts{
		Done:        summary.Done,
		Failed:      summary.Failed,
		TimedOut:    summary.TimedOut,
		Skipped:     summary.Skipped(),
		Interrupted: summary.Interrupted,
	}); err != nil {
		o.logger.Warn("finish run ledger entry", logging.Error(err))
	}

	o.logger.Info("run finished",
		logging.String("run_id", runID),
		logging.Int("done", summary.Done),
		logging.Int("failed", summary.Failed),
		logging.Int("timed_out", summary.TimedOut),
		logging.Int("skipped", summary.Skipped()),
		logging.Int("interrupted", summary.Interrupted),
		logging.Float64("avg_render_seconds", summary.AvgRenderSeconds),
	)
	return summary, nil
}

func (o *Orchestrator) newProgressBar(total int) *progressbar.ProgressBar {
	if !o.ShowProgress || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// DescribeSelection formats the dry-run listing the way operators expect:
// one object per line, truncated past ten entries.
func DescribeSelection(summary *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "would render %d objects:\n", summary.Selected)
	for i, id := range summary.SelectedIDs {
		if i == 10 {
			fmt.Fprintf(&b, "  ... and %d more\n", summary.Selected-10)
			break
		}
		fmt.Fprintf(&b, "  - %s\n", id)
	}
	return b.String()
}
