package render

import (
	"context"
	"fmt"
	"log/slog"

	"viewforge/internal/ledger"
	"viewforge/internal/logging"
	"viewforge/internal/manifest"
)

// persistInterval is how many recorded outcomes trigger an intermediate
// manifest persist, so an interrupted run loses at most a handful of results.
const persistInterval = 10

// Recorder applies render outcomes to the manifest and the run ledger. It is
// the single writer: outcomes arrive from parallel workers but are recorded
// strictly one at a time, in arrival order.
type Recorder struct {
	store  *manifest.Store
	ledger *ledger.Store
	runID  string
	logger *slog.Logger

	recorded int
}

// NewRecorder constructs a recorder. ledgerStore may be nil when run history
// is not being kept (tests).
func NewRecorder(store *manifest.Store, ledgerStore *ledger.Store, runID string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		ledger: ledgerStore,
		runID:  runID,
		logger: logging.NewComponentLogger(logger, "recorder"),
	}
}

// Record applies one outcome. Canceled outcomes are skipped entirely so the
// object keeps its prior status for a future resume. Recording is idempotent
// at the store level; a duplicate delivery yields the same final state.
func (r *Recorder) Record(ctx context.Context, outcome Outcome) error {
	if outcome.Result == ResultCanceled {
		return nil
	}

	status := statusFor(outcome.Result)
	if err := r.store.Update(outcome.ObjectID, status, outcome.ErrorDetail); err != nil {
		return fmt.Errorf("update manifest: %w", err)
	}
	if err := r.store.SetRenderArtifacts(outcome.ObjectID, outcome.Duration.Seconds(), outcome.Views); err != nil {
		return fmt.Errorf("record artifacts: %w", err)
	}

	if r.ledger != nil {
		err := r.ledger.AppendOutcome(ctx, r.runID, ledger.Outcome{
			ObjectID:      outcome.ObjectID,
			Result:        string(outcome.Result),
			ErrorDetail:   outcome.ErrorDetail,
			Duration:      outcome.Duration,
			ProducedFiles: outcome.ProducedFiles,
		})
		if err != nil {
			// The manifest already holds the truth; a ledger write failure
			// must not lose the outcome.
			r.logger.Warn("ledger append failed", logging.Error(err))
		}
	}

	r.recorded++
	if r.recorded%persistInterval == 0 {
		if err := r.store.Persist(); err != nil {
			return fmt.Errorf("persist manifest: %w", err)
		}
	}
	return nil
}

// Flush persists any outcomes recorded since the last intermediate persist.
// Call before exit, including on interruption.
func (r *Recorder) Flush() error {
	return r.store.Persist()
}

// Recorded returns how many outcomes have been applied.
func (r *Recorder) Recorded() int {
	return r.recorded
}

func statusFor(result Result) manifest.RenderStatus {
	switch result {
	case ResultSuccess:
		return manifest.RenderDone
	case ResultTimeout:
		return manifest.RenderTimedOut
	default:
		return manifest.RenderFailed
	}
}
