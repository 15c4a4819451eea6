package selection

import (
	"log/slog"
	"path/filepath"
	"time"

	"viewforge/internal/logging"
	"viewforge/internal/manifest"
	"viewforge/internal/views"
)

// Policy is the immutable selection policy for one run.
type Policy struct {
	// Resume skips objects whose render is done and whose expected output
	// files are all present on disk. Without it, completed work is redone.
	Resume bool
	// RetryFailed re-includes objects that previously failed or timed out.
	RetryFailed bool
	// DryRun reports the selected set without enqueuing any work.
	DryRun bool
	// Limit truncates the selected set when > 0.
	Limit int
}

// Task is the ephemeral unit of work handed to a render worker. It is
// created here, consumed exactly once, and never persisted.
type Task struct {
	ObjectID   string
	SourcePath string
	OutputDir  string
	Timeout    time.Duration
}

// Result is the computed render queue plus the bookkeeping needed for the
// final summary.
type Result struct {
	Tasks []Task
	// SkippedDone counts objects left alone because resume verified their
	// complete output set on disk.
	SkippedDone int
	// SkippedFailed counts failed or timed-out objects excluded because
	// retry was not requested.
	SkippedFailed int
	// ExcludedNotDownloaded counts objects that never finished downloading.
	ExcludedNotDownloaded int
	// Healed counts objects re-selected despite a done status because their
	// output set was missing files.
	Healed int
}

// Select walks the manifest snapshot in its stable order and builds the
// render queue. baseDir is the directory object local paths are relative to
// (the manifest's directory). An empty selection is a valid no-op run.
func Select(records []manifest.ObjectRecord, baseDir, outputDir string, timeout time.Duration, pol Policy, logger *slog.Logger) Result {
	log := logging.NewComponentLogger(logger, "selector")

	var result Result
	for _, rec := range records {
		if rec.DownloadStatus != manifest.Downloaded {
			result.ExcludedNotDownloaded++
			continue
		}

		include := false
		switch rec.RenderStatus {
		case manifest.RenderPending, manifest.Rendering:
			// A leftover "rendering" status means a prior run died before
			// its recorder ran; treat it as pending.
			include = true
		case manifest.RenderFailed, manifest.RenderTimedOut:
			if pol.RetryFailed {
				include = true
			} else {
				result.SkippedFailed++
			}
		case manifest.RenderDone:
			if !pol.Resume {
				// Force semantics: without resume, completed work is redone.
				include = true
				break
			}
			if missing := views.Verify(outputDir, rec.ID); len(missing) > 0 {
				include = true
				result.Healed++
				log.Warn("done object missing outputs, re-selecting",
					logging.String("object_id", rec.ID),
					logging.Int("missing_files", len(missing)),
				)
			} else {
				result.SkippedDone++
			}
		}
		if !include {
			continue
		}

		result.Tasks = append(result.Tasks, Task{
			ObjectID:   rec.ID,
			SourcePath: filepath.Join(baseDir, rec.LocalPath),
			OutputDir:  outputDir,
			Timeout:    timeout,
		})
	}

	if pol.Limit > 0 && len(result.Tasks) > pol.Limit {
		result.Tasks = result.Tasks[:pol.Limit]
	}

	log.Info("selection computed",
		logging.Int("selected", len(result.Tasks)),
		logging.Int("skipped_done", result.SkippedDone),
		logging.Int("skipped_failed", result.SkippedFailed),
		logging.Int("excluded_not_downloaded", result.ExcludedNotDownloaded),
		logging.Int("healed", result.Healed),
	)
	return result
}
