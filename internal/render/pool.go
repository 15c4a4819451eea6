package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"viewforge/internal/logging"
	"viewforge/internal/manifest"
	"viewforge/internal/selection"
	"viewforge/internal/views"
)

// Pool executes render tasks with bounded concurrency. Workers are a fixed
// set of goroutines sharing nothing mutable; the task channel is the only
// dispatch mechanism, so the worker count is the hard concurrency ceiling.
type Pool struct {
	client  *Client
	workers int
	logger  *slog.Logger
}

// NewPool constructs a pool of the given size. workers below 1 is clamped.
func NewPool(client *Client, workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		client:  client,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "pool"),
	}
}

// Run dispatches tasks to the workers and returns the outcome channel. The
// channel closes once every started task has finished. Canceling ctx stops
// dispatch of unstarted tasks (they emit no outcome) and kills in-flight
// renderer processes, which surface as canceled outcomes.
func (p *Pool) Run(ctx context.Context, tasks []selection.Task) <-chan Outcome {
	taskCh := make(chan selection.Task)
	outcomes := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if ctx.Err() != nil {
					continue
				}
				outcomes <- p.execute(ctx, task)
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

func (p *Pool) execute(ctx context.Context, task selection.Task) Outcome {
	ctx = logging.WithObject(ctx, task.ObjectID)
	log := logging.WithContext(ctx, p.logger)
	objectDir := views.ObjectDir(task.OutputDir, task.ObjectID)

	if err := os.MkdirAll(objectDir, 0o755); err != nil {
		return Outcome{
			ObjectID:    task.ObjectID,
			Result:      ResultFailure,
			ErrorDetail: truncateDetail(fmt.Sprintf("create output directory: %v", err)),
		}
	}

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	start := time.Now()
	err := p.client.Render(taskCtx, task.SourcePath, objectDir)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		if missing := views.Verify(task.OutputDir, task.ObjectID); len(missing) > 0 {
			detail := fmt.Sprintf("%v: %d/%d output files present",
				ErrVerification, views.FilesPerObject-len(missing), views.FilesPerObject)
			log.Warn("renderer exited clean but outputs incomplete",
				logging.Int("missing_files", len(missing)),
				logging.Duration("elapsed", elapsed),
			)
			return Outcome{
				ObjectID:      task.ObjectID,
				Result:        ResultFailure,
				ErrorDetail:   truncateDetail(detail),
				ProducedFiles: views.FilesPerObject - len(missing),
				Duration:      elapsed,
			}
		}
		log.Info("render complete", logging.Duration("elapsed", elapsed))
		return Outcome{
			ObjectID:      task.ObjectID,
			Result:        ResultSuccess,
			ProducedFiles: views.FilesPerObject,
			Duration:      elapsed,
			Views:         producedViews(task.ObjectID),
		}

	case ctx.Err() != nil:
		// The whole run was interrupted; the renderer process group has been
		// killed. Leave the object in its prior status.
		log.Debug("render canceled by run interruption")
		return Outcome{ObjectID: task.ObjectID, Result: ResultCanceled, Duration: elapsed}

	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		log.Warn("render deadline exceeded, process killed",
			logging.Duration("timeout", task.Timeout),
		)
		return Outcome{
			ObjectID:    task.ObjectID,
			Result:      ResultTimeout,
			ErrorDetail: truncateDetail(fmt.Sprintf("timeout after %s", task.Timeout)),
			Duration:    elapsed,
		}

	default:
		log.Warn("render failed", logging.Error(err), logging.Duration("elapsed", elapsed))
		return Outcome{
			ObjectID:    task.ObjectID,
			Result:      ResultFailure,
			ErrorDetail: truncateDetail(err.Error()),
			Duration:    elapsed,
		}
	}
}

func producedViews(objectID string) []manifest.ViewInfo {
	out := make([]manifest.ViewInfo, 0, views.PerObject)
	for i := 0; i < views.PerObject; i++ {
		out = append(out, manifest.ViewInfo{
			ViewID:    i,
			ImagePath: filepath.Join(objectID, views.ImageName(objectID, i)),
			MaskPath:  filepath.Join(objectID, views.MaskName(objectID, i)),
		})
	}
	return out
}

func truncateDetail(detail string) string {
	if len(detail) <= errorDetailLimit {
		return detail
	}
	return detail[:errorDetailLimit]
}
