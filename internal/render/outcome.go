package render

import (
	"time"

	"viewforge/internal/manifest"
)

// Result classifies how a render task ended.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultTimeout Result = "timeout"
	// ResultCanceled means the whole run was interrupted while the task was
	// in flight. Canceled outcomes are never persisted; the object keeps its
	// prior status for a future resume.
	ResultCanceled Result = "canceled"
)

// Outcome is the result of one render task, produced by a worker and
// consumed by the recorder in arrival order.
type Outcome struct {
	ObjectID      string
	Result        Result
	ErrorDetail   string
	ProducedFiles int
	Duration      time.Duration
	Views         []manifest.ViewInfo
}
