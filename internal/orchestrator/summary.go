package orchestrator

// Summary is the final report of one render run.
type Summary struct {
	RunID    string
	Selected int
	DryRun   bool

	Done     int
	Failed   int
	TimedOut int
	// SkippedDone counts objects resume verified as already complete.
	SkippedDone int
	// SkippedFailed counts failed/timed-out objects excluded without retry.
	SkippedFailed int
	// Healed counts done objects re-rendered because outputs were missing.
	Healed int
	// Interrupted counts selected objects that produced no terminal outcome
	// because the run was canceled.
	Interrupted int

	// AvgRenderSeconds is the mean duration of successful renders.
	AvgRenderSeconds float64

	// SelectedIDs is populated for dry runs so the caller can list them.
	SelectedIDs []string
}

// Skipped returns the total skipped count for reporting.
func (s *Summary) Skipped() int {
	return s.SkippedDone + s.SkippedFailed
}

// Completed reports whether every selected object reached a terminal outcome.
func (s *Summary) Completed() bool {
	return s.Interrupted == 0
}
