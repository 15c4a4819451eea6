// Package render executes external renderer invocations for selected
// objects: a bounded worker pool spawns one renderer process per task,
// enforces a hard per-task deadline, verifies the produced output set, and
// funnels outcomes to a single result recorder that owns all manifest and
// ledger writes.
package render
