// Package orchestrator drives a full render run: load the manifest, compute
// the selection, dispatch tasks to the worker pool, record outcomes as they
// arrive, and persist everything before exit even when interrupted.
package orchestrator
