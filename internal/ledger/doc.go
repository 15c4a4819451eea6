// Package ledger persists run history in SQLite: one row per pipeline run
// and one row per recorded render outcome. The manifest remains the source
// of truth for per-object status; the ledger exists for auditing and the
// status command.
package ledger
