// Package manifest implements the durable JSON record of known objects and
// their acquisition and render status. The manifest file is the source of
// truth for resumability: it is persisted atomically, updated idempotently,
// and preserves fields it does not understand so other tools can extend it.
package manifest
