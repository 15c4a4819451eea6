package manifest

import "errors"

// ErrCorrupt indicates the manifest file exists but cannot be parsed. A run
// cannot establish a safe baseline from a corrupt manifest, so callers treat
// this as fatal before any work is scheduled.
var ErrCorrupt = errors.New("manifest corrupt")

// ErrUnknownObject indicates an update referenced an object the manifest
// does not contain.
var ErrUnknownObject = errors.New("unknown object")
