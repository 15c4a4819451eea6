package render

import "errors"

var (
	// ErrLaunch marks failures to start the renderer at all: missing
	// executable or invalid arguments. Fatal per task, not retried
	// automatically.
	ErrLaunch = errors.New("renderer launch error")

	// ErrVerification marks a renderer that exited zero but left the output
	// set incomplete. Recorded as failure; usually a scene or camera defect
	// on the renderer side.
	ErrVerification = errors.New("output verification failed")
)
