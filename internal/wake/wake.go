// Package wake provides the readiness signal a single threaded event loop
// waits on to learn that a command is pending.
package wake

import (
	"time"
)

type (
	// Signal is a cross goroutine readiness flag.
	//
	// Notify marks the signal ready, Wait blocks until it is ready (without
	// consuming it) and Clear consumes it. Several Notify calls between two
	// Clear calls collapse into one readiness.
	Signal interface {
		// Notify marks the signal as ready.
		Notify() error
		// Wait blocks until the signal is ready or the timeout elapses.
		// A negative timeout waits forever.
		Wait(time.Duration) (bool, error)
		// Clear consumes a pending readiness, if any.
		Clear() error
		// Close releases the signal, waking any Wait call.
		Close() error
	}
)
