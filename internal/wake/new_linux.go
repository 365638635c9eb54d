//go:build linux

package wake

// New returns the native Signal for the platform, an eventfd on linux,
// falling back to a channel when the descriptor cannot be created.
func New() Signal {
	if efd, err := NewEventFD(); err == nil {
		return efd
	}

	return NewChan()
}
