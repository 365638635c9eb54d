//go:build !linux

package wake

// New returns the native Signal for the platform.
func New() Signal {
	return NewChan()
}
