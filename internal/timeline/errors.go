package timeline

import "errors"

var (
	// ErrNoActiveBreak is returned when skip or click is invoked while the
	// reconciler has no break in flight
	ErrNoActiveBreak = errors.New("no active break")
)

// IsNoActiveBreak checks if the error indicates an operation outside a break
func IsNoActiveBreak(err error) bool {
	return errors.Is(err, ErrNoActiveBreak)
}
