package stitch

import "errors"

var (
	// ErrProbe is returned when a stitched playlist cannot be fetched or read
	ErrProbe = errors.New("stitched playlist probe failed")
)

// IsProbeError checks if the error came from a playlist probe
func IsProbeError(err error) bool {
	return errors.Is(err, ErrProbe)
}
