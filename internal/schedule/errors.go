package schedule

import "errors"

// Schedule fetch and parse errors. Both abort the load operation.
var (
	// ErrScheduleFetch indicates the ad server request failed or returned a non-2xx status
	ErrScheduleFetch = errors.New("schedule fetch failed")

	// ErrScheduleParse indicates the schedule document is not valid XML
	ErrScheduleParse = errors.New("schedule document could not be parsed")
)

// IsFetchError checks if the error is a schedule fetch error
func IsFetchError(err error) bool {
	return errors.Is(err, ErrScheduleFetch)
}

// IsParseError checks if the error is a schedule parse error
func IsParseError(err error) bool {
	return errors.Is(err, ErrScheduleParse)
}
