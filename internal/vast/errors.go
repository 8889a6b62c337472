package vast

import "errors"

// Resolution errors. All of these are soft failures: the break keeps its
// default metadata and playback continues.
var (
	// ErrAdFetch indicates the ad document request failed or returned a non-2xx status
	ErrAdFetch = errors.New("ad document fetch failed")

	// ErrAdParse indicates the ad document is not valid XML
	ErrAdParse = errors.New("ad document could not be parsed")

	// ErrNoPlayableCreative indicates no linear creative exposes a playable media file
	ErrNoPlayableCreative = errors.New("ad document has no playable creative")
)

// IsNoPlayableCreative checks if the error is a no playable creative error
func IsNoPlayableCreative(err error) bool {
	return errors.Is(err, ErrNoPlayableCreative)
}
