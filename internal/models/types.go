package models

// Timeline mode constants select how clock samples are matched to breaks.
const (
	TimelineModeContentRelative = "content_relative"
	TimelineModeStreamRelative  = "stream_relative"
)

// Session lifecycle states for the persisted session row.
const (
	SessionStateActive = "active"
	SessionStateEnded  = "ended"
)

// Tracking event types, VAST naming.
const (
	TrackingEventImpression    = "impression"
	TrackingEventFirstQuartile = "firstQuartile"
	TrackingEventMidpoint      = "midpoint"
	TrackingEventThirdQuartile = "thirdQuartile"
	TrackingEventComplete      = "complete"
	TrackingEventSkip          = "skip"
	TrackingEventClick         = "click"
)

// IsValidTimelineMode reports whether m names a known timeline mode.
func IsValidTimelineMode(m string) bool {
	return m == TimelineModeContentRelative || m == TimelineModeStreamRelative
}
