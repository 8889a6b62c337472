// Package timeline matches playback clock samples against scheduled ad
// breaks and drives the reconciler state machine that turns those matches
// into presentation, tracking and playback side effects.
package timeline

import (
	"math"

	"cuepoint/internal/models"
)

const (
	// EdgeTolerance is the matching slack in seconds around content-relative
	// break points. Declared offsets and reported clocks rarely agree
	// exactly, so pre-, mid- and post-roll entry all allow this much drift.
	EdgeTolerance = 0.5

	// SkipGuard is added past the window end when computing content-relative
	// skip targets so the landing sample falls clear of the matching slack.
	SkipGuard = 0.25
)

// CumulativeAdDuration sums the durations of every break ordered before
// ordinal n. Durations change as ads resolve, so callers get a fresh sum on
// every call rather than a cached offset.
func CumulativeAdDuration(breaks []*models.Break, n int) float64 {
	var total float64
	for _, brk := range breaks {
		if brk.OrdinalIndex < n {
			total += brk.Duration
		}
	}
	return total
}

// ShiftedStart returns the break's window start on a stitched timeline: the
// declared content time pushed right by all earlier ad material.
func ShiftedStart(breaks []*models.Break, brk *models.Break) float64 {
	return brk.ContentTime + CumulativeAdDuration(breaks, brk.OrdinalIndex)
}

// MatchBreak returns the break that clock sample t falls on under the given
// timeline mode, or nil when no break matches.
func MatchBreak(breaks []*models.Break, t, contentDuration float64, mode string) *models.Break {
	if mode == models.TimelineModeStreamRelative {
		return matchStreamRelative(breaks, t)
	}
	return matchContentRelative(breaks, t, contentDuration)
}

// matchContentRelative matches on proximity to declared points. Pre-roll
// matches while the clock is still near zero, post-roll once it reaches the
// end window, and mid-roll within EdgeTolerance either side of the point.
func matchContentRelative(breaks []*models.Break, t, contentDuration float64) *models.Break {
	for _, brk := range breaks {
		switch {
		case t < EdgeTolerance && brk.ContentTime <= 0:
			return brk
		case contentDuration > 0 && t >= contentDuration-EdgeTolerance && brk.ContentTime >= contentDuration-EdgeTolerance:
			return brk
		case math.Abs(t-brk.ContentTime) <= EdgeTolerance:
			return brk
		}
	}
	return nil
}

// matchStreamRelative matches by strict containment in the shifted window
// [start, start+duration). Stitched timelines are exact, so no tolerance
// applies.
func matchStreamRelative(breaks []*models.Break, t float64) *models.Break {
	for _, brk := range breaks {
		start := ShiftedStart(breaks, brk)
		if t >= start && t < start+brk.Duration {
			return brk
		}
	}
	return nil
}
