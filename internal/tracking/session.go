package tracking

import (
	"cuepoint/internal/models"
	"cuepoint/internal/vast"
)

// quartile boundaries as fractions of the creative duration.
var quartiles = []struct {
	fraction float64
	event    string
}{
	{0.25, models.TrackingEventFirstQuartile},
	{0.50, models.TrackingEventMidpoint},
	{0.75, models.TrackingEventThirdQuartile},
}

// Session holds beacon state for one break's resolved ad. Every event latches:
// once fired it never fires again within the session, no matter how the clock
// moves. The session is confined to the emitter's lock and holds none itself.
type Session struct {
	breakID      string
	ordinal      int
	duration     float64
	clickThrough string
	ad           *vast.Ad
	creative     *vast.Creative
	fired        map[string]bool
}

// newSession creates tracking state for a resolved ad/creative pair.
func newSession(brk *models.Break, ad *vast.Ad, creative *vast.Creative) *Session {
	s := &Session{
		breakID:  brk.ID,
		ordinal:  brk.OrdinalIndex,
		duration: brk.Duration,
		ad:       ad,
		creative: creative,
		fired:    make(map[string]bool),
	}
	if creative != nil && creative.Linear != nil && creative.Linear.VideoClicks != nil {
		s.clickThrough = creative.Linear.VideoClicks.ClickThrough
	}
	return s
}

// markOnce latches an event, reporting false when it already fired.
func (s *Session) markOnce(event string) bool {
	if s.fired[event] {
		return false
	}
	s.fired[event] = true
	return true
}

// crossedQuartiles returns the quartile events newly reached at elapsed
// seconds and latches them. Repeated or regressing samples yield nothing new.
func (s *Session) crossedQuartiles(elapsed float64) []string {
	if s.duration <= 0 {
		return nil
	}
	fraction := elapsed / s.duration
	var crossed []string
	for _, q := range quartiles {
		if fraction >= q.fraction && s.markOnce(q.event) {
			crossed = append(crossed, q.event)
		}
	}
	return crossed
}

// beaconURLs returns the beacon URLs registered for one event name.
func (s *Session) beaconURLs(event string) []string {
	switch event {
	case models.TrackingEventImpression:
		if s.ad != nil && s.ad.InLine != nil {
			return s.ad.InLine.ImpressionURLs()
		}
		return nil
	case models.TrackingEventClick:
		if s.creative != nil && s.creative.Linear != nil {
			return s.creative.Linear.ClickTrackingURLs()
		}
		return nil
	default:
		if s.creative != nil && s.creative.Linear != nil {
			return s.creative.Linear.TrackingURLs(event)
		}
		return nil
	}
}
