package models

// Break describes a single scheduled ad break on the content timeline.
//
// OrdinalIndex is the break's stable identity: the schedule builder assigns
// it once, in document order among kept entries, and it never changes.
// Duration, SkipOffset and the creative fields start as configured defaults
// and are rewritten in place when ad metadata resolves mid-session.
type Break struct {
	OrdinalIndex   int     `json:"ordinal_index"`
	ID             string  `json:"id"`
	DeclaredOffset string  `json:"declared_offset"`
	ContentTime    float64 `json:"content_time"`
	AdTagURI       string  `json:"ad_tag_uri"`
	Duration       float64 `json:"duration"`
	SkipOffset     float64 `json:"skip_offset"`
	ClickThrough   string  `json:"click_through,omitempty"`
	MediaURL       string  `json:"media_url,omitempty"`
	Resolved       bool    `json:"resolved"`
}

// NewBreak creates a break with default timing values applied.
func NewBreak(ordinal int, id, declaredOffset string, contentTime float64, adTagURI string, defaultDuration, defaultSkipOffset float64) *Break {
	return &Break{
		OrdinalIndex:   ordinal,
		ID:             id,
		DeclaredOffset: declaredOffset,
		ContentTime:    contentTime,
		AdTagURI:       adTagURI,
		Duration:       defaultDuration,
		SkipOffset:     defaultSkipOffset,
	}
}
