package vast

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// VAST is the root of an ad document, the subset this service reads.
type VAST struct {
	XMLName xml.Name `xml:"VAST"`
	Version string   `xml:"version,attr"`
	Ads     []Ad     `xml:"Ad"`
}

// Ad is one ad within the document. Wrapper ads are not followed; only
// inline ads are considered playable.
type Ad struct {
	ID     string  `xml:"id,attr"`
	InLine *InLine `xml:"InLine"`
}

// InLine carries the ad's creatives plus ad-level click and beacon fields.
type InLine struct {
	AdSystem      string         `xml:"AdSystem"`
	AdTitle       string         `xml:"AdTitle"`
	Impressions   []Impression   `xml:"Impression"`
	ClickThrough  string         `xml:"ClickThrough"`
	ClickTracking *ClickTracking `xml:"ClickTracking"`
	Creatives     Creatives      `xml:"Creatives"`
}

// Impression is one impression beacon.
type Impression struct {
	ID  string `xml:"id,attr,omitempty"`
	URL string `xml:",cdata"`
}

// ClickTracking is the ad-level click beacon object. Some ad servers attach a
// click-through landing page to it instead of to the creative.
type ClickTracking struct {
	URL          string `xml:",cdata"`
	ClickThrough string `xml:"ClickThrough"`
}

// Creatives wraps the creative list.
type Creatives struct {
	Creative []Creative `xml:"Creative"`
}

// Creative is one creative; only linear creatives are playable here.
type Creative struct {
	ID       string  `xml:"id,attr,omitempty"`
	Sequence int     `xml:"sequence,attr,omitempty"`
	Linear   *Linear `xml:"Linear"`
}

// Linear is a linear video creative.
type Linear struct {
	SkipOffset     string         `xml:"skipoffset,attr,omitempty"`
	Duration       string         `xml:"Duration"` // HH:MM:SS
	TrackingEvents TrackingEvents `xml:"TrackingEvents"`
	VideoClicks    *VideoClicks   `xml:"VideoClicks"`
	MediaFiles     MediaFiles     `xml:"MediaFiles"`
}

// TrackingEvents wraps the creative's tracking beacons.
type TrackingEvents struct {
	Tracking []Tracking `xml:"Tracking"`
}

// Tracking is one named tracking beacon.
type Tracking struct {
	Event string `xml:"event,attr"`
	URL   string `xml:",cdata"`
}

// VideoClicks carries the creative-level click-through and click beacons.
type VideoClicks struct {
	ClickThrough  string   `xml:"ClickThrough"`
	ClickTracking []string `xml:"ClickTracking"`
}

// MediaFiles wraps the media file list.
type MediaFiles struct {
	MediaFile []MediaFile `xml:"MediaFile"`
}

// MediaFile is one encoded rendition of the creative.
type MediaFile struct {
	Delivery string `xml:"delivery,attr"`
	Type     string `xml:"type,attr"`
	Width    int    `xml:"width,attr,omitempty"`
	Height   int    `xml:"height,attr,omitempty"`
	Bitrate  int    `xml:"bitrate,attr,omitempty"`
	URL      string `xml:",cdata"`
}

// Parse decodes a VAST ad document.
func Parse(data []byte) (*VAST, error) {
	var doc VAST
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdParse, err)
	}
	return &doc, nil
}

// ImpressionURLs returns the non-empty impression beacon URLs.
func (in *InLine) ImpressionURLs() []string {
	urls := make([]string, 0, len(in.Impressions))
	for _, imp := range in.Impressions {
		if u := strings.TrimSpace(imp.URL); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// TrackingURLs returns the beacon URLs registered for one event name.
func (l *Linear) TrackingURLs(event string) []string {
	var urls []string
	for _, tr := range l.TrackingEvents.Tracking {
		if tr.Event != event {
			continue
		}
		if u := strings.TrimSpace(tr.URL); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ClickTrackingURLs returns the creative's click beacon URLs.
func (l *Linear) ClickTrackingURLs() []string {
	if l.VideoClicks == nil {
		return nil
	}
	var urls []string
	for _, u := range l.VideoClicks.ClickTracking {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// DurationSeconds parses the linear duration clock string. Returns 0 when the
// value is absent or malformed; callers substitute their default.
func (l *Linear) DurationSeconds() float64 {
	return parseClock(l.Duration)
}

// SkipOffsetSeconds parses the skipoffset attribute. The second return is
// false when no valid skip offset is declared.
func (l *Linear) SkipOffsetSeconds() (float64, bool) {
	if strings.TrimSpace(l.SkipOffset) == "" {
		return 0, false
	}
	v := parseClock(l.SkipOffset)
	if v == 0 && strings.TrimSpace(l.SkipOffset) != "00:00:00" {
		return 0, false
	}
	return v, true
}

// PlayableMediaFile picks the media track used for client-side playback: the
// first progressive video rendition, falling back to the first entry with a
// usable URL. Nil when the creative has nothing playable.
func (l *Linear) PlayableMediaFile() *MediaFile {
	var fallback *MediaFile
	for i := range l.MediaFiles.MediaFile {
		mf := &l.MediaFiles.MediaFile[i]
		if strings.TrimSpace(mf.URL) == "" {
			continue
		}
		if mf.Delivery == "progressive" && strings.HasPrefix(mf.Type, "video/") {
			return mf
		}
		if fallback == nil {
			fallback = mf
		}
	}
	return fallback
}

// parseClock reads an HH:MM:SS clock string with optional fractional seconds.
// Malformed input reads as 0.
func parseClock(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 {
		return 0
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || sec < 0 {
		return 0
	}
	return float64(h)*3600 + float64(m)*60 + sec
}
