package vast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cuepoint/internal/logger"
)

// Metadata is the outcome of one successful ad document resolution. The Ad
// and Creative handles feed the tracking emitter; the scalar fields overwrite
// the break's placeholder values.
type Metadata struct {
	Duration     float64
	SkipOffset   float64
	ClickThrough string
	MediaURL     string
	Ad           *Ad
	Creative     *Creative
}

// Resolver fetches and interprets VAST ad documents.
type Resolver struct {
	http              *http.Client
	defaultDuration   float64
	defaultSkipOffset float64
}

// NewResolver creates a resolver. The defaults fill in whenever a creative
// declares no usable duration or skip offset.
func NewResolver(timeout time.Duration, defaultDuration, defaultSkipOffset float64) *Resolver {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Resolver{
		http:              &http.Client{Timeout: timeout},
		defaultDuration:   defaultDuration,
		defaultSkipOffset: defaultSkipOffset,
	}
}

// Resolve fetches the ad document behind locator and extracts playback
// metadata from its first playable inline linear creative. Every failure path
// returns nil metadata with a diagnostic error; the caller keeps the break's
// defaults and never treats this as fatal.
func (r *Resolver) Resolve(ctx context.Context, locator string) (*Metadata, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrAdFetch)
	}

	body, err := r.fetch(ctx, locator)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}

	return r.interpret(doc)
}

// ResolveDocument extracts metadata from an already-parsed document. Used by
// tests and by callers that source the document elsewhere.
func (r *Resolver) ResolveDocument(doc *VAST) (*Metadata, error) {
	return r.interpret(doc)
}

func (r *Resolver) fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdFetch, err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: ad server returned status %d", ErrAdFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdFetch, err)
	}
	return body, nil
}

func (r *Resolver) interpret(doc *VAST) (*Metadata, error) {
	if doc == nil {
		return nil, ErrNoPlayableCreative
	}

	ad, creative := firstPlayable(doc)
	if creative == nil {
		return nil, ErrNoPlayableCreative
	}

	linear := creative.Linear
	media := linear.PlayableMediaFile()

	duration := linear.DurationSeconds()
	if duration <= 0 {
		duration = r.defaultDuration
	}

	skipOffset := r.defaultSkipOffset
	if v, ok := linear.SkipOffsetSeconds(); ok {
		skipOffset = v
	}

	meta := &Metadata{
		Duration:     duration,
		SkipOffset:   skipOffset,
		ClickThrough: resolveClickThrough(ad, creative),
		MediaURL:     strings.TrimSpace(media.URL),
		Ad:           ad,
		Creative:     creative,
	}

	logger.Log.Debug().
		Str("ad_id", ad.ID).
		Str("creative_id", creative.ID).
		Float64("duration", meta.Duration).
		Bool("has_click_through", meta.ClickThrough != "").
		Msg("resolved ad metadata")

	return meta, nil
}

// firstPlayable returns the first inline ad and linear creative pair exposing
// a playable media file.
func firstPlayable(doc *VAST) (*Ad, *Creative) {
	for i := range doc.Ads {
		ad := &doc.Ads[i]
		if ad.InLine == nil {
			continue
		}
		for j := range ad.InLine.Creatives.Creative {
			creative := &ad.InLine.Creatives.Creative[j]
			if creative.Linear == nil {
				continue
			}
			if creative.Linear.PlayableMediaFile() != nil {
				return ad, creative
			}
		}
	}
	return nil, nil
}

// resolveClickThrough walks the three places a click-through target may live,
// first present wins: creative-level video clicks, the ad-level field, then
// the ad-level click-tracking object. Absence disables the affordance, it is
// not an error.
func resolveClickThrough(ad *Ad, creative *Creative) string {
	if creative.Linear.VideoClicks != nil {
		if target := strings.TrimSpace(creative.Linear.VideoClicks.ClickThrough); target != "" {
			return target
		}
	}
	if target := strings.TrimSpace(ad.InLine.ClickThrough); target != "" {
		return target
	}
	if ad.InLine.ClickTracking != nil {
		if target := strings.TrimSpace(ad.InLine.ClickTracking.ClickThrough); target != "" {
			return target
		}
	}
	return ""
}
