// Package stitch inspects stitched HLS media playlists and derives the ad
// cue windows they actually carry, so stream-relative sessions can check
// their computed windows against the stream itself.
package stitch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/Eyevinn/hls-m3u8/m3u8"

	"cuepoint/internal/logger"
)

const defaultProbeTimeout = 10 * time.Second

// CueWindow is one ad insertion interval on the stitched stream clock
type CueWindow struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Probe fetches and inspects stitched media playlists
type Probe struct {
	http *http.Client
}

// NewProbe creates a probe with the given fetch timeout
func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Probe{
		http: &http.Client{Timeout: timeout},
	}
}

// FetchWindows downloads the media playlist at streamURL and scans it for
// ad cue windows. Callers treat any error as advisory: the engine's
// computed windows remain authoritative.
func (p *Probe) FetchWindows(ctx context.Context, streamURL string) ([]CueWindow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbe, err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: playlist request returned status %d", ErrProbe, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbe, err)
	}

	playlist, _, err := m3u8.Decode(*bytes.NewBuffer(body), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbe, err)
	}

	mp, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a media playlist", ErrProbe, streamURL)
	}

	windows := Windows(mp)
	logger.Log.Debug().
		Str("url", streamURL).
		Int("windows", len(windows)).
		Msg("Probed stitched playlist for cue windows")
	return windows, nil
}

// Windows derives ad cue windows from a decoded media playlist. SCTE-35
// cue markers win when present; otherwise paired discontinuity tags are
// read as ad boundaries.
func Windows(mp *m3u8.MediaPlaylist) []CueWindow {
	if mp == nil {
		return nil
	}
	if hasSCTE(mp) {
		return scteWindows(mp)
	}
	return discontinuityWindows(mp)
}

// Closest returns the probed window whose start is nearest to start, or
// nil when no windows were found.
func Closest(windows []CueWindow, start float64) *CueWindow {
	var closest *CueWindow
	for i := range windows {
		if closest == nil || math.Abs(windows[i].Start-start) < math.Abs(closest.Start-start) {
			closest = &windows[i]
		}
	}
	return closest
}

func hasSCTE(mp *m3u8.MediaPlaylist) bool {
	for _, seg := range mp.Segments {
		if seg != nil && seg.SCTE != nil {
			return true
		}
	}
	return false
}

// scteWindows opens a window at each cue-out segment and closes it at the
// next cue-in. A window left open runs to the end of the playlist.
func scteWindows(mp *m3u8.MediaPlaylist) []CueWindow {
	var windows []CueWindow
	var elapsed float64
	openAt := -1.0

	for _, seg := range mp.Segments {
		if seg == nil {
			continue
		}
		if seg.SCTE != nil {
			switch seg.SCTE.CueType {
			case m3u8.SCTE35Cue_Start:
				if openAt < 0 {
					openAt = elapsed
				}
			case m3u8.SCTE35Cue_End:
				if openAt >= 0 {
					windows = append(windows, CueWindow{Start: openAt, Duration: elapsed - openAt})
					openAt = -1
				}
			}
		}
		elapsed += seg.Duration
	}
	if openAt >= 0 {
		windows = append(windows, CueWindow{Start: openAt, Duration: elapsed - openAt})
	}
	return windows
}

// discontinuityWindows pairs discontinuity markers: the first opens an ad
// window, the next closes it where content resumes.
func discontinuityWindows(mp *m3u8.MediaPlaylist) []CueWindow {
	var windows []CueWindow
	var elapsed float64
	openAt := -1.0

	for _, seg := range mp.Segments {
		if seg == nil {
			continue
		}
		if seg.Discontinuity {
			if openAt < 0 {
				openAt = elapsed
			} else {
				windows = append(windows, CueWindow{Start: openAt, Duration: elapsed - openAt})
				openAt = -1
			}
		}
		elapsed += seg.Duration
	}
	if openAt >= 0 {
		windows = append(windows, CueWindow{Start: openAt, Duration: elapsed - openAt})
	}
	return windows
}
