package timeline

import (
	"context"

	"cuepoint/internal/models"
	"cuepoint/internal/vast"
)

// ReconcilerState identifies the reconciler's position in the break lifecycle
type ReconcilerState string

const (
	// StateIdle means no break is active and each sample is matched for entry
	StateIdle ReconcilerState = "idle"

	// StateInBreak means exactly one break is active and samples drive its
	// progress until the clock leaves the break window
	StateInBreak ReconcilerState = "in_break"
)

// Presenter receives presentation callbacks as breaks enter, progress and
// exit. Implementations must tolerate repeated calls with the same payload.
type Presenter interface {
	ShowOverlay(brk *models.Break)
	HideOverlay(brk *models.Break)
	UpdateSkipAffordance(elapsed, duration, skipOffset float64)
	RenderScheduleSummary(breaks []*models.Break)
}

// MetadataResolver fetches and interprets ad metadata for a break locator
type MetadataResolver interface {
	Resolve(ctx context.Context, locator string) (*vast.Metadata, error)
}

// TrackingEmitter owns the per-break tracking session and its beacons
type TrackingEmitter interface {
	BeginSession(brk *models.Break, ad *vast.Ad, creative *vast.Creative)
	UpdateProgress(elapsed float64)
	Skip()
	Complete()
	Click() (string, bool)
	EndSession()
}

// Seeker issues absolute seeks on whichever surface currently drives the clock
type Seeker interface {
	Seek(seconds float64) error
}
