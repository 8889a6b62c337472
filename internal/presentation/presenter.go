package presentation

import (
	"math"

	"github.com/google/uuid"

	"cuepoint/internal/models"
)

// broadcaster publishes events to a session's connected clients
type broadcaster interface {
	Broadcast(sessionID uuid.UUID, event string, payload interface{})
}

// EventPresenter renders break presentation callbacks as session events
type EventPresenter struct {
	sessionID uuid.UUID
	events    broadcaster
}

// NewEventPresenter creates a presenter bound to one session
func NewEventPresenter(sessionID uuid.UUID, events broadcaster) *EventPresenter {
	return &EventPresenter{
		sessionID: sessionID,
		events:    events,
	}
}

// ShowOverlay announces break entry
func (p *EventPresenter) ShowOverlay(brk *models.Break) {
	p.events.Broadcast(p.sessionID, EventBreakStart, breakEvent(brk))
}

// HideOverlay announces break exit
func (p *EventPresenter) HideOverlay(brk *models.Break) {
	p.events.Broadcast(p.sessionID, EventBreakEnd, breakEvent(brk))
}

// UpdateSkipAffordance publishes the skip state for the active break. The
// countdown rounds up so a "0 seconds left" label can only appear once
// skipping is actually allowed.
func (p *EventPresenter) UpdateSkipAffordance(elapsed, duration, skipOffset float64) {
	state := SkipState{
		Elapsed:  elapsed,
		Duration: duration,
	}
	if elapsed >= skipOffset {
		state.Allowed = true
	} else {
		state.Countdown = int(math.Ceil(skipOffset - elapsed))
	}
	p.events.Broadcast(p.sessionID, EventSkipState, state)
}

// AnnounceClickThrough pushes the destination a click should open
func (p *EventPresenter) AnnounceClickThrough(url string) {
	p.events.Broadcast(p.sessionID, EventClickThrough, ClickThrough{URL: url})
}

// RenderScheduleSummary publishes the session's full break schedule
func (p *EventPresenter) RenderScheduleSummary(breaks []*models.Break) {
	p.events.Broadcast(p.sessionID, EventScheduleReady, ScheduleSummary{
		BreakCount: len(breaks),
		Breaks:     breaks,
	})
}

func breakEvent(brk *models.Break) BreakEvent {
	return BreakEvent{
		BreakID:      brk.ID,
		Ordinal:      brk.OrdinalIndex,
		Offset:       brk.DeclaredOffset,
		ContentTime:  brk.ContentTime,
		Duration:     brk.Duration,
		ClickThrough: brk.ClickThrough,
	}
}
