// Package presentation renders break lifecycle callbacks as events on a
// per-session WebSocket stream, standing in for a player UI overlay.
package presentation

import "cuepoint/internal/models"

// Event stream event types
const (
	EventScheduleReady = "schedule.ready"
	EventBreakStart    = "break.start"
	EventBreakEnd      = "break.end"
	EventSkipState     = "break.skip_state"
	EventClickThrough  = "break.click_through"
)

// BreakEvent describes a break transition pushed to clients
type BreakEvent struct {
	BreakID      string  `json:"break_id"`
	Ordinal      int     `json:"ordinal"`
	Offset       string  `json:"offset"`
	ContentTime  float64 `json:"content_time"`
	Duration     float64 `json:"duration"`
	ClickThrough string  `json:"click_through,omitempty"`
}

// SkipState describes the skip affordance for the active break
type SkipState struct {
	Allowed   bool    `json:"allowed"`
	Countdown int     `json:"countdown"`
	Elapsed   float64 `json:"elapsed"`
	Duration  float64 `json:"duration"`
}

// ClickThrough carries the destination a client should open after a click
type ClickThrough struct {
	URL string `json:"url"`
}

// ScheduleSummary lists the breaks scheduled for a session
type ScheduleSummary struct {
	BreakCount int             `json:"break_count"`
	Breaks     []*models.Break `json:"breaks"`
}
