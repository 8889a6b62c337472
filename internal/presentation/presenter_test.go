package presentation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuepoint/internal/models"
)

type recordedEvent struct {
	event   string
	payload interface{}
}

type fakeBroadcaster struct {
	events []recordedEvent
}

func (f *fakeBroadcaster) Broadcast(sessionID uuid.UUID, event string, payload interface{}) {
	f.events = append(f.events, recordedEvent{event, payload})
}

func testBreak() *models.Break {
	return &models.Break{
		OrdinalIndex:   1,
		ID:             "break_1",
		DeclaredOffset: "00:05:00",
		ContentTime:    300,
		Duration:       30,
		SkipOffset:     5,
		ClickThrough:   "https://brand.example.com/landing",
	}
}

func TestEventPresenter_ShowAndHideOverlay(t *testing.T) {
	sink := &fakeBroadcaster{}
	p := NewEventPresenter(uuid.New(), sink)
	brk := testBreak()

	p.ShowOverlay(brk)
	p.HideOverlay(brk)

	require.Len(t, sink.events, 2)
	assert.Equal(t, EventBreakStart, sink.events[0].event)
	assert.Equal(t, EventBreakEnd, sink.events[1].event)

	evt, ok := sink.events[0].payload.(BreakEvent)
	require.True(t, ok)
	assert.Equal(t, "break_1", evt.BreakID)
	assert.Equal(t, 1, evt.Ordinal)
	assert.Equal(t, "00:05:00", evt.Offset)
	assert.Equal(t, 30.0, evt.Duration)
	assert.Equal(t, "https://brand.example.com/landing", evt.ClickThrough)
}

func TestEventPresenter_SkipAffordance(t *testing.T) {
	tests := []struct {
		name      string
		elapsed   float64
		allowed   bool
		countdown int
	}{
		{name: "at break start", elapsed: 0, allowed: false, countdown: 5},
		{name: "partway through countdown", elapsed: 3.9, allowed: false, countdown: 2},
		{name: "just before the offset", elapsed: 4.9, allowed: false, countdown: 1},
		{name: "exactly at the offset", elapsed: 5.0, allowed: true, countdown: 0},
		{name: "well past the offset", elapsed: 20, allowed: true, countdown: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeBroadcaster{}
			p := NewEventPresenter(uuid.New(), sink)

			p.UpdateSkipAffordance(tt.elapsed, 30, 5)

			require.Len(t, sink.events, 1)
			assert.Equal(t, EventSkipState, sink.events[0].event)

			state, ok := sink.events[0].payload.(SkipState)
			require.True(t, ok)
			assert.Equal(t, tt.allowed, state.Allowed)
			assert.Equal(t, tt.countdown, state.Countdown)
			assert.Equal(t, tt.elapsed, state.Elapsed)
			assert.Equal(t, 30.0, state.Duration)
		})
	}
}

func TestEventPresenter_ZeroOffsetAllowsImmediately(t *testing.T) {
	sink := &fakeBroadcaster{}
	p := NewEventPresenter(uuid.New(), sink)

	p.UpdateSkipAffordance(0, 30, 0)

	state := sink.events[0].payload.(SkipState)
	assert.True(t, state.Allowed)
	assert.Equal(t, 0, state.Countdown)
}

func TestEventPresenter_ScheduleSummary(t *testing.T) {
	sink := &fakeBroadcaster{}
	p := NewEventPresenter(uuid.New(), sink)

	p.RenderScheduleSummary([]*models.Break{testBreak()})

	require.Len(t, sink.events, 1)
	assert.Equal(t, EventScheduleReady, sink.events[0].event)

	summary, ok := sink.events[0].payload.(ScheduleSummary)
	require.True(t, ok)
	assert.Equal(t, 1, summary.BreakCount)
	require.Len(t, summary.Breaks, 1)
	assert.Equal(t, "break_1", summary.Breaks[0].ID)
}
