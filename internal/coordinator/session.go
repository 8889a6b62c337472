package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cuepoint/internal/models"
	"cuepoint/internal/playback"
	"cuepoint/internal/presentation"
	"cuepoint/internal/timeline"
	"cuepoint/internal/tracking"
)

// Session is one live playback session: the reconciler plus the collaborators
// wired around it. mu serializes every reconciler touch, including dispatched
// resolution callbacks; the reconciler itself holds no lock.
type Session struct {
	ID uuid.UUID

	mu         sync.Mutex
	record     *models.PlaybackSession
	reconciler *timeline.Reconciler
	emitter    *tracking.Emitter
	presenter  *presentation.EventPresenter
	player     *playback.RemotePlayer

	contentURL string
	swapped    bool
	suspended  bool
	lastSample time.Time
	lastTouch  time.Time
}

// Status is a point-in-time view of the reconciler for API responses
type Status struct {
	State       timeline.ReconcilerState `json:"state"`
	ActiveBreak *models.Break            `json:"active_break,omitempty"`
}

// Record returns a copy of the persisted session row backing this session.
func (s *Session) Record() *models.PlaybackSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := *s.record
	return &record
}

// Breaks returns a copy of the session's break schedule. Copies, because
// resolution rewrites break fields in place while callers marshal.
func (s *Session) Breaks() []*models.Break {
	s.mu.Lock()
	defer s.mu.Unlock()

	breaks := s.reconciler.Breaks()
	out := make([]*models.Break, len(breaks))
	for i, brk := range breaks {
		clone := *brk
		out[i] = &clone
	}
	return out
}

// Status returns the current reconciler state and active break.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	status := Status{State: s.reconciler.State()}
	if brk := s.reconciler.ActiveBreak(); brk != nil {
		clone := *brk
		status.ActiveBreak = &clone
	}
	return status
}

// IdleDuration returns how long ago the session last reported a clock sample.
func (s *Session) IdleDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSample)
}

// ShouldCleanup returns true if the session has been idle past the stale window
func (s *Session) ShouldCleanup(staleAfter time.Duration) bool {
	return s.IdleDuration() > staleAfter
}
