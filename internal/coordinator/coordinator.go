// Package coordinator owns live playback sessions. It builds each session's
// break schedule, wires the reconciler and its collaborators, fans client
// commands into them and retires sessions that stop reporting.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"cuepoint/internal/config"
	"cuepoint/internal/db"
	"cuepoint/internal/logger"
	"cuepoint/internal/metrics"
	"cuepoint/internal/models"
	"cuepoint/internal/playback"
	"cuepoint/internal/presentation"
	"cuepoint/internal/schedule"
	"cuepoint/internal/stitch"
	"cuepoint/internal/timeline"
	"cuepoint/internal/tracking"
	"cuepoint/internal/vast"
)

// Common errors
var (
	ErrSessionNotFound    = errors.New("playback session not found")
	ErrInvalidMode        = errors.New("invalid timeline mode")
	ErrCoordinatorStopped = errors.New("coordinator has been stopped")
)

const (
	cleanupTimeout     = 30 * time.Second
	clientEventTimeout = 5 * time.Second
	stitchProbeTimeout = 15 * time.Second
)

// Client event names accepted on the session event stream
const (
	clientEventTime  = "player.time"
	clientEventSkip  = "player.skip"
	clientEventClick = "player.click"
)

// LoadInput carries the parameters of one load operation. An empty Mode
// falls back to the configured default.
type LoadInput struct {
	UserID          string
	ContentURL      string
	ContentDuration float64
	Mode            string
}

// SessionView is the API-facing description of a session, live or ended
type SessionView struct {
	Session *models.PlaybackSession `json:"session"`
	Status  *Status                 `json:"status,omitempty"`
	Breaks  []*models.Break         `json:"breaks,omitempty"`
}

// Coordinator orchestrates the playback session lifecycle
type Coordinator struct {
	repos     *db.Repositories
	schedules *schedule.Client
	builder   *schedule.Builder
	resolver  *vast.Resolver
	probe     *stitch.Probe
	hub       *presentation.Hub
	metrics   *metrics.Metrics
	cfg       *config.PlaybackConfig

	cleanupTicker *time.Ticker
	stopChan      chan struct{}
	cleanupDone   chan struct{}

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	stopped  bool
}

// NewCoordinator creates a new session coordinator
func NewCoordinator(
	repos *db.Repositories,
	schedules *schedule.Client,
	builder *schedule.Builder,
	resolver *vast.Resolver,
	probe *stitch.Probe,
	hub *presentation.Hub,
	m *metrics.Metrics,
	cfg *config.PlaybackConfig,
) *Coordinator {
	return &Coordinator{
		repos:       repos,
		schedules:   schedules,
		builder:     builder,
		resolver:    resolver,
		probe:       probe,
		hub:         hub,
		metrics:     m,
		cfg:         cfg,
		stopChan:    make(chan struct{}),
		cleanupDone: make(chan struct{}),
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// Start launches the background cleanup loop
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrCoordinatorStopped
	}

	c.cleanupTicker = time.NewTicker(c.cfg.CleanupInterval)
	go c.runCleanupLoop()

	logger.Log.Info().
		Dur("cleanup_interval", c.cfg.CleanupInterval).
		Dur("stale_after", c.cfg.StaleAfter).
		Dur("journal_retention", c.cfg.JournalRetention).
		Msg("Session coordinator started")

	return nil
}

// Stop gracefully shuts down the coordinator and unloads all live sessions
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	logger.Log.Info().Msg("Stopping session coordinator...")

	close(c.stopChan)
	if c.cleanupTicker != nil {
		<-c.cleanupDone
		c.cleanupTicker.Stop()
	}

	sessions := c.liveSessions()
	for _, session := range sessions {
		if err := c.Unload(context.Background(), session.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			logger.Log.Error().
				Err(err).
				Str("session_id", session.ID.String()).
				Msg("Failed to unload session during shutdown")
		}
	}

	logger.Log.Info().
		Int("unloaded_sessions", len(sessions)).
		Msg("Session coordinator stopped")
}

// Load creates a playback session: it fetches the ad schedule, builds the
// break list, persists the session row and wires the live reconciler stack.
// A schedule fetch or parse failure aborts the load.
func (c *Coordinator) Load(ctx context.Context, in LoadInput) (*Session, error) {
	c.mu.RLock()
	if c.stopped {
		c.mu.RUnlock()
		return nil, ErrCoordinatorStopped
	}
	c.mu.RUnlock()

	mode := in.Mode
	if mode == "" {
		mode = c.cfg.DefaultMode
	}
	if !models.IsValidTimelineMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, in.Mode)
	}

	doc, err := c.schedules.Fetch(ctx, in.ContentDuration, in.UserID)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("content_url", in.ContentURL).
			Msg("Failed to fetch ad schedule")
		return nil, fmt.Errorf("failed to load playback session: %w", err)
	}
	breaks := c.builder.Build(doc, in.ContentDuration)

	record := models.NewPlaybackSession(in.UserID, in.ContentURL, in.ContentDuration, mode)
	record.BreakCount = len(breaks)
	if err := c.repos.Sessions.Create(ctx, record); err != nil {
		logger.Log.Error().
			Err(err).
			Str("session_id", record.ID.String()).
			Msg("Failed to persist playback session")
		return nil, fmt.Errorf("failed to load playback session: %w", err)
	}

	emitter := tracking.NewEmitter(record.ID, c.repos.TrackingEvents, c.metrics, nil, c.cfg.PixelTimeout)
	presenter := presentation.NewEventPresenter(record.ID, c.hub)
	player := playback.NewRemotePlayer(record.ID, c.hub)

	reconciler := timeline.NewReconciler(
		mode,
		in.ContentDuration,
		breaks,
		c.resolver,
		emitter,
		presenter,
		player,
		c.metrics,
	)

	now := time.Now().UTC()
	session := &Session{
		ID:         record.ID,
		record:     record,
		reconciler: reconciler,
		emitter:    emitter,
		presenter:  presenter,
		player:     player,
		contentURL: in.ContentURL,
		lastSample: now,
		lastTouch:  now,
	}

	reconciler.Dispatch = func(fn func()) {
		session.mu.Lock()
		defer session.mu.Unlock()
		fn()
	}
	reconciler.OnBreakEnter = func(brk *models.Break) {
		c.pauseForBreak(session)
	}
	reconciler.OnMetadataApplied = func(brk *models.Break, meta *vast.Metadata) {
		c.beginAdPlayback(session, brk, meta)
	}
	reconciler.OnBreakExit = func(brk *models.Break) {
		c.endAdPlayback(session, brk)
	}

	c.mu.Lock()
	c.sessions[record.ID] = session
	count := len(c.sessions)
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.SetActiveSessions(count)
	}

	_ = player.Load(in.ContentURL, 0)
	presenter.RenderScheduleSummary(breaks)

	if mode == models.TimelineModeStreamRelative && c.probe != nil {
		go c.verifyStitchedCues(session)
	}

	logger.Log.Info().
		Str("session_id", record.ID.String()).
		Str("mode", mode).
		Int("break_count", len(breaks)).
		Str("user_id", in.UserID).
		Msg("Playback session loaded")

	return session, nil
}

// Get returns the live session for id
func (c *Coordinator) Get(id uuid.UUID) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session, ok := c.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SessionCount returns the number of live sessions
func (c *Coordinator) SessionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Describe returns the API view of a session. Live sessions carry reconciler
// state and the break schedule; ended sessions come back from the database
// with the persisted row only.
func (c *Coordinator) Describe(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	if session, err := c.Get(id); err == nil {
		status := session.Status()
		return &SessionView{
			Session: session.Record(),
			Status:  &status,
			Breaks:  session.Breaks(),
		}, nil
	}

	record, err := c.repos.Sessions.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &SessionView{Session: record}, nil
}

// ListSessions returns all persisted session rows, newest first
func (c *Coordinator) ListSessions(ctx context.Context) ([]*models.PlaybackSession, error) {
	return c.repos.Sessions.List(ctx)
}

// TrackingEvents returns the journaled tracking events for a session
func (c *Coordinator) TrackingEvents(ctx context.Context, id uuid.UUID) ([]*models.TrackingEvent, error) {
	if _, err := c.repos.Sessions.GetByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return c.repos.TrackingEvents.ListBySession(ctx, id)
}

// ReportTime feeds one playback clock sample into the session's reconciler
// and returns the resulting state. The session row's liveness stamp is
// refreshed at most once per touch interval.
func (c *Coordinator) ReportTime(ctx context.Context, id uuid.UUID, t float64) (*Status, error) {
	session, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	now := time.Now().UTC()
	session.lastSample = now
	if session.suspended {
		// A source swap is in flight. The client keeps posting samples from
		// the outgoing content clock until it processes the load command;
		// evaluating those against the rebased ad window would end the break
		// before the creative starts. The first sample inside the ad window
		// lifts the suspension.
		brk := session.reconciler.ActiveBreak()
		if brk == nil || t < brk.Duration {
			session.suspended = false
		} else {
			status := session.statusLocked()
			session.mu.Unlock()
			logger.Log.Debug().
				Str("session_id", id.String()).
				Float64("clock", t).
				Msg("Dropping clock sample during source swap")
			return &status, nil
		}
	}
	session.reconciler.OnClockSample(t)
	status := session.statusLocked()
	touchDue := now.Sub(session.lastTouch) >= c.cfg.TouchInterval
	if touchDue {
		session.lastTouch = now
	}
	session.mu.Unlock()

	if touchDue {
		if err := c.repos.Sessions.Touch(ctx, id); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("session_id", id.String()).
				Msg("Failed to refresh session liveness")
		}
	}

	return &status, nil
}

// Skip requests a seek past the session's active break
func (c *Coordinator) Skip(id uuid.UUID) error {
	session, err := c.Get(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	// the post-seek sample lands outside the break window and must be
	// honored even while a source swap is still in flight
	session.suspended = false
	return session.reconciler.Skip()
}

// Click resolves the active break's click-through destination and announces
// it on the session's event stream.
func (c *Coordinator) Click(id uuid.UUID) (string, error) {
	session, err := c.Get(id)
	if err != nil {
		return "", err
	}

	session.mu.Lock()
	target, err := session.reconciler.Click()
	session.mu.Unlock()
	if err != nil {
		return "", err
	}

	if target != "" {
		session.presenter.AnnounceClickThrough(target)
	}
	return target, nil
}

// Unload tears down a live session and closes its persisted row. Tracking
// for a break in flight ends without a completion beacon.
func (c *Coordinator) Unload(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	session, ok := c.sessions[id]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(c.sessions, id)
	count := len(c.sessions)
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.SetActiveSessions(count)
	}

	session.mu.Lock()
	session.emitter.EndSession()
	session.mu.Unlock()

	if err := c.repos.Sessions.MarkEnded(ctx, id, time.Now().UTC()); err != nil {
		if db.IsNotFound(err) {
			logger.Log.Debug().
				Str("session_id", id.String()).
				Msg("Session row already ended")
		} else {
			logger.Log.Warn().
				Err(err).
				Str("session_id", id.String()).
				Msg("Failed to mark session ended")
		}
	}

	logger.Log.Info().
		Str("session_id", id.String()).
		Msg("Playback session unloaded")

	return nil
}

// HandleClientEvent is the WebSocket ingestion path: clients push clock
// samples and break commands over the same stream that carries presentation
// events. Satisfies presentation.ClientEventHandler.
func (c *Coordinator) HandleClientEvent(sessionID uuid.UUID, event string, data json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), clientEventTimeout)
	defer cancel()

	switch event {
	case clientEventTime:
		var sample struct {
			T float64 `json:"t"`
		}
		if err := json.Unmarshal(data, &sample); err != nil {
			logger.Log.Debug().
				Err(err).
				Str("session_id", sessionID.String()).
				Msg("Malformed clock sample")
			return
		}
		if _, err := c.ReportTime(ctx, sessionID, sample.T); err != nil {
			logger.Log.Debug().
				Err(err).
				Str("session_id", sessionID.String()).
				Msg("Clock sample for unknown session")
		}
	case clientEventSkip:
		if err := c.Skip(sessionID); err != nil && !timeline.IsNoActiveBreak(err) {
			logger.Log.Debug().
				Err(err).
				Str("session_id", sessionID.String()).
				Msg("Skip command rejected")
		}
	case clientEventClick:
		if _, err := c.Click(sessionID); err != nil && !timeline.IsNoActiveBreak(err) {
			logger.Log.Debug().
				Err(err).
				Str("session_id", sessionID.String()).
				Msg("Click command rejected")
		}
	default:
		logger.Log.Debug().
			Str("event", event).
			Str("session_id", sessionID.String()).
			Msg("Unknown client event")
	}
}

// pauseForBreak holds the content surface while the break overlay is up.
// Stream-relative sessions keep playing: their ads are stitched into the
// stream itself.
func (c *Coordinator) pauseForBreak(s *Session) {
	if s.record.Mode != models.TimelineModeContentRelative {
		return
	}
	_ = s.player.Pause()
}

// beginAdPlayback swaps the client to the resolved ad creative. The swapped
// surface runs its own clock from zero, so the reconciler is rebased onto
// the ad clock.
func (c *Coordinator) beginAdPlayback(s *Session, brk *models.Break, meta *vast.Metadata) {
	if s.record.Mode != models.TimelineModeContentRelative || meta.MediaURL == "" {
		return
	}

	_ = s.player.Load(meta.MediaURL, 0)
	s.reconciler.SetAdClockActive(true)
	s.swapped = true
	s.suspended = true

	logger.Log.Debug().
		Str("session_id", s.ID.String()).
		Str("break_id", brk.ID).
		Str("media_url", meta.MediaURL).
		Msg("Swapped playback to ad creative")
}

// endAdPlayback restores the content surface after a break. Content resumes
// at the break's content time, where it paused when the break began.
func (c *Coordinator) endAdPlayback(s *Session, brk *models.Break) {
	if s.record.Mode != models.TimelineModeContentRelative {
		return
	}

	s.suspended = false
	if !s.swapped {
		// no creative ever loaded; content was only paused
		_ = s.player.Play()
		return
	}

	s.swapped = false
	s.reconciler.SetAdClockActive(false)

	resume := brk.ContentTime
	if resume < 0 {
		resume = 0
	}
	_ = s.player.Load(s.contentURL, resume)
	_ = s.player.Play()

	logger.Log.Debug().
		Str("session_id", s.ID.String()).
		Str("break_id", brk.ID).
		Float64("resume_at", resume).
		Msg("Restored content playback after break")
}

// verifyStitchedCues probes the stitched playlist and reports breaks whose
// computed shifted windows disagree with the cue markers actually in the
// stream. Diagnostic only: scheduling always follows the computed windows.
func (c *Coordinator) verifyStitchedCues(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), stitchProbeTimeout)
	defer cancel()

	windows, err := c.probe.FetchWindows(ctx, s.contentURL)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("session_id", s.ID.String()).
			Msg("Stitched playlist probe failed")
		return
	}
	if len(windows) == 0 {
		logger.Log.Debug().
			Str("session_id", s.ID.String()).
			Msg("Stitched playlist carries no cue windows")
		return
	}

	type expectation struct {
		id    string
		start float64
	}

	s.mu.Lock()
	breaks := s.reconciler.Breaks()
	expected := make([]expectation, len(breaks))
	for i, brk := range breaks {
		expected[i] = expectation{id: brk.ID, start: timeline.ShiftedStart(breaks, brk)}
	}
	s.mu.Unlock()

	for _, exp := range expected {
		window := stitch.Closest(windows, exp.start)
		drift := math.Abs(window.Start - exp.start)
		if drift > c.cfg.CueDriftTolerance {
			logger.Log.Warn().
				Str("session_id", s.ID.String()).
				Str("break_id", exp.id).
				Float64("expected_start", exp.start).
				Float64("cue_start", window.Start).
				Float64("drift", drift).
				Msg("Scheduled break drifts from stitched cue")
			continue
		}
		logger.Log.Debug().
			Str("session_id", s.ID.String()).
			Str("break_id", exp.id).
			Float64("start", exp.start).
			Msg("Scheduled break aligned with stitched cue")
	}
}

// runCleanupLoop runs periodic cleanup of idle sessions and expired rows
func (c *Coordinator) runCleanupLoop() {
	defer close(c.cleanupDone)

	logger.Log.Debug().Msg("Session cleanup loop started")

	for {
		select {
		case <-c.stopChan:
			logger.Log.Debug().Msg("Session cleanup loop stopping")
			return
		case <-c.cleanupTicker.C:
			c.performCleanup()
		}
	}
}

// performCleanup retires live sessions that stopped reporting clock samples,
// closes stale rows left over from earlier runs and applies journal retention.
func (c *Coordinator) performCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	for _, session := range c.staleSessions() {
		logger.Log.Info().
			Str("session_id", session.ID.String()).
			Dur("idle", session.IdleDuration()).
			Msg("Unloading idle playback session")
		if err := c.Unload(ctx, session.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			logger.Log.Error().
				Err(err).
				Str("session_id", session.ID.String()).
				Msg("Failed to unload idle session")
		}
	}

	now := time.Now().UTC()

	closed, err := c.repos.Sessions.EndStale(ctx, now.Add(-c.cfg.StaleAfter))
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to end stale session rows")
	} else if closed > 0 {
		logger.Log.Info().Int64("count", closed).Msg("Ended stale session rows")
	}

	purged, err := c.repos.TrackingEvents.PurgeBefore(ctx, now.Add(-c.cfg.JournalRetention))
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to purge expired tracking events")
	} else if purged > 0 {
		logger.Log.Debug().Int64("count", purged).Msg("Purged expired tracking events")
	}

	removed, err := c.repos.Sessions.DeleteEndedBefore(ctx, now.Add(-c.cfg.JournalRetention))
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to delete expired session rows")
	} else if removed > 0 {
		logger.Log.Debug().Int64("count", removed).Msg("Deleted expired session rows")
	}
}

// staleSessions snapshots the live sessions past the stale window
func (c *Coordinator) staleSessions() []*Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var stale []*Session
	for _, session := range c.sessions {
		if session.ShouldCleanup(c.cfg.StaleAfter) {
			stale = append(stale, session)
		}
	}
	return stale
}

// liveSessions snapshots all live sessions
func (c *Coordinator) liveSessions() []*Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sessions := make([]*Session, 0, len(c.sessions))
	for _, session := range c.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
