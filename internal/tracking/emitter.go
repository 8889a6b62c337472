package tracking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"cuepoint/internal/logger"
	"cuepoint/internal/metrics"
	"cuepoint/internal/models"
	"cuepoint/internal/vast"
)

// eventJournal persists fired events. Satisfied by db.TrackingEventRepository.
type eventJournal interface {
	RecordEvent(ctx context.Context, event *models.TrackingEvent) error
}

// Emitter dispatches tracking beacons for one playback session and journals
// every fired event. Beacon requests are fire-and-forget: each batch runs on
// its own goroutine with a short timeout behind the dispatch breaker, so a
// dead tracking host never stalls clock-sample processing.
type Emitter struct {
	playbackSessionID uuid.UUID
	journal           eventJournal
	metrics           *metrics.Metrics
	breaker           *Breaker
	http              *http.Client
	pixelTimeout      time.Duration

	mu      sync.Mutex
	session *Session
}

// NewEmitter creates the beacon emitter for one playback session. journal and
// m may be nil, which disables journaling or metrics; a nil breaker gets the
// default thresholds.
func NewEmitter(playbackSessionID uuid.UUID, journal eventJournal, m *metrics.Metrics, breaker *Breaker, pixelTimeout time.Duration) *Emitter {
	if breaker == nil {
		breaker = NewBreaker(5, 30*time.Second)
	}
	if pixelTimeout <= 0 {
		pixelTimeout = 3 * time.Second
	}
	return &Emitter{
		playbackSessionID: playbackSessionID,
		journal:           journal,
		metrics:           m,
		breaker:           breaker,
		http:              &http.Client{Timeout: pixelTimeout},
		pixelTimeout:      pixelTimeout,
	}
}

// BeginSession starts tracking for a resolved ad/creative pair and fires the
// impression beacon. The impression latches, so it fires at most once even if
// a session is begun twice for the same break.
func (e *Emitter) BeginSession(brk *models.Break, ad *vast.Ad, creative *vast.Creative) {
	if brk == nil {
		return
	}

	e.mu.Lock()
	if e.session == nil || e.session.breakID != brk.ID {
		e.session = newSession(brk, ad, creative)
	}
	s := e.session
	fire := s.markOnce(models.TrackingEventImpression)
	e.mu.Unlock()

	if fire {
		e.dispatch(s, models.TrackingEventImpression, 0)
	}
}

// UpdateProgress fires any quartile beacons newly crossed at elapsed seconds.
// Quartiles latch per session: repeated or regressing elapsed values never
// re-fire one.
func (e *Emitter) UpdateProgress(elapsed float64) {
	e.mu.Lock()
	s := e.session
	var crossed []string
	if s != nil {
		crossed = s.crossedQuartiles(elapsed)
	}
	e.mu.Unlock()

	for _, event := range crossed {
		e.dispatch(s, event, elapsed)
	}
}

// Skip fires the skip beacon, at most once per session.
func (e *Emitter) Skip() {
	e.fireLatched(models.TrackingEventSkip)
}

// Complete fires the completion beacon, at most once per session.
func (e *Emitter) Complete() {
	e.fireLatched(models.TrackingEventComplete)
}

// Click fires the click beacons and returns the tracker-held click-through
// target when the session knows one. Clicks do not latch; every call fires.
func (e *Emitter) Click() (string, bool) {
	e.mu.Lock()
	s := e.session
	var target string
	if s != nil {
		target = s.clickThrough
	}
	e.mu.Unlock()

	if s == nil {
		return "", false
	}
	e.dispatch(s, models.TrackingEventClick, 0)
	return target, target != ""
}

// EndSession drops the current tracking session. Safe to call without one.
func (e *Emitter) EndSession() {
	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()
}

func (e *Emitter) fireLatched(event string) {
	e.mu.Lock()
	s := e.session
	fire := s != nil && s.markOnce(event)
	e.mu.Unlock()

	if fire {
		e.dispatch(s, event, 0)
	}
}

// dispatch journals the event and fires its beacons without blocking the
// caller. Beacon outcomes feed only the breaker and metrics.
func (e *Emitter) dispatch(s *Session, event string, elapsed float64) {
	if e.metrics != nil {
		e.metrics.IncTrackingEvents()
	}
	e.journalEvent(s, event, elapsed)

	urls := s.beaconURLs(event)
	if len(urls) == 0 {
		return
	}

	if !e.breaker.Allow() {
		if e.metrics != nil {
			e.metrics.IncTrackingFailures()
		}
		logger.Log.Debug().
			Str("event", event).
			Str("break_id", s.breakID).
			Msg("beacon suppressed by open dispatch breaker")
		return
	}

	go e.firePixels(event, s.breakID, urls)
}

func (e *Emitter) firePixels(event, breakID string, urls []string) {
	for _, url := range urls {
		ctx, cancel := context.WithTimeout(context.Background(), e.pixelTimeout)
		err := e.firePixel(ctx, url)
		cancel()

		if err != nil {
			e.breaker.Failure()
			if e.metrics != nil {
				e.metrics.IncTrackingFailures()
			}
			logger.Log.Debug().
				Err(err).
				Str("event", event).
				Str("break_id", breakID).
				Str("url", url).
				Msg("tracking beacon failed")
			continue
		}
		e.breaker.Success()
	}
}

func (e *Emitter) firePixel(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("beacon returned status %d", resp.StatusCode)
	}
	return nil
}

// journalEvent writes the journal row best-effort: a failure is logged and
// forgotten, never surfaced to playback.
func (e *Emitter) journalEvent(s *Session, event string, elapsed float64) {
	if e.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	row := models.NewTrackingEvent(e.playbackSessionID, s.breakID, s.ordinal, event, elapsed)
	if err := e.journal.RecordEvent(ctx, row); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("event", event).
			Str("break_id", s.breakID).
			Msg("failed to journal tracking event")
	}
}
