package timeline

import (
	"context"
	"time"

	"cuepoint/internal/logger"
	"cuepoint/internal/metrics"
	"cuepoint/internal/models"
	"cuepoint/internal/vast"
)

// resolveTimeout bounds the ad metadata fetch that starts on break entry
const resolveTimeout = 8 * time.Second

// Reconciler drives break state from playback clock samples. It holds no
// lock of its own: the owning session serializes OnClockSample, Skip, Click
// and the dispatched resolution callbacks.
type Reconciler struct {
	mode            string
	contentDuration float64
	breaks          []*models.Break

	resolver  MetadataResolver
	emitter   TrackingEmitter
	presenter Presenter
	player    Seeker
	metrics   *metrics.Metrics

	state         ReconcilerState
	activeBreak   *models.Break
	lastTriggered int
	skipPending   bool
	adClock       bool

	// Dispatch moves async resolver results back onto the owner's
	// serialized context. The default runs the function inline.
	Dispatch func(fn func())

	// OnBreakEnter, OnMetadataApplied and OnBreakExit are optional hooks
	// for the playback layer to run source swaps around state transitions.
	// They run synchronously on the serialized context.
	OnBreakEnter      func(brk *models.Break)
	OnMetadataApplied func(brk *models.Break, meta *vast.Metadata)
	OnBreakExit       func(brk *models.Break)
}

// NewReconciler creates a reconciler for a single playback session
func NewReconciler(
	mode string,
	contentDuration float64,
	breaks []*models.Break,
	resolver MetadataResolver,
	emitter TrackingEmitter,
	presenter Presenter,
	player Seeker,
	m *metrics.Metrics,
) *Reconciler {
	return &Reconciler{
		mode:            mode,
		contentDuration: contentDuration,
		breaks:          breaks,
		resolver:        resolver,
		emitter:         emitter,
		presenter:       presenter,
		player:          player,
		metrics:         m,
		state:           StateIdle,
		lastTriggered:   -1,
		Dispatch:        func(fn func()) { fn() },
	}
}

// State returns the current reconciler state
func (r *Reconciler) State() ReconcilerState {
	return r.state
}

// ActiveBreak returns the break currently in flight, or nil
func (r *Reconciler) ActiveBreak() *models.Break {
	return r.activeBreak
}

// Breaks returns the live break list backing this reconciler
func (r *Reconciler) Breaks() []*models.Break {
	return r.breaks
}

// SetAdClockActive tells the reconciler whether samples now come from a
// swapped-in ad surface, which runs its own clock from zero.
func (r *Reconciler) SetAdClockActive(active bool) {
	r.adClock = active
}

// OnClockSample advances the state machine for one sample of the playback
// clock. With no breaks scheduled it is a no-op. At most one state
// transition happens per sample.
func (r *Reconciler) OnClockSample(t float64) {
	if len(r.breaks) == 0 {
		return
	}

	if r.state == StateInBreak {
		start := r.activeWindowStart()
		if r.inActiveWindow(t, start) {
			elapsed := t - start
			if elapsed < 0 {
				elapsed = 0
			}
			r.emitter.UpdateProgress(elapsed)
			r.presenter.UpdateSkipAffordance(elapsed, r.activeBreak.Duration, r.activeBreak.SkipOffset)
			return
		}
		r.exitBreak()
		return
	}

	match := MatchBreak(r.breaks, t, r.contentDuration, r.mode)
	if match == nil {
		return
	}
	if r.mode == models.TimelineModeContentRelative && match.OrdinalIndex == r.lastTriggered {
		return
	}
	r.enterBreak(match, t)
}

// Skip seeks playback past the active break. The reconciler does not force
// the transition: the seek lands the next sample outside the window and the
// normal exit path runs from there.
func (r *Reconciler) Skip() error {
	if r.state != StateInBreak || r.activeBreak == nil {
		logger.Log.Debug().Msg("Skip requested with no active break")
		return ErrNoActiveBreak
	}
	if r.skipPending {
		return nil
	}
	r.skipPending = true

	brk := r.activeBreak
	target := r.skipTarget(brk)

	logger.Log.Info().
		Str("break_id", brk.ID).
		Int("ordinal", brk.OrdinalIndex).
		Float64("target", target).
		Msg("Skipping ad break")

	r.emitter.Skip()
	if r.metrics != nil {
		r.metrics.IncBreaksSkipped()
	}

	if err := r.player.Seek(target); err != nil {
		logger.Log.Error().
			Err(err).
			Str("break_id", brk.ID).
			Float64("target", target).
			Msg("Seek rejected while skipping break")
	}
	return nil
}

// Click resolves the click-through destination for the active break. The
// tracking session's creative target wins; the break's scheduled target is
// the fallback when tracking never started. No destination is not an error.
func (r *Reconciler) Click() (string, error) {
	if r.state != StateInBreak || r.activeBreak == nil {
		return "", ErrNoActiveBreak
	}

	if target, ok := r.emitter.Click(); ok && target != "" {
		return target, nil
	}
	if target := r.activeBreak.ClickThrough; target != "" {
		return target, nil
	}

	logger.Log.Debug().
		Str("break_id", r.activeBreak.ID).
		Msg("Click on break with no click-through target")
	return "", nil
}

// enterBreak transitions to IN_BREAK and starts the entry side effects:
// presentation, metrics and the async metadata fetch.
func (r *Reconciler) enterBreak(brk *models.Break, t float64) {
	r.state = StateInBreak
	r.activeBreak = brk
	r.lastTriggered = brk.OrdinalIndex
	r.skipPending = false

	logger.Log.Info().
		Str("break_id", brk.ID).
		Int("ordinal", brk.OrdinalIndex).
		Float64("clock", t).
		Str("mode", r.mode).
		Msg("Entering ad break")

	if r.metrics != nil {
		r.metrics.IncBreaksEntered()
	}
	r.presenter.ShowOverlay(brk)
	if r.OnBreakEnter != nil {
		r.OnBreakEnter(brk)
	}

	go r.resolve(brk)
}

// exitBreak transitions back to IDLE, ending the tracking session and
// tearing down presentation.
func (r *Reconciler) exitBreak() {
	brk := r.activeBreak

	logger.Log.Info().
		Str("break_id", brk.ID).
		Int("ordinal", brk.OrdinalIndex).
		Bool("skipped", r.skipPending).
		Msg("Exiting ad break")

	// Every exit fires the completion event, skip included: the skip path
	// rejoins here through the seek, and the emitter latches each event so
	// nothing double-fires.
	r.emitter.Complete()
	if r.metrics != nil {
		r.metrics.IncBreaksCompleted()
	}
	r.emitter.EndSession()
	r.presenter.HideOverlay(brk)

	r.state = StateIdle
	r.activeBreak = nil
	r.skipPending = false

	if r.OnBreakExit != nil {
		r.OnBreakExit(brk)
	}
}

// resolve fetches ad metadata off the sample path and dispatches the result
// back onto the serialized context.
func (r *Reconciler) resolve(brk *models.Break) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	meta, err := r.resolver.Resolve(ctx, brk.AdTagURI)
	r.Dispatch(func() {
		r.applyResolution(brk, meta, err)
	})
}

// applyResolution folds a resolver result into the break it was fetched
// for. Results for a break that is no longer active are dropped: a fast
// exit or a seek can outrun the fetch.
func (r *Reconciler) applyResolution(brk *models.Break, meta *vast.Metadata, err error) {
	if r.activeBreak != brk {
		logger.Log.Debug().
			Str("break_id", brk.ID).
			Msg("Dropping stale ad resolution")
		return
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.IncResolveFailures()
		}
		logger.Log.Warn().
			Err(err).
			Str("break_id", brk.ID).
			Msg("Ad resolution failed, presenting with declared defaults")
		return
	}

	brk.Duration = meta.Duration
	brk.SkipOffset = meta.SkipOffset
	if meta.ClickThrough != "" {
		brk.ClickThrough = meta.ClickThrough
	}
	brk.MediaURL = meta.MediaURL
	brk.Resolved = true

	r.emitter.BeginSession(brk, meta.Ad, meta.Creative)
	if r.OnMetadataApplied != nil {
		r.OnMetadataApplied(brk, meta)
	}
}

// activeWindowStart locates the active break's window origin on whichever
// clock currently produces samples.
func (r *Reconciler) activeWindowStart() float64 {
	if r.mode == models.TimelineModeStreamRelative {
		return ShiftedStart(r.breaks, r.activeBreak)
	}
	if r.adClock {
		return 0
	}
	return r.activeBreak.ContentTime
}

// inActiveWindow reports whether a sample keeps the active break alive.
// Content-relative entry accepts samples up to EdgeTolerance before the
// declared point, so persistence extends the same slack below the window
// start: a second sample landing just under the point must not end a break
// that has not played yet. Once the ad clock takes over, and in
// stream-relative mode, containment is exact.
func (r *Reconciler) inActiveWindow(t, start float64) bool {
	lower := start
	if r.mode == models.TimelineModeContentRelative && !r.adClock {
		lower = start - EdgeTolerance
	}
	return t >= lower && t < start+r.activeBreak.Duration
}

// skipTarget computes where the skip seek lands. Stream-relative targets
// are exact window ends; content-relative targets add SkipGuard so the
// landing sample falls outside the matching slack.
func (r *Reconciler) skipTarget(brk *models.Break) float64 {
	if r.mode == models.TimelineModeStreamRelative {
		return ShiftedStart(r.breaks, brk) + brk.Duration
	}
	return r.activeWindowStart() + brk.Duration + SkipGuard
}
