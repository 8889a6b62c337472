package playback

import (
	"github.com/google/uuid"

	"cuepoint/internal/logger"
)

// Command event types pushed to the controlling client
const (
	EventLoad  = "player.load"
	EventPlay  = "player.play"
	EventPause = "player.pause"
	EventSeek  = "player.seek"
)

// LoadCommand asks the client to switch its active source
type LoadCommand struct {
	URL     string  `json:"url"`
	StartAt float64 `json:"start_at"`
}

// SeekCommand asks the client to seek the active source
type SeekCommand struct {
	Seconds float64 `json:"seconds"`
}

// eventPublisher pushes command events to a session's connected clients
type eventPublisher interface {
	Broadcast(sessionID uuid.UUID, event string, payload interface{})
}

// RemotePlayer drives a client-side player by publishing command events on
// the session event stream. Commands are fire-and-forget: the client
// answers with clock samples, which close the control loop.
type RemotePlayer struct {
	sessionID uuid.UUID
	events    eventPublisher
}

// NewRemotePlayer creates a remote player bound to one session
func NewRemotePlayer(sessionID uuid.UUID, events eventPublisher) *RemotePlayer {
	return &RemotePlayer{
		sessionID: sessionID,
		events:    events,
	}
}

// Load asks the client to switch sources and position itself at startAt
func (p *RemotePlayer) Load(url string, startAt float64) error {
	logger.Log.Debug().
		Str("session_id", p.sessionID.String()).
		Str("url", url).
		Float64("start_at", startAt).
		Msg("Publishing player load command")
	p.events.Broadcast(p.sessionID, EventLoad, LoadCommand{URL: url, StartAt: startAt})
	return nil
}

// Play resumes the active source
func (p *RemotePlayer) Play() error {
	p.events.Broadcast(p.sessionID, EventPlay, nil)
	return nil
}

// Pause halts the active source
func (p *RemotePlayer) Pause() error {
	p.events.Broadcast(p.sessionID, EventPause, nil)
	return nil
}

// Seek moves the active source to an absolute position in seconds
func (p *RemotePlayer) Seek(seconds float64) error {
	logger.Log.Debug().
		Str("session_id", p.sessionID.String()).
		Float64("seconds", seconds).
		Msg("Publishing player seek command")
	p.events.Broadcast(p.sessionID, EventSeek, SeekCommand{Seconds: seconds})
	return nil
}
