// Package playback bridges the engine's playback commands to player
// surfaces controlled remotely over the session event stream.
package playback

// Player is the control surface the engine drives around break
// transitions. Implementations are session-scoped.
type Player interface {
	Load(url string, startAt float64) error
	Play() error
	Pause() error
	Seek(seconds float64) error
}
