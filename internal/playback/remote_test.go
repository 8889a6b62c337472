package playback

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	sessionID uuid.UUID
	event     string
	payload   interface{}
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) Broadcast(sessionID uuid.UUID, event string, payload interface{}) {
	f.events = append(f.events, publishedEvent{sessionID, event, payload})
}

func TestRemotePlayer_Load(t *testing.T) {
	pub := &fakePublisher{}
	sessionID := uuid.New()
	player := NewRemotePlayer(sessionID, pub)

	require.NoError(t, player.Load("https://cdn.example.com/ads/creative.mp4", 0))

	require.Len(t, pub.events, 1)
	assert.Equal(t, sessionID, pub.events[0].sessionID)
	assert.Equal(t, EventLoad, pub.events[0].event)
	assert.Equal(t, LoadCommand{URL: "https://cdn.example.com/ads/creative.mp4", StartAt: 0}, pub.events[0].payload)
}

func TestRemotePlayer_Seek(t *testing.T) {
	pub := &fakePublisher{}
	player := NewRemotePlayer(uuid.New(), pub)

	require.NoError(t, player.Seek(360))

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventSeek, pub.events[0].event)
	assert.Equal(t, SeekCommand{Seconds: 360}, pub.events[0].payload)
}

func TestRemotePlayer_PlayPause(t *testing.T) {
	pub := &fakePublisher{}
	player := NewRemotePlayer(uuid.New(), pub)

	require.NoError(t, player.Play())
	require.NoError(t, player.Pause())

	require.Len(t, pub.events, 2)
	assert.Equal(t, EventPlay, pub.events[0].event)
	assert.Equal(t, EventPause, pub.events[1].event)
}
