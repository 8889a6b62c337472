//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuepoint/internal/models"
	"cuepoint/internal/presentation"
)

// dialEvents opens the session event stream over a real WebSocket connection
func dialEvents(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + sessionID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "Failed to dial event stream")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads stream messages until one matches the wanted event type
func readUntil(t *testing.T, conn *websocket.Conn, event string) presentation.WSMessage {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var msg presentation.WSMessage
		require.NoError(t, conn.ReadJSON(&msg), "event %q never arrived", event)
		if msg.Event == event {
			return msg
		}
	}
}

func TestEventStream_BreakLifecycle(t *testing.T) {
	stack := setupStack(t)
	server := httptest.NewServer(stack.Router)
	t.Cleanup(server.Close)

	view := createSession(t, stack, models.TimelineModeContentRelative)
	id := view.Session.ID.String()

	conn := dialEvents(t, server, id)
	require.Eventually(t, func() bool {
		return stack.Hub.ClientCount(view.Session.ID) == 1
	}, time.Second, 10*time.Millisecond)

	// a clock sample pushed over the stream drives the reconciler
	require.NoError(t, conn.WriteJSON(presentation.WSMessage{
		Event: "player.time",
		Data:  json.RawMessage(`{"t":0.1}`),
	}))

	msg := readUntil(t, conn, presentation.EventBreakStart)
	var start presentation.BreakEvent
	require.NoError(t, json.Unmarshal(msg.Data, &start))
	assert.Equal(t, "pre", start.BreakID)
	assert.Equal(t, 0, start.Ordinal)

	awaitBreakResolved(t, stack, id, 0)

	// progress samples surface the skip affordance countdown
	require.NoError(t, conn.WriteJSON(presentation.WSMessage{
		Event: "player.time",
		Data:  json.RawMessage(`{"t":2}`),
	}))

	msg = readUntil(t, conn, presentation.EventSkipState)
	var skip presentation.SkipState
	require.NoError(t, json.Unmarshal(msg.Data, &skip))
	assert.False(t, skip.Allowed)
	assert.Equal(t, 4, skip.Countdown)

	// a sample past the resolved duration ends the break
	require.NoError(t, conn.WriteJSON(presentation.WSMessage{
		Event: "player.time",
		Data:  json.RawMessage(`{"t":16}`),
	}))

	msg = readUntil(t, conn, presentation.EventBreakEnd)
	var end presentation.BreakEvent
	require.NoError(t, json.Unmarshal(msg.Data, &end))
	assert.Equal(t, "pre", end.BreakID)
}

func TestEventStream_RejectsMalformedSessionID(t *testing.T) {
	stack := setupStack(t)
	server := httptest.NewServer(stack.Router)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/nope/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, 400, resp.StatusCode)
	}
}
