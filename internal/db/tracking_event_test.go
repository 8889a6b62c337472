package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuepoint/internal/models"
)

func createTestSession(t *testing.T, database *DB) *models.PlaybackSession {
	t.Helper()

	session := newTestSession("user-1")
	require.NoError(t, NewSessionRepository(database).Create(context.Background(), session))
	return session
}

func TestTrackingEventRepository_RecordAndList(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTrackingEventRepository(database)
	ctx := context.Background()

	session := createTestSession(t, database)

	base := time.Now().UTC().Add(-time.Minute)
	for i, eventType := range []string{
		models.TrackingEventImpression,
		models.TrackingEventFirstQuartile,
		models.TrackingEventMidpoint,
	} {
		event := models.NewTrackingEvent(session.ID, "break_1", 0, eventType, float64(i)*7.5)
		event.FiredAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.RecordEvent(ctx, event))
	}

	events, err := repo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.TrackingEventImpression, events[0].EventType)
	assert.Equal(t, models.TrackingEventFirstQuartile, events[1].EventType)
	assert.Equal(t, models.TrackingEventMidpoint, events[2].EventType)
	assert.Equal(t, 7.5, events[1].Elapsed)
	assert.Equal(t, "break_1", events[1].BreakID)
}

func TestTrackingEventRepository_ListScopedToSession(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTrackingEventRepository(database)
	ctx := context.Background()

	first := createTestSession(t, database)
	second := createTestSession(t, database)

	require.NoError(t, repo.RecordEvent(ctx, models.NewTrackingEvent(first.ID, "break_1", 0, models.TrackingEventImpression, 0)))
	require.NoError(t, repo.RecordEvent(ctx, models.NewTrackingEvent(second.ID, "break_1", 0, models.TrackingEventImpression, 0)))

	events, err := repo.ListBySession(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, first.ID, events[0].SessionID)
}

func TestTrackingEventRepository_UnknownSessionRejected(t *testing.T) {
	repo := NewTrackingEventRepository(setupTestDB(t))

	event := models.NewTrackingEvent(uuid.New(), "break_1", 0, models.TrackingEventImpression, 0)
	err := repo.RecordEvent(context.Background(), event)
	require.Error(t, err)
	assert.True(t, IsForeignKey(err))
}

func TestTrackingEventRepository_PurgeBefore(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTrackingEventRepository(database)
	ctx := context.Background()

	session := createTestSession(t, database)

	old := models.NewTrackingEvent(session.ID, "break_1", 0, models.TrackingEventImpression, 0)
	old.FiredAt = time.Now().UTC().Add(-48 * time.Hour)
	recent := models.NewTrackingEvent(session.ID, "break_1", 0, models.TrackingEventComplete, 30)

	require.NoError(t, repo.RecordEvent(ctx, old))
	require.NoError(t, repo.RecordEvent(ctx, recent))

	purged, err := repo.PurgeBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	events, err := repo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.TrackingEventComplete, events[0].EventType)
}
