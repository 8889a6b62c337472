package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuepoint/internal/models"
)

// setupTestDB creates a migrated temporary database
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := New(tmpFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, RunMigrations(sqlDB, "file://../../migrations"))

	return database
}

func newTestSession(userID string) *models.PlaybackSession {
	session := models.NewPlaybackSession(userID, "https://cdn.example.com/movie/master.m3u8", 600, models.TimelineModeContentRelative)
	session.BreakCount = 2
	return session
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	session := newTestSession("user-1")
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "https://cdn.example.com/movie/master.m3u8", got.ContentURL)
	assert.Equal(t, 600.0, got.ContentDuration)
	assert.Equal(t, models.TimelineModeContentRelative, got.Mode)
	assert.Equal(t, models.SessionStateActive, got.State)
	assert.Equal(t, 2, got.BreakCount)
	assert.Nil(t, got.EndedAt)
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSessionRepository_List_NewestFirst(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	older := newTestSession("user-1")
	older.StartedAt = time.Now().UTC().Add(-time.Hour)
	newer := newTestSession("user-2")

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
	assert.Equal(t, older.ID, sessions[1].ID)
}

func TestSessionRepository_MarkEnded(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	session := newTestSession("user-1")
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.MarkEnded(ctx, session.ID, time.Now().UTC()))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateEnded, got.State)
	require.NotNil(t, got.EndedAt)

	// already ended, nothing left to close
	err = repo.MarkEnded(ctx, session.ID, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSessionRepository_Touch(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	session := newTestSession("user-1")
	session.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.Touch(ctx, session.ID))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(time.Now().UTC().Add(-time.Minute)))

	err = repo.Touch(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSessionRepository_DeleteEndedBefore(t *testing.T) {
	database := setupTestDB(t)
	repo := NewSessionRepository(database)
	events := NewTrackingEventRepository(database)
	ctx := context.Background()

	expired := newTestSession("user-1")
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, events.RecordEvent(ctx, models.NewTrackingEvent(expired.ID, "break_0", 0, models.TrackingEventImpression, 0)))
	require.NoError(t, repo.MarkEnded(ctx, expired.ID, time.Now().UTC().Add(-48*time.Hour)))

	kept := newTestSession("user-2")
	require.NoError(t, repo.Create(ctx, kept))

	removed, err := repo.DeleteEndedBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.GetByID(ctx, expired.ID)
	assert.True(t, IsNotFound(err))

	rows, err := events.ListBySession(ctx, expired.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = repo.GetByID(ctx, kept.ID)
	require.NoError(t, err)
}

func TestSessionRepository_EndStale(t *testing.T) {
	repo := NewSessionRepository(setupTestDB(t))
	ctx := context.Background()

	stale := newTestSession("user-1")
	stale.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	fresh := newTestSession("user-2")

	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))

	closed, err := repo.EndStale(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	got, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateEnded, got.State)

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateActive, got.State)
}
