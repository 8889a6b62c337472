// Package db provides database connection management and repository access.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cuepoint/internal/models"
)

// SessionRepository handles database operations for playback sessions
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new playback session
func (r *SessionRepository) Create(ctx context.Context, session *models.PlaybackSession) error {
	result := r.db.WithContext(ctx).Create(session)
	if result.Error != nil {
		return fmt.Errorf("failed to create playback session: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a playback session by its UUID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PlaybackSession, error) {
	var session models.PlaybackSession
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&session)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &session, nil
}

// List retrieves all playback sessions, newest first
func (r *SessionRepository) List(ctx context.Context) ([]*models.PlaybackSession, error) {
	var sessions []*models.PlaybackSession
	result := r.db.WithContext(ctx).Order("started_at DESC").Find(&sessions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list playback sessions: %w", MapGormError(result.Error))
	}
	return sessions, nil
}

// Touch bumps updated_at so the cleanup pass can spot abandoned sessions
func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.PlaybackSession{}).
		Where("id = ?", id.String()).
		Update("updated_at", time.Now().UTC())
	if result.Error != nil {
		return fmt.Errorf("failed to touch playback session: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkEnded closes an active session at the given time
func (r *SessionRepository) MarkEnded(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	endedAt = endedAt.UTC()
	result := r.db.WithContext(ctx).
		Model(&models.PlaybackSession{}).
		Where("id = ? AND state = ?", id.String(), models.SessionStateActive).
		Updates(map[string]interface{}{
			"state":      models.SessionStateEnded,
			"ended_at":   endedAt,
			"updated_at": endedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to end playback session: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EndStale marks active sessions as ended when they have not reported a
// clock sample since the cutoff. Returns the number of sessions closed.
func (r *SessionRepository) EndStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.PlaybackSession{}).
		Where("state = ? AND updated_at < ?", models.SessionStateActive, cutoff.UTC()).
		Updates(map[string]interface{}{
			"state":      models.SessionStateEnded,
			"ended_at":   now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to end stale sessions: %w", MapGormError(result.Error))
	}
	return result.RowsAffected, nil
}

// DeleteEndedBefore removes ended session rows and their journaled events
// once they age past the retention cutoff. Both deletes run in one
// transaction. Returns the number of sessions removed.
func (r *SessionRepository) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		expired := tx.Model(&models.PlaybackSession{}).
			Select("id").
			Where("state = ? AND ended_at < ?", models.SessionStateEnded, cutoff.UTC())

		if err := tx.Where("session_id IN (?)", expired).Delete(&models.TrackingEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete expired tracking events: %w", MapGormError(err))
		}

		result := tx.Where("state = ? AND ended_at < ?", models.SessionStateEnded, cutoff.UTC()).
			Delete(&models.PlaybackSession{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete expired sessions: %w", MapGormError(result.Error))
		}
		removed = result.RowsAffected
		return nil
	})
	return removed, err
}
