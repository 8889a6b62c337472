package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cuepoint/internal/models"
)

// TrackingEventRepository journals fired tracking events per session
type TrackingEventRepository struct {
	db *DB
}

// NewTrackingEventRepository creates a new tracking event repository
func NewTrackingEventRepository(db *DB) *TrackingEventRepository {
	return &TrackingEventRepository{db: db}
}

// RecordEvent appends one fired event to the session journal
func (r *TrackingEventRepository) RecordEvent(ctx context.Context, event *models.TrackingEvent) error {
	result := r.db.WithContext(ctx).Create(event)
	if result.Error != nil {
		return fmt.Errorf("failed to record tracking event: %w", MapGormError(result.Error))
	}
	return nil
}

// ListBySession returns a session's journal in firing order
func (r *TrackingEventRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.TrackingEvent, error) {
	var events []*models.TrackingEvent
	result := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Order("fired_at ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list tracking events: %w", MapGormError(result.Error))
	}
	return events, nil
}

// PurgeBefore deletes journal entries fired before the cutoff, returning
// the number removed
func (r *TrackingEventRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("fired_at < ?", cutoff.UTC()).
		Delete(&models.TrackingEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge tracking events: %w", MapGormError(result.Error))
	}
	return result.RowsAffected, nil
}
