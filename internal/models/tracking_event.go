package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackingEvent is one journaled tracking beacon.
// Rows are written best-effort after the pixel is dispatched; a journal write
// failure never surfaces to playback.
type TrackingEvent struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	SessionID uuid.UUID `json:"session_id" gorm:"type:text;not null;index;column:session_id"`
	BreakID   string    `json:"break_id" gorm:"type:text;not null;column:break_id"`
	Ordinal   int       `json:"ordinal" gorm:"type:integer;not null;column:ordinal"`
	EventType string    `json:"event_type" gorm:"type:text;not null;column:event_type"`
	Elapsed   float64   `json:"elapsed" gorm:"type:real;not null;default:0;column:elapsed"`
	FiredAt   time.Time `json:"fired_at" gorm:"type:datetime;not null;column:fired_at"`
}

// NewTrackingEvent creates a journal row stamped with the current time.
func NewTrackingEvent(sessionID uuid.UUID, breakID string, ordinal int, eventType string, elapsed float64) *TrackingEvent {
	return &TrackingEvent{
		ID:        uuid.New(),
		SessionID: sessionID,
		BreakID:   breakID,
		Ordinal:   ordinal,
		EventType: eventType,
		Elapsed:   elapsed,
		FiredAt:   time.Now().UTC(),
	}
}
