package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackSession is the persisted record of one content load.
// Live reconciler state stays in memory with the coordinator; this row exists
// for auditing and for correlating journaled tracking events.
type PlaybackSession struct {
	ID              uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	UserID          string     `json:"user_id" gorm:"type:text;not null;default:'';column:user_id"`
	ContentURL      string     `json:"content_url" gorm:"type:text;not null;column:content_url"`
	ContentDuration float64    `json:"content_duration" gorm:"type:real;not null;column:content_duration"`
	Mode            string     `json:"mode" gorm:"type:text;not null;column:mode"`
	State           string     `json:"state" gorm:"type:text;not null;default:'active';column:state"`
	BreakCount      int        `json:"break_count" gorm:"type:integer;not null;default:0;column:break_count"`
	StartedAt       time.Time  `json:"started_at" gorm:"type:datetime;not null;column:started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" gorm:"type:datetime;column:ended_at"`
	CreatedAt       time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewPlaybackSession creates a session row for a fresh load.
func NewPlaybackSession(userID, contentURL string, contentDuration float64, mode string) *PlaybackSession {
	now := time.Now().UTC()
	return &PlaybackSession{
		ID:              uuid.New(),
		UserID:          userID,
		ContentURL:      contentURL,
		ContentDuration: contentDuration,
		Mode:            mode,
		State:           SessionStateActive,
		StartedAt:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
