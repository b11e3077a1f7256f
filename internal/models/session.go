package models

import (
	"time"

	"github.com/google/uuid"
)

type StudySession struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	StudySetID   uuid.UUID `json:"study_set_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionResult is a per-card outcome inside a session. Persisted verbatim
// for review screens; the stats aggregator never reads these.
type SessionResult struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	CardID     uuid.UUID `json:"card_id"`
	UserAnswer string    `json:"user_answer"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

type RecordSessionRequest struct {
	StudySetID   uuid.UUID             `json:"study_set_id"`
	StartTime    time.Time             `json:"start_time"`
	EndTime      time.Time             `json:"end_time"`
	CorrectCount int                   `json:"correct_count"`
	TotalCount   int                   `json:"total_count"`
	Results      []RecordResultRequest `json:"results"`
}

type RecordResultRequest struct {
	CardID     uuid.UUID `json:"card_id"`
	UserAnswer string    `json:"user_answer"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// RecentSession is a session annotated with its study set's title for display.
type RecentSession struct {
	ID            uuid.UUID `json:"id"`
	StudySetID    uuid.UUID `json:"study_set_id"`
	StudySetTitle string    `json:"study_set_title"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CorrectCount  int       `json:"correct_count"`
	TotalCount    int       `json:"total_count"`
}

// ProfileStats is the derived aggregate returned by the profile stats
// endpoint. Computed fresh on every request, never persisted.
type ProfileStats struct {
	TotalStudySets     int             `json:"total_study_sets"`
	TotalCards         int             `json:"total_cards"`
	TotalStudySessions int             `json:"total_study_sessions"`
	Accuracy           int             `json:"accuracy"`
	StudyStreak        int             `json:"study_streak"`
	RecentSessions     []RecentSession `json:"recent_sessions"`
}
