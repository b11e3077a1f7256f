package models

import (
	"time"

	"github.com/google/uuid"
)

type StudySet struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Language    string    `json:"language"`
	Level       string    `json:"level"` // CEFR: A1-C2, or "" when unknown
	CardCount   int       `json:"card_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Flashcard struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateStudySetRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Language    string  `json:"language"`
	Level       string  `json:"level"`
}

type CreateCardRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type GenerateCardsRequest struct {
	Title    string `json:"title"`
	Topic    string `json:"topic"`
	NumCards int    `json:"num_cards"`
	Language string `json:"language"`
	Level    string `json:"level"`
}

type GradeAnswerRequest struct {
	Question        string `json:"question"`
	UserAnswer      string `json:"user_answer"`
	ReferenceAnswer string `json:"reference_answer"`
}

type GradeResult struct {
	IsCorrect bool   `json:"is_correct"`
	Reasoning string `json:"reasoning"`
}
