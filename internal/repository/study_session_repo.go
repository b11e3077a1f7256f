package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"linguadeck-backend/internal/models"
)

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

// Create persists a completed session together with its per-card results.
func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession, results []models.SessionResult) error {
	s.ID = uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO study_sessions (id, user_id, study_set_id, start_time, end_time, correct_count, total_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		s.ID, s.UserID, s.StudySetID, s.StartTime, s.EndTime, s.CorrectCount, s.TotalCount,
	).Scan(&s.CreatedAt)
	if err != nil {
		return err
	}

	for i := range results {
		results[i].ID = uuid.New()
		results[i].SessionID = s.ID

		if _, err := tx.Exec(ctx,
			`INSERT INTO session_results (id, session_id, card_id, user_answer, is_correct, answered_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			results[i].ID, s.ID, results[i].CardID, results[i].UserAnswer, results[i].IsCorrect, results[i].AnsweredAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *StudySessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	query := `SELECT id, user_id, study_set_id, start_time, end_time, correct_count, total_count, created_at
		FROM study_sessions WHERE user_id = $1 ORDER BY start_time DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.StudySession
	for rows.Next() {
		s := models.StudySession{}
		err := rows.Scan(&s.ID, &s.UserID, &s.StudySetID, &s.StartTime, &s.EndTime, &s.CorrectCount, &s.TotalCount, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// LatestSessionTime returns the start time of the user's most recent session,
// or nil when the user has never studied.
func (r *StudySessionRepo) LatestSessionTime(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var t *time.Time
	err := r.pool.QueryRow(ctx,
		"SELECT MAX(start_time) FROM study_sessions WHERE user_id = $1", userID,
	).Scan(&t)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *StudySessionRepo) GetResults(ctx context.Context, sessionID uuid.UUID) ([]models.SessionResult, error) {
	query := `SELECT id, session_id, card_id, user_answer, is_correct, answered_at
		FROM session_results WHERE session_id = $1 ORDER BY answered_at ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.SessionResult
	for rows.Next() {
		res := models.SessionResult{}
		if err := rows.Scan(&res.ID, &res.SessionID, &res.CardID, &res.UserAnswer, &res.IsCorrect, &res.AnsweredAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
