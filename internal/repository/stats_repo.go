package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"linguadeck-backend/internal/models"
)

// StatsRepo exposes the read-only projections the profile stats aggregator
// consumes. It implements stats.Store; swapping it for an incrementally
// maintained aggregate later only means providing another implementation.
type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// SessionsByUser loads the user's full session history. The streak and
// accuracy computations need every session, not a page of them.
func (r *StatsRepo) SessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	query := `SELECT id, user_id, study_set_id, start_time, end_time, correct_count, total_count, created_at
		FROM study_sessions WHERE user_id = $1`

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

func (r *StatsRepo) CountStudySets(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM study_sets WHERE user_id = $1", userID,
	).Scan(&count)
	return count, err
}

// CountCards counts flashcards reachable through set membership for sets the
// user owns. A card linked into two of the user's sets counts once.
func (r *StatsRepo) CountCards(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT sc.card_id)
		FROM set_cards sc
		JOIN study_sets ss ON ss.id = sc.study_set_id
		WHERE ss.user_id = $1
	`, userID).Scan(&count)
	return count, err
}

func (r *StatsRepo) RecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]models.RecentSession, error) {
	query := `
		SELECT s.id, s.study_set_id, ss.title, s.start_time, s.end_time, s.correct_count, s.total_count
		FROM study_sessions s
		JOIN study_sets ss ON ss.id = s.study_set_id
		WHERE s.user_id = $1
		ORDER BY s.start_time DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.RecentSession, 0, limit)
	for rows.Next() {
		s := models.RecentSession{}
		err := rows.Scan(&s.ID, &s.StudySetID, &s.StudySetTitle, &s.StartTime, &s.EndTime, &s.CorrectCount, &s.TotalCount)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
