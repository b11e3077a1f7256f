package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"linguadeck-backend/internal/models"
)

type StudySetRepo struct {
	pool *pgxpool.Pool
}

func NewStudySetRepo(pool *pgxpool.Pool) *StudySetRepo {
	return &StudySetRepo{pool: pool}
}

func (r *StudySetRepo) Create(ctx context.Context, s *models.StudySet) error {
	s.ID = uuid.New()

	query := `INSERT INTO study_sets (id, user_id, title, description, language, level, card_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.Title, s.Description, s.Language, s.Level, s.CardCount,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *StudySetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySet, error) {
	s := &models.StudySet{}
	query := `SELECT id, user_id, title, description, language, level, card_count, created_at, updated_at
		FROM study_sets WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.Title, &s.Description, &s.Language, &s.Level, &s.CardCount, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *StudySetRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudySet, error) {
	query := `SELECT id, user_id, title, description, language, level, card_count, created_at, updated_at
		FROM study_sets WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*models.StudySet
	for rows.Next() {
		s := &models.StudySet{}
		err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Language, &s.Level, &s.CardCount, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

func (r *StudySetRepo) Update(ctx context.Context, s *models.StudySet) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE study_sets SET title = $1, description = $2, language = $3, level = $4, updated_at = NOW()
		 WHERE id = $5`,
		s.Title, s.Description, s.Language, s.Level, s.ID,
	)
	return err
}

func (r *StudySetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM study_sets WHERE id = $1", id)
	return err
}

// Card operations. Cards belong to the user; set membership goes through the
// set_cards link table so a card can appear in more than one set.

func (r *StudySetRepo) AddCard(ctx context.Context, setID uuid.UUID, c *models.Flashcard) error {
	c.ID = uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO flashcards (id, user_id, question, answer) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		c.ID, c.UserID, c.Question, c.Answer,
	).Scan(&c.CreatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO set_cards (study_set_id, card_id) VALUES ($1, $2)", setID, c.ID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE study_sets SET card_count = card_count + 1, updated_at = NOW() WHERE id = $1", setID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreateCards inserts a batch of generated cards into a set in one transaction.
func (r *StudySetRepo) CreateCards(ctx context.Context, setID, userID uuid.UUID, cards []models.Flashcard) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range cards {
		cards[i].ID = uuid.New()
		cards[i].UserID = userID

		if _, err := tx.Exec(ctx,
			"INSERT INTO flashcards (id, user_id, question, answer) VALUES ($1, $2, $3, $4)",
			cards[i].ID, userID, cards[i].Question, cards[i].Answer,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO set_cards (study_set_id, card_id) VALUES ($1, $2)", setID, cards[i].ID,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE study_sets SET card_count = card_count + $1, updated_at = NOW() WHERE id = $2",
		len(cards), setID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *StudySetRepo) RemoveCard(ctx context.Context, setID, cardID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM set_cards WHERE study_set_id = $1 AND card_id = $2", setID, cardID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE study_sets SET card_count = GREATEST(0, card_count - 1), updated_at = NOW() WHERE id = $1", setID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *StudySetRepo) GetCardsBySet(ctx context.Context, setID uuid.UUID) ([]models.Flashcard, error) {
	query := `SELECT f.id, f.user_id, f.question, f.answer, f.created_at
		FROM flashcards f
		JOIN set_cards sc ON sc.card_id = f.id
		WHERE sc.study_set_id = $1
		ORDER BY f.created_at ASC`

	rows, err := r.pool.Query(ctx, query, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Flashcard
	for rows.Next() {
		c := models.Flashcard{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Question, &c.Answer, &c.CreatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
