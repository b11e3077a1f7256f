// Package stats computes the profile statistics aggregate: study set and card
// counts, lifetime answer accuracy, the current daily study streak, and the
// most recent sessions. Everything is derived fresh from the session history
// on each call; nothing is cached or written back.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"linguadeck-backend/internal/models"
)

// RecentSessionLimit is how many sessions the aggregate carries for display.
const RecentSessionLimit = 3

// Store is the read-only persistence surface the aggregator consumes. The
// pgx-backed implementation scans the full session history; an incrementally
// maintained per-day bucket table could replace it behind the same interface.
type Store interface {
	SessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error)
	CountStudySets(ctx context.Context, userID uuid.UUID) (int, error)
	CountCards(ctx context.Context, userID uuid.UUID) (int, error)
	RecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]models.RecentSession, error)
}

type Aggregator struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

type Option func(*Aggregator)

// WithClock replaces the wall clock. Tests use this to pin "today".
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the calendar used for day bucketing. Defaults to UTC so
// streaks do not depend on where the server process happens to run.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		now:   time.Now,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate builds the full stats projection for one user. Any store failure
// surfaces as a single wrapped error; no partial aggregate is ever returned.
func (a *Aggregator) Aggregate(ctx context.Context, userID uuid.UUID) (*models.ProfileStats, error) {
	sessions, err := a.store.SessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	totalSets, err := a.store.CountStudySets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count study sets: %w", err)
	}

	totalCards, err := a.store.CountCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	recent, err := a.store.RecentSessions(ctx, userID, RecentSessionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent sessions: %w", err)
	}
	if recent == nil {
		recent = []models.RecentSession{}
	}

	return &models.ProfileStats{
		TotalStudySets:     totalSets,
		TotalCards:         totalCards,
		TotalStudySessions: len(sessions),
		Accuracy:           accuracyPercent(sessions),
		StudyStreak:        a.streak(sessions),
		RecentSessions:     recent,
	}, nil
}

// accuracyPercent is the rounded percentage of correct answers across every
// session. Sessions with total_count = 0 contribute nothing to either sum,
// and an all-zero history yields 0 rather than a division by zero.
func accuracyPercent(sessions []models.StudySession) int {
	var sumCorrect, sumTotal int
	for _, s := range sessions {
		sumCorrect += s.CorrectCount
		sumTotal += s.TotalCount
	}
	if sumTotal == 0 {
		return 0
	}
	// math.Round is round-half-away-from-zero, which for a non-negative
	// ratio matches the round-half-up the percentage needs (76.66 -> 77).
	return int(math.Round(100 * float64(sumCorrect) / float64(sumTotal)))
}

// streak counts consecutive calendar days with at least one session, walking
// backward from the most recent study day. The streak is alive only while the
// most recent study day is today or yesterday; multiple sessions on one day
// count once.
func (a *Aggregator) streak(sessions []models.StudySession) int {
	if len(sessions) == 0 {
		return 0
	}

	seen := make(map[time.Time]struct{}, len(sessions))
	for _, s := range sessions {
		seen[dateOf(s.StartTime, a.loc)] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := dateOf(a.now(), a.loc)
	yesterday := today.AddDate(0, 0, -1)
	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return 0
	}

	streak := 0
	expected := days[0]
	for _, d := range days {
		if !d.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// dateOf truncates a timestamp to midnight of its calendar day in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
