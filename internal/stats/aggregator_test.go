package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"linguadeck-backend/internal/models"
)

// fakeStore returns canned data so the aggregator can be exercised with a
// pinned clock and no database.
type fakeStore struct {
	sessions []models.StudySession
	setCount int
	cards    int
	recent   []models.RecentSession
	err      error
}

func (f *fakeStore) SessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	return f.sessions, f.err
}

func (f *fakeStore) CountStudySets(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.setCount, f.err
}

func (f *fakeStore) CountCards(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.cards, f.err
}

func (f *fakeStore) RecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]models.RecentSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

var testNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func sessionOn(t time.Time, correct, total int) models.StudySession {
	return models.StudySession{
		ID:           uuid.New(),
		StartTime:    t,
		EndTime:      t.Add(10 * time.Minute),
		CorrectCount: correct,
		TotalCount:   total,
	}
}

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func TestAggregate_NoSessions(t *testing.T) {
	agg := NewAggregator(&fakeStore{}, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}

	if got.TotalStudySets != 0 || got.TotalCards != 0 || got.TotalStudySessions != 0 {
		t.Errorf("expected zero counts, got %+v", got)
	}
	if got.Accuracy != 0 {
		t.Errorf("expected accuracy 0, got %d", got.Accuracy)
	}
	if got.StudyStreak != 0 {
		t.Errorf("expected streak 0, got %d", got.StudyStreak)
	}
	if got.RecentSessions == nil || len(got.RecentSessions) != 0 {
		t.Errorf("expected empty (non-nil) recent sessions, got %v", got.RecentSessions)
	}
}

func TestAggregate_AccuracyRoundsHalfUp(t *testing.T) {
	// 8/10 + 15/20 = 23/30 = 76.666...% -> 77
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(daysAgo(0), 8, 10),
			sessionOn(daysAgo(0), 15, 20),
		},
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if got.Accuracy != 77 {
		t.Errorf("expected accuracy 77, got %d", got.Accuracy)
	}
}

func TestAggregate_AccuracyRounding(t *testing.T) {
	tests := []struct {
		name     string
		correct  []int
		total    []int
		expected int
	}{
		{"two thirds rounds up", []int{2}, []int{3}, 67},
		{"exact half rounds up", []int{1}, []int{200}, 1}, // 0.5% -> 1
		{"perfect score", []int{10}, []int{10}, 100},
		{"zero correct", []int{0}, []int{10}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var sessions []models.StudySession
			for i := range tc.correct {
				sessions = append(sessions, sessionOn(daysAgo(0), tc.correct[i], tc.total[i]))
			}
			agg := NewAggregator(&fakeStore{sessions: sessions}, WithClock(fixedClock))

			got, err := agg.Aggregate(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("Aggregate returned error: %v", err)
			}
			if got.Accuracy != tc.expected {
				t.Errorf("expected accuracy %d, got %d", tc.expected, got.Accuracy)
			}
		})
	}
}

func TestAggregate_StreakConsecutiveDays(t *testing.T) {
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(daysAgo(0), 5, 5),
			sessionOn(daysAgo(1), 5, 5),
			sessionOn(daysAgo(2), 5, 5),
		},
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if got.StudyStreak != 3 {
		t.Errorf("expected streak 3, got %d", got.StudyStreak)
	}
}

func TestAggregate_StreakBrokenByGap(t *testing.T) {
	// today, yesterday, then a gap, then two older days: only the
	// contiguous today/yesterday pair counts.
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(daysAgo(0), 5, 5),
			sessionOn(daysAgo(1), 5, 5),
			sessionOn(daysAgo(5), 5, 5),
			sessionOn(daysAgo(6), 5, 5),
		},
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if got.StudyStreak != 2 {
		t.Errorf("expected streak 2, got %d", got.StudyStreak)
	}
}

func TestAggregate_StreakStaleLastSession(t *testing.T) {
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(daysAgo(3), 5, 5),
		},
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if got.StudyStreak != 0 {
		t.Errorf("expected streak 0 for a 3-day-old last session, got %d", got.StudyStreak)
	}
}

func TestAggregate_StreakStartsYesterday(t *testing.T) {
	// A streak whose most recent day is yesterday is still alive.
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(daysAgo(1), 5, 5),
			sessionOn(daysAgo(2), 5, 5),
		},
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if got.StudyStreak != 2 {
		t.Errorf("expected streak 2, got %d", got.StudyStreak)
	}
}

func TestAggregate_StreakSameDayDedup(t *testing.T) {
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(testNow.Add(-1*time.Hour), 5, 5),
			sessionOn(testNow.Add(-4*time.Hour), 3, 5),
			sessionOn(testNow.Add(-8*time.Hour), 4, 5),
		},
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if got.StudyStreak != 1 {
		t.Errorf("expected streak 1 for three same-day sessions, got %d", got.StudyStreak)
	}
	if got.TotalStudySessions != 3 {
		t.Errorf("expected 3 total sessions, got %d", got.TotalStudySessions)
	}
}

func TestAggregate_ZeroTotalCountIsSafe(t *testing.T) {
	// An empty session must not poison the accuracy computation.
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(daysAgo(0), 0, 0),
			sessionOn(daysAgo(0), 9, 10),
		},
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if got.Accuracy != 90 {
		t.Errorf("expected accuracy 90, got %d", got.Accuracy)
	}
}

func TestAggregate_RecentSessionsLimit(t *testing.T) {
	var recent []models.RecentSession
	for i := 0; i < 5; i++ {
		recent = append(recent, models.RecentSession{
			ID:            uuid.New(),
			StudySetTitle: "Spanish Verbs",
			StartTime:     daysAgo(i),
		})
	}
	store := &fakeStore{recent: recent}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(got.RecentSessions) != 3 {
		t.Fatalf("expected 3 recent sessions, got %d", len(got.RecentSessions))
	}
	for i := 1; i < len(got.RecentSessions); i++ {
		if got.RecentSessions[i].StartTime.After(got.RecentSessions[i-1].StartTime) {
			t.Errorf("recent sessions not ordered most-recent-first")
		}
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	store := &fakeStore{
		sessions: []models.StudySession{
			sessionOn(daysAgo(0), 8, 10),
			sessionOn(daysAgo(1), 15, 20),
		},
		setCount: 2,
		cards:    14,
	}
	agg := NewAggregator(store, WithClock(fixedClock))

	first, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("first Aggregate returned error: %v", err)
	}
	second, err := agg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("second Aggregate returned error: %v", err)
	}

	if first.Accuracy != second.Accuracy ||
		first.StudyStreak != second.StudyStreak ||
		first.TotalStudySets != second.TotalStudySets ||
		first.TotalCards != second.TotalCards ||
		first.TotalStudySessions != second.TotalStudySessions {
		t.Errorf("repeated aggregation differs: %+v vs %+v", first, second)
	}
}

func TestAggregate_StoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	agg := NewAggregator(store, WithClock(fixedClock))

	got, err := agg.Aggregate(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error when the store fails")
	}
	if got != nil {
		t.Errorf("expected no partial aggregate on failure, got %+v", got)
	}
}

func TestAggregate_DayBucketingRespectsLocation(t *testing.T) {
	// 23:30 UTC on March 14 is already March 15 in UTC+2. Seen from March
	// 16, the session is two UTC days old (streak broken) but only one
	// local day old (streak alive).
	utcPlus2 := time.FixedZone("UTC+2", 2*3600)
	sessionAt := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	clock := func() time.Time { return time.Date(2026, 3, 16, 1, 0, 0, 0, time.UTC) }

	store := &fakeStore{sessions: []models.StudySession{sessionOn(sessionAt, 1, 1)}}

	utcAgg := NewAggregator(store, WithClock(clock))
	utcStats, err := utcAgg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if utcStats.StudyStreak != 0 {
		t.Errorf("UTC: two-day-old session should break the streak, got %d", utcStats.StudyStreak)
	}

	zonedAgg := NewAggregator(store, WithClock(clock), WithLocation(utcPlus2))
	zonedStats, err := zonedAgg.Aggregate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if zonedStats.StudyStreak != 1 {
		t.Errorf("UTC+2: session on local yesterday should count, got %d", zonedStats.StudyStreak)
	}
}
