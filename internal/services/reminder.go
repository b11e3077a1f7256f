package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"linguadeck-backend/internal/repository"
	"linguadeck-backend/internal/stats"
)

const (
	reminderIdleThreshold = 24 * time.Hour
	reminderPollInterval  = 1 * time.Hour
	reminderSentTTL       = 48 * time.Hour
)

// ReminderScheduler emails users whose daily streak is about to lapse: they
// studied yesterday but not yet today. A Redis marker with a TTL keeps each
// user to one reminder per 48 hours even across restarts.
type ReminderScheduler struct {
	userRepo    *repository.UserRepo
	sessionRepo *repository.StudySessionRepo
	aggregator  *stats.Aggregator
	email       *EmailService
	redis       *redis.Client
	stopChan    chan struct{}
}

func NewReminderScheduler(
	userRepo *repository.UserRepo,
	sessionRepo *repository.StudySessionRepo,
	aggregator *stats.Aggregator,
	email *EmailService,
	redisClient *redis.Client,
) *ReminderScheduler {
	return &ReminderScheduler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		aggregator:  aggregator,
		email:       email,
		redis:       redisClient,
		stopChan:    make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.userRepo == nil || s.email == nil {
		return
	}

	go s.loop()

	log.Printf("Reminder scheduler started")
}

func (s *ReminderScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReminderScheduler) loop() {
	// Run on startup as well as by interval.
	s.sendReminders(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(reminderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sendReminders(context.Background(), time.Now().UTC())
		}
	}
}

func (s *ReminderScheduler) sendReminders(ctx context.Context, now time.Time) {
	users, err := s.userRepo.ListVerifiedActive(ctx)
	if err != nil {
		log.Printf("study reminders: failed to list recipients: %v", err)
		return
	}

	for _, user := range users {
		sentKey := fmt.Sprintf("reminder_sent:%s", user.ID.String())
		exists, _ := s.redis.Exists(ctx, sentKey).Result()
		if exists > 0 {
			continue
		}

		lastStudied, err := s.sessionRepo.LatestSessionTime(ctx, user.ID)
		if err != nil {
			log.Printf("study reminders: failed to load last session for user %s: %v", user.ID, err)
			continue
		}
		if lastStudied == nil {
			// Never studied; nothing to keep alive.
			continue
		}

		idle := now.Sub(lastStudied.UTC())
		if idle < reminderIdleThreshold || idle >= 2*reminderIdleThreshold {
			continue
		}

		userStats, err := s.aggregator.Aggregate(ctx, user.ID)
		if err != nil {
			log.Printf("study reminders: failed to load stats for user %s: %v", user.ID, err)
			continue
		}

		if err := s.email.SendStudyReminderEmail(user.Email, user.FullName, userStats.StudyStreak); err != nil {
			log.Printf("study reminders: failed to send to %s: %v", user.Email, err)
			continue
		}

		s.redis.Set(ctx, sentKey, now.Format(time.RFC3339), reminderSentTTL)
	}
}
