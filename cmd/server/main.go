package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linguadeck-backend/internal/config"
	"linguadeck-backend/internal/database"
	"linguadeck-backend/internal/handlers"
	"linguadeck-backend/internal/middleware"
	"linguadeck-backend/internal/repository"
	"linguadeck-backend/internal/router"
	"linguadeck-backend/internal/services"
	"linguadeck-backend/internal/stats"
	"linguadeck-backend/internal/websocket"
	"linguadeck-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting LinguaDeck Backend...")

	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	setRepo := repository.NewStudySetRepo(pool)
	sessionRepo := repository.NewStudySessionRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)

	// Gemini client
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiConcurrentReqs,
		setRepo,
		redisClients.Queue,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// Services
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	fileExtractService := services.NewFileExtractService()
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService)
	aggregator := stats.NewAggregator(statsRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	setHandler := handlers.NewStudySetHandler(setRepo, jobRepo, redisClients.Queue, cfg.StoragePath)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, setRepo)
	gradeHandler := handlers.NewGradeHandler(geminiService)
	profileHandler := handlers.NewProfileHandler(aggregator)
	userHandler := handlers.NewUserHandler(userRepo)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// Job worker pool
	workerPool := worker.NewPool(
		redisClients.Queue,
		geminiService,
		fileExtractService,
		jobRepo,
		setRepo,
		cfg.StoragePath,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	reminderScheduler := services.NewReminderScheduler(userRepo, sessionRepo, aggregator, emailService, redisClients.Queue)
	reminderScheduler.Start()
	log.Println("✓ Reminder scheduler started")

	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	r := router.New(
		jwtAuth,
		authHandler,
		setHandler,
		sessionHandler,
		gradeHandler,
		profileHandler,
		userHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		reminderScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ LinguaDeck Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
