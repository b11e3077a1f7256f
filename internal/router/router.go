package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"linguadeck-backend/internal/handlers"
	"linguadeck-backend/internal/middleware"
	"linguadeck-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	setHandler *handlers.StudySetHandler,
	sessionHandler *handlers.SessionHandler,
	gradeHandler *handlers.GradeHandler,
	profileHandler *handlers.ProfileHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Study set routes
		r.Route("/study-sets", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", setHandler.Create)
			r.Get("/", setHandler.List)
			r.Get("/{id}", setHandler.Get)
			r.Put("/{id}", setHandler.Update)
			r.Delete("/{id}", setHandler.Delete)

			r.Get("/{id}/cards", setHandler.ListCards)
			r.Post("/{id}/cards", setHandler.AddCard)
			r.Delete("/{id}/cards/{cardID}", setHandler.RemoveCard)

			r.Post("/{id}/generate", setHandler.Generate)
			r.Post("/{id}/import", setHandler.Import)
		})

		// Practice session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", sessionHandler.Record)
			r.Get("/", sessionHandler.List)
			r.Get("/{id}/results", sessionHandler.GetResults)
		})

		// Answer grading
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/grade", gradeHandler.Grade)
		})

		// User & profile routes
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Put("/me", userHandler.UpdateMe)
			r.Put("/password", userHandler.ChangePassword)
			r.Delete("/me", userHandler.DeleteMe)
			r.Get("/profile/stats", profileHandler.Stats)
		})

		// Job routes
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", jobHandler.GetJob)
			r.Delete("/{id}", jobHandler.CancelJob)
		})

		// WebSocket
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
