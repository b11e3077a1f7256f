package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"linguadeck-backend/internal/middleware"
	"linguadeck-backend/internal/models"
	"linguadeck-backend/internal/repository"
)

type SessionHandler struct {
	sessionRepo *repository.StudySessionRepo
	setRepo     *repository.StudySetRepo
}

func NewSessionHandler(sessionRepo *repository.StudySessionRepo, setRepo *repository.StudySetRepo) *SessionHandler {
	return &SessionHandler{sessionRepo: sessionRepo, setRepo: setRepo}
}

// Record persists a finished practice session with its per-card results.
// Sessions are immutable once recorded.
func (h *SessionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req models.RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if req.StudySetID == uuid.Nil {
		fieldErrors["study_set_id"] = "Study set ID is required"
	}
	if req.StartTime.IsZero() {
		fieldErrors["start_time"] = "Start time is required"
	}
	if req.EndTime.Before(req.StartTime) {
		fieldErrors["end_time"] = "End time must not precede start time"
	}
	// correct_count > total_count is tolerated; the stats aggregator copes
	// with inconsistent counts, so only negatives are rejected.
	if req.TotalCount < 0 || req.CorrectCount < 0 {
		fieldErrors["correct_count"] = "Counts must not be negative"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	set, err := h.setRepo.GetByID(r.Context(), req.StudySetID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}
	if set.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	session := &models.StudySession{
		UserID:       userID,
		StudySetID:   req.StudySetID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		CorrectCount: req.CorrectCount,
		TotalCount:   req.TotalCount,
	}

	results := make([]models.SessionResult, 0, len(req.Results))
	for _, res := range req.Results {
		results = append(results, models.SessionResult{
			CardID:     res.CardID,
			UserAnswer: res.UserAnswer,
			IsCorrect:  res.IsCorrect,
			AnsweredAt: res.AnsweredAt,
		})
	}

	if err := h.sessionRepo.Create(r.Context(), session, results); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record session", r))
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessions, err := h.sessionRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list sessions", r))
		return
	}
	if sessions == nil {
		sessions = []models.StudySession{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *SessionHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	// Ownership check goes through the session list rather than a dedicated
	// query; per-user session counts stay small.
	sessions, err := h.sessionRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load session", r))
		return
	}

	owned := false
	for _, s := range sessions {
		if s.ID == sessionID {
			owned = true
			break
		}
	}
	if !owned {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	results, err := h.sessionRepo.GetResults(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load session results", r))
		return
	}
	if results == nil {
		results = []models.SessionResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
