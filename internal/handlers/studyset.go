package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"linguadeck-backend/internal/middleware"
	"linguadeck-backend/internal/models"
	"linguadeck-backend/internal/repository"
)

const maxImportFileSize = 20 * 1024 * 1024 // 20MB

type StudySetHandler struct {
	setRepo     *repository.StudySetRepo
	jobRepo     *repository.JobRepo
	redis       *redis.Client
	storagePath string
}

func NewStudySetHandler(setRepo *repository.StudySetRepo, jobRepo *repository.JobRepo, redisClient *redis.Client, storagePath string) *StudySetHandler {
	return &StudySetHandler{
		setRepo:     setRepo,
		jobRepo:     jobRepo,
		redis:       redisClient,
		storagePath: storagePath,
	}
}

func (h *StudySetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudySetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Title is required", r))
		return
	}

	set := &models.StudySet{
		UserID:      middleware.GetUserID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
		Level:       req.Level,
	}

	if err := h.setRepo.Create(r.Context(), set); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create study set", r))
		return
	}

	writeJSON(w, http.StatusCreated, set)
}

func (h *StudySetHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sets, err := h.setRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list study sets", r))
		return
	}
	if sets == nil {
		sets = []*models.StudySet{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"study_sets": sets})
}

func (h *StudySetHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, set)
}

func (h *StudySetHandler) Update(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	var req models.CreateStudySetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Title != "" {
		set.Title = req.Title
	}
	if req.Description != nil {
		set.Description = req.Description
	}
	if req.Language != "" {
		set.Language = req.Language
	}
	if req.Level != "" {
		set.Level = req.Level
	}

	if err := h.setRepo.Update(r.Context(), set); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update study set", r))
		return
	}

	writeJSON(w, http.StatusOK, set)
}

func (h *StudySetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	if err := h.setRepo.Delete(r.Context(), set.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete study set", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study set deleted"})
}

func (h *StudySetHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	cards, err := h.setRepo.GetCardsBySet(r.Context(), set.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list cards", r))
		return
	}
	if cards == nil {
		cards = []models.Flashcard{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (h *StudySetHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	var req models.CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Question and answer are required", r))
		return
	}

	card := &models.Flashcard{
		UserID:   middleware.GetUserID(r.Context()),
		Question: req.Question,
		Answer:   req.Answer,
	}

	if err := h.setRepo.AddCard(r.Context(), set.ID, card); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to add card", r))
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

func (h *StudySetHandler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	cardID, err := uuid.Parse(chi.URLParam(r, "cardID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	if err := h.setRepo.RemoveCard(r.Context(), set.ID, cardID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to remove card", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Card removed"})
}

// Generate enqueues an async card-generation job for the set. Cards arrive
// via the worker; progress streams over the user's WebSocket.
func (h *StudySetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	var req models.GenerateCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Topic is required", r))
		return
	}
	if req.NumCards < 1 || req.NumCards > 50 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Number of cards must be between 1 and 50", r))
		return
	}
	if req.Language == "" {
		req.Language = set.Language
	}
	if req.Level == "" {
		req.Level = set.Level
	}

	configBytes, _ := json.Marshal(req)
	job := &models.Job{
		UserID:      middleware.GetUserID(r.Context()),
		Type:        "card-generation",
		ReferenceID: set.ID,
		ConfigJSON:  configBytes,
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:card-generation", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":       job.ID,
		"study_set_id": set.ID,
		"status":       job.Status,
	})
}

// Import accepts a PDF or TXT upload, stores it, and enqueues a
// document-import job that turns the text into cards.
func (h *StudySetHandler) Import(w http.ResponseWriter, r *http.Request) {
	set, ok := h.ownedSet(w, r)
	if !ok {
		return
	}

	if r.ContentLength > maxImportFileSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 20MB limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".txt" {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Only PDF and TXT files are supported", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	relPath := filepath.Join("users", userID.String(), "uploads", uuid.New().String()+ext)
	fullPath := filepath.Join(h.storagePath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}
	dst.Close()

	numCards := 10
	if v := r.FormValue("num_cards"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 50 {
			numCards = n
		}
	}

	config := map[string]interface{}{
		"file_path": relPath,
		"num_cards": numCards,
		"language":  set.Language,
		"level":     set.Level,
	}
	configBytes, _ := json.Marshal(config)

	job := &models.Job{
		UserID:      userID,
		Type:        "document-import",
		ReferenceID: set.ID,
		ConfigJSON:  configBytes,
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:document-import", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":       job.ID,
		"study_set_id": set.ID,
		"filename":     header.Filename,
		"status":       job.Status,
	})
}

// ownedSet loads the set from the URL param and enforces ownership. Writes
// the error response itself when the set is missing or foreign.
func (h *StudySetHandler) ownedSet(w http.ResponseWriter, r *http.Request) (*models.StudySet, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study set ID", r))
		return nil, false
	}

	set, err := h.setRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return nil, false
	}

	if set.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return set, true
}
