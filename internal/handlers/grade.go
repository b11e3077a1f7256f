package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"linguadeck-backend/internal/models"
	"linguadeck-backend/internal/services"
)

type GradeHandler struct {
	gemini *services.GeminiService
}

func NewGradeHandler(gemini *services.GeminiService) *GradeHandler {
	return &GradeHandler{gemini: gemini}
}

// Grade judges a free-text answer against the card's reference answer. This
// is synchronous; the client waits on the model call.
func (h *GradeHandler) Grade(w http.ResponseWriter, r *http.Request) {
	var req models.GradeAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Question) == "" {
		fieldErrors["question"] = "Question is required"
	}
	if strings.TrimSpace(req.ReferenceAnswer) == "" {
		fieldErrors["reference_answer"] = "Reference answer is required"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	// An empty answer is always wrong; skip the model call.
	if strings.TrimSpace(req.UserAnswer) == "" {
		writeJSON(w, http.StatusOK, models.GradeResult{
			IsCorrect: false,
			Reasoning: "No answer was given.",
		})
		return
	}

	result, err := h.gemini.GradeAnswer(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("GRADING_FAILED", "Failed to grade answer", r))
		return
	}

	writeJSON(w, http.StatusOK, result)
}
