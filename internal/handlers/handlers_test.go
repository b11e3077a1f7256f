package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"linguadeck-backend/internal/middleware"
	"linguadeck-backend/internal/models"
	"linguadeck-backend/internal/stats"
)

func authedRequest(method, target string, body []byte, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

// ─── Profile Stats Tests ───

type stubStatsStore struct {
	sessions []models.StudySession
	sets     int
	cards    int
	recent   []models.RecentSession
}

func (s *stubStatsStore) SessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	return s.sessions, nil
}

func (s *stubStatsStore) CountStudySets(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.sets, nil
}

func (s *stubStatsStore) CountCards(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.cards, nil
}

func (s *stubStatsStore) RecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]models.RecentSession, error) {
	if len(s.recent) > limit {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func TestProfileStats(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	store := &stubStatsStore{
		sessions: []models.StudySession{
			{StartTime: now.Add(-2 * time.Hour), CorrectCount: 8, TotalCount: 10},
			{StartTime: now.AddDate(0, 0, -1), CorrectCount: 15, TotalCount: 20},
		},
		sets:  4,
		cards: 52,
		recent: []models.RecentSession{
			{StudySetTitle: "Spanish Verbs", CorrectCount: 8, TotalCount: 10},
		},
	}

	aggregator := stats.NewAggregator(store, stats.WithClock(func() time.Time { return now }))
	handler := NewProfileHandler(aggregator)

	req := authedRequest(http.MethodGet, "/api/v1/user/stats", nil, uuid.New())
	rr := httptest.NewRecorder()
	handler.Stats(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Data models.ProfileStats `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Data.TotalStudySets != 4 {
		t.Errorf("Expected 4 study sets, got %d", resp.Data.TotalStudySets)
	}
	if resp.Data.TotalCards != 52 {
		t.Errorf("Expected 52 cards, got %d", resp.Data.TotalCards)
	}
	if resp.Data.TotalStudySessions != 2 {
		t.Errorf("Expected 2 sessions, got %d", resp.Data.TotalStudySessions)
	}
	// 23/30 = 76.66 -> 77
	if resp.Data.Accuracy != 77 {
		t.Errorf("Expected accuracy 77, got %d", resp.Data.Accuracy)
	}
	if resp.Data.StudyStreak != 2 {
		t.Errorf("Expected streak 2, got %d", resp.Data.StudyStreak)
	}
	if len(resp.Data.RecentSessions) != 1 {
		t.Fatalf("Expected 1 recent session, got %d", len(resp.Data.RecentSessions))
	}
	if resp.Data.RecentSessions[0].StudySetTitle != "Spanish Verbs" {
		t.Errorf("Expected title 'Spanish Verbs', got %q", resp.Data.RecentSessions[0].StudySetTitle)
	}
}

// ─── Grade Handler Tests ───

func TestGrade_EmptyAnswerSkipsModel(t *testing.T) {
	// nil service is safe: the empty-answer path never reaches the model
	handler := NewGradeHandler(nil)

	body, _ := json.Marshal(models.GradeAnswerRequest{
		Question:        "What is 'apple' in Spanish?",
		UserAnswer:      "   ",
		ReferenceAnswer: "manzana",
	})

	req := authedRequest(http.MethodPost, "/api/v1/grade", body, uuid.New())
	rr := httptest.NewRecorder()
	handler.Grade(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var result models.GradeResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.IsCorrect {
		t.Error("Empty answer must never be correct")
	}
}

func TestGrade_MissingFields(t *testing.T) {
	handler := NewGradeHandler(nil)

	tests := []struct {
		name  string
		body  models.GradeAnswerRequest
		field string
	}{
		{"missing question", models.GradeAnswerRequest{UserAnswer: "a", ReferenceAnswer: "b"}, "question"},
		{"missing reference", models.GradeAnswerRequest{Question: "q", UserAnswer: "a"}, "reference_answer"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			req := authedRequest(http.MethodPost, "/api/v1/grade", body, uuid.New())
			rr := httptest.NewRecorder()
			handler.Grade(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rr.Code)
			}

			resp := decodeError(t, rr)
			if resp.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
			}
			if _, ok := resp.Error.Fields[tc.field]; !ok {
				t.Errorf("Expected field error for %q, got %v", tc.field, resp.Error.Fields)
			}
		})
	}
}

// ─── Session Handler Tests ───

func TestRecordSession_Validation(t *testing.T) {
	handler := NewSessionHandler(nil, nil)
	now := time.Now()

	tests := []struct {
		name  string
		req   models.RecordSessionRequest
		field string
	}{
		{
			"missing study set",
			models.RecordSessionRequest{StartTime: now, EndTime: now},
			"study_set_id",
		},
		{
			"end before start",
			models.RecordSessionRequest{StudySetID: uuid.New(), StartTime: now, EndTime: now.Add(-time.Minute)},
			"end_time",
		},
		{
			"negative counts",
			models.RecordSessionRequest{StudySetID: uuid.New(), StartTime: now, EndTime: now, CorrectCount: -1, TotalCount: 3},
			"correct_count",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.req)
			req := authedRequest(http.MethodPost, "/api/v1/sessions", body, uuid.New())
			rr := httptest.NewRecorder()
			handler.Record(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rr.Code)
			}

			resp := decodeError(t, rr)
			if _, ok := resp.Error.Fields[tc.field]; !ok {
				t.Errorf("Expected field error for %q, got %v", tc.field, resp.Error.Fields)
			}
		})
	}
}

func TestRecordSession_InvalidBody(t *testing.T) {
	handler := NewSessionHandler(nil, nil)

	req := authedRequest(http.MethodPost, "/api/v1/sessions", []byte("{not json"), uuid.New())
	rr := httptest.NewRecorder()
	handler.Record(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}

// ─── Study Set Handler Tests ───

func TestCreateStudySet_TitleRequired(t *testing.T) {
	handler := NewStudySetHandler(nil, nil, nil, "")

	body, _ := json.Marshal(models.CreateStudySetRequest{Title: "   ", Language: "es"})
	req := authedRequest(http.MethodPost, "/api/v1/study-sets", body, uuid.New())
	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}

	resp := decodeError(t, rr)
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
}

// ─── Error Envelope Tests ───

func TestErrorEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/stats", nil)
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", req))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %q", ct)
	}

	resp := decodeError(t, rr)
	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %q", resp.Error.Code)
	}
	if resp.Error.Message != "Study set not found" {
		t.Errorf("Unexpected message %q", resp.Error.Message)
	}
}
