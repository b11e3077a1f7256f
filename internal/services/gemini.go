package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"linguadeck-backend/internal/models"
	"linguadeck-backend/internal/repository"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	setRepo  *repository.StudySetRepo
	redis    *redis.Client
	rateChan chan struct{} // concurrency slots
}

func NewGeminiService(
	apiKey string,
	concurrentReqs int,
	setRepo *repository.StudySetRepo,
	redisClient *redis.Client,
) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		setRepo:  setRepo,
		redis:    redisClient,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireSlot blocks until a concurrency slot is available
func (s *GeminiService) acquireSlot(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini slot")
	}
}

func (s *GeminiService) releaseSlot() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeminiService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// GenerateCards produces flashcards for the job's study set. source is the
// extracted document text for import jobs and empty for topic-only jobs.
// Returns the number of cards inserted; zero is a valid outcome when the
// model judges the input non-educational.
func (s *GeminiService) GenerateCards(ctx context.Context, job *models.Job, source string) (int, error) {
	if err := s.acquireSlot(ctx); err != nil {
		return 0, err
	}
	defer s.releaseSlot()

	var config models.GenerateCardsRequest
	json.Unmarshal(job.ConfigJSON, &config)

	prompt := buildCardPrompt(config, source)

	s.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID: job.ID, Step: 2, StepName: "Creating Flashcards",
			EstimatedSecondsRemaining: 15,
		},
	})

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return 0, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := stripCodeFence(extractText(resp))

	type cardJSON struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}

	var cards []cardJSON
	if err := json.Unmarshal([]byte(rawText), &cards); err != nil {
		// Try to extract the JSON array from surrounding prose
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(rawText[start:end+1]), &cards)
		}
	}

	modelCards := make([]models.Flashcard, 0, len(cards))
	for _, c := range cards {
		question := strings.TrimSpace(c.Question)
		answer := strings.TrimSpace(c.Answer)
		if question == "" || answer == "" {
			continue
		}
		modelCards = append(modelCards, models.Flashcard{Question: question, Answer: answer})
	}
	if config.NumCards > 0 && len(modelCards) > config.NumCards {
		modelCards = modelCards[:config.NumCards]
	}

	if len(modelCards) == 0 {
		log.Printf("Gemini returned no usable cards for job %s (non-educational input?)", job.ID)
		return 0, nil
	}

	if err := s.setRepo.CreateCards(ctx, job.ReferenceID, job.UserID, modelCards); err != nil {
		return 0, err
	}

	return len(modelCards), nil
}

// GradeAnswer judges a free-text answer against the card's reference answer,
// tolerating spelling mistakes and synonyms. Single synchronous call, no
// retry.
func (s *GeminiService) GradeAnswer(ctx context.Context, req models.GradeAnswerRequest) (*models.GradeResult, error) {
	if err := s.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer s.releaseSlot()

	prompt := buildGradePrompt(req)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := stripCodeFence(extractText(resp))

	var result models.GradeResult
	if err := json.Unmarshal([]byte(rawText), &result); err != nil {
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start >= 0 && end > start {
			if err := json.Unmarshal([]byte(rawText[start:end+1]), &result); err != nil {
				return nil, fmt.Errorf("failed to parse grading response: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to parse grading response: %w", err)
		}
	}

	return &result, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func buildCardPrompt(config models.GenerateCardsRequest, source string) string {
	var b strings.Builder

	b.WriteString("You are an expert language teacher creating flashcards for a learner.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d flashcards.\n", config.NumCards))

	if config.Language != "" {
		b.WriteString(fmt.Sprintf("Target language: %s.\n", config.Language))
	}
	if config.Level != "" {
		b.WriteString(fmt.Sprintf("Learner level: CEFR %s. Match vocabulary and grammar to this level.\n", config.Level))
	}

	b.WriteString(`
Rules:
- question is the prompt side (a word, phrase, or short question)
- answer is the expected response, under 30 words and self-contained
- No two cards may test the same word or concept
- If the topic is not educational or not suitable for language learning, return an empty array: []

JSON schema per card:
{"question": "string", "answer": "string"}
`)

	if source != "" {
		b.WriteString("\nBase the cards on this source material:\n---SOURCE START---\n")
		b.WriteString(source)
		b.WriteString("\n---SOURCE END---\n")
	} else {
		b.WriteString(fmt.Sprintf("\nTopic: %s\n", config.Topic))
	}

	return b.String()
}

func buildGradePrompt(req models.GradeAnswerRequest) string {
	var b strings.Builder

	b.WriteString("You are grading a language learner's flashcard answer.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString("Mark the answer correct if it conveys the same meaning as the reference answer. ")
	b.WriteString("Accept minor spelling mistakes, missing accents, and reasonable synonyms. ")
	b.WriteString("Mark it incorrect if the meaning differs or the answer is empty.\n\n")
	b.WriteString(fmt.Sprintf("Question: %s\n", req.Question))
	b.WriteString(fmt.Sprintf("Reference answer: %s\n", req.ReferenceAnswer))
	b.WriteString(fmt.Sprintf("Learner's answer: %s\n", req.UserAnswer))
	b.WriteString(`
JSON schema:
{"is_correct": true|false, "reasoning": "one short sentence"}
`)

	return b.String()
}
