package services

import (
	"strings"
	"testing"

	"linguadeck-backend/internal/models"
)

func TestBuildCardPrompt_TopicOnly(t *testing.T) {
	cfg := models.GenerateCardsRequest{
		Topic:    "Ordering food in a restaurant",
		NumCards: 12,
		Language: "Spanish",
		Level:    "A2",
	}

	prompt := buildCardPrompt(cfg, "")

	if !strings.Contains(prompt, "Generate exactly 12 flashcards") {
		t.Error("prompt missing card count")
	}
	if !strings.Contains(prompt, "Target language: Spanish") {
		t.Error("prompt missing target language")
	}
	if !strings.Contains(prompt, "CEFR A2") {
		t.Error("prompt missing level")
	}
	if !strings.Contains(prompt, "Topic: Ordering food in a restaurant") {
		t.Error("prompt missing topic")
	}
	if !strings.Contains(prompt, "return an empty array") {
		t.Error("prompt missing non-educational escape hatch")
	}
	if strings.Contains(prompt, "SOURCE START") {
		t.Error("topic-only prompt must not carry a source block")
	}
}

func TestBuildCardPrompt_WithSource(t *testing.T) {
	cfg := models.GenerateCardsRequest{NumCards: 5, Language: "French"}
	source := "Le chat dort sur le canapé."

	prompt := buildCardPrompt(cfg, source)

	if !strings.Contains(prompt, "---SOURCE START---") {
		t.Error("prompt missing source delimiter")
	}
	if !strings.Contains(prompt, source) {
		t.Error("prompt missing source text")
	}
	if strings.Contains(prompt, "Topic:") {
		t.Error("source prompt must not carry a topic line")
	}
}

func TestBuildGradePrompt(t *testing.T) {
	req := models.GradeAnswerRequest{
		Question:        "What is 'dog' in German?",
		UserAnswer:      "der Hund",
		ReferenceAnswer: "Hund",
	}

	prompt := buildGradePrompt(req)

	for _, want := range []string{"What is 'dog' in German?", "der Hund", "Reference answer: Hund", "is_correct"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"json fence", "```json\n[{\"question\":\"q\"}]\n```", `[{"question":"q"}]`},
		{"bare fence", "```\n[]\n```", "[]"},
		{"no fence", `{"is_correct": true}`, `{"is_correct": true}`},
		{"surrounding whitespace", "  \n[]\n  ", "[]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFence(tc.input); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
