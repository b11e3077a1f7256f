package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeExtractedText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims lines", "  hello  \n  world  ", "hello\nworld"},
		{"collapses blank runs", "a\n\n\n\nb", "a\n\nb"},
		{"windows newlines", "a\r\nb\rc", "a\nb\nc"},
		{"empty", "   \n  \n ", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeExtractedText(tc.input); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractTXT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	if err := os.WriteFile(path, []byte("  la manzana - apple  \n\n\nel perro - dog\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewFileExtractService()
	text, err := svc.ExtractTextFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "la manzana - apple\n\nel perro - dog"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestExtractText_UnsupportedType(t *testing.T) {
	svc := NewFileExtractService()
	if _, err := svc.ExtractTextFromPath("notes.docx"); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestExtractTXT_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n  "), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewFileExtractService()
	if _, err := svc.ExtractTextFromPath(path); err == nil {
		t.Error("expected error for empty text file")
	}
}
