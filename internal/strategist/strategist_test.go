package strategist

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/searchintel/searchintel/internal/config"
)

func TestBuildPromptIncludesKeywordAndQueries(t *testing.T) {
	prompt := buildPrompt("best running shoes", []string{"best running shoes 2024", "running shoe reviews"})

	if !strings.Contains(prompt, `"best running shoes"`) {
		t.Fatalf("prompt missing keyword: %q", prompt)
	}
	for _, q := range []string{"best running shoes 2024", "running shoe reviews"} {
		if !strings.Contains(prompt, q) {
			t.Fatalf("prompt missing query %q", q)
		}
	}
	if !strings.Contains(prompt, "Markdown format") {
		t.Fatalf("prompt missing output format rule: %q", prompt)
	}
}

func TestBuildPromptWithNoQueries(t *testing.T) {
	prompt := buildPrompt("obscure topic", nil)
	if !strings.Contains(prompt, "null") && !strings.Contains(prompt, "[]") {
		t.Fatalf("expected encoded empty query list, got %q", prompt)
	}
}

func TestGenerateOutlineRequiresAPIKey(t *testing.T) {
	s := New(config.StrategyConfig{Provider: "openai"}, slog.New(slog.DiscardHandler))

	_, err := s.GenerateOutline(context.Background(), "kw", []string{"q"})
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateOutlineRejectsUnknownProvider(t *testing.T) {
	s := New(config.StrategyConfig{Provider: "gemini", APIKey: "k"}, slog.New(slog.DiscardHandler))

	_, err := s.GenerateOutline(context.Background(), "kw", []string{"q"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "unsupported provider") {
		t.Fatalf("unexpected error: %v", err)
	}
}
