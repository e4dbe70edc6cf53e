package browser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/searchintel/searchintel/internal/config"
)

func TestPromptTemplate(t *testing.T) {
	got := Prompt("best running shoes")
	want := `Search the web for "best running shoes" and list the top results.`
	if got != want {
		t.Fatalf("Prompt = %q, want %q", got, want)
	}
}

func TestPromptKeepsKeywordVerbatim(t *testing.T) {
	keyword := "café & wifi"
	got := Prompt(keyword)
	if !strings.Contains(got, `"`+keyword+`"`) {
		t.Fatalf("expected keyword quoted verbatim, got %q", got)
	}
}

func TestResponsesChannelIsBounded(t *testing.T) {
	s := NewSession(config.BrowserConfig{}, slog.Default())
	if cap(s.responses) != responseBuffer {
		t.Fatalf("expected buffered channel of %d, got %d", responseBuffer, cap(s.responses))
	}
}

func TestCloseBeforeStartIsSafe(t *testing.T) {
	s := NewSession(config.BrowserConfig{}, slog.Default())
	s.Close()
	s.Close() // idempotent
}

func TestAwaitDOMContentReturnsOnSignal(t *testing.T) {
	ready := make(chan struct{}, 1)
	ready <- struct{}{}

	if err := awaitDOMContent(context.Background(), ready); err != nil {
		t.Fatalf("expected nil once DOM content fired, got %v", err)
	}
}

// Navigation is bounded by its deadline even when the DOM-content event
// never arrives; it must not wait for the page's load event or hang.
func TestAwaitDOMContentHonorsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := awaitDOMContent(ctx, make(chan struct{}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
