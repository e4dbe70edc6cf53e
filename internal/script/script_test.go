package script

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/searchintel/searchintel/internal/browser"
	"github.com/searchintel/searchintel/internal/config"
	"github.com/searchintel/searchintel/internal/extractor"
)

func testScrapeConfig() config.ScrapeConfig {
	return config.ScrapeConfig{
		ComposerWait:   10 * time.Second,
		CollectWindow:  20 * time.Second,
		PollInterval:   time.Second,
		EarlyExitCount: 3,
	}
}

func testBrowserConfig() config.BrowserConfig {
	return config.BrowserConfig{
		TargetURL:        "https://chatgpt.com",
		ConversationPath: "/backend-api/conversation",
		CookieName:       "__Secure-next-auth.session-token",
		CookieDomain:     "chatgpt.com",
		ComposerSelector: "#prompt-textarea",
		UserAgent:        "test-agent",
	}
}

func TestRenderEmbedsCredentials(t *testing.T) {
	src, err := Render(testBrowserConfig(), testScrapeConfig(), "tok-123", "best running shoes")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !strings.Contains(src, `sessionToken = "tok-123"`) {
		t.Fatal("rendered script missing session token")
	}
	if !strings.Contains(src, `keyword      = "best running shoes"`) {
		t.Fatal("rendered script missing keyword")
	}
	if !strings.Contains(src, "package main") {
		t.Fatal("rendered script is not a main package")
	}
}

// The offline agent must parse exactly like the live extractor: same SSE
// framing constants, same cookie, same composer selector, same prompt.
func TestRenderSharesLivePipelineConstants(t *testing.T) {
	cfg := testBrowserConfig()
	src, err := Render(cfg, testScrapeConfig(), "tok", "kw")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	shared := []string{
		strconv.Quote(extractor.DataPrefix),
		strconv.Quote(extractor.DoneSentinel),
		strconv.Quote(browser.PromptTemplate),
		strconv.Quote(cfg.CookieName),
		strconv.Quote(cfg.ComposerSelector),
		strconv.Quote(cfg.ConversationPath),
		strconv.Quote(OutputFile),
		`"tool_use"`,
		`"browser"`,
		`"search_result"`,
	}
	for _, want := range shared {
		if !strings.Contains(src, want) {
			t.Errorf("rendered script missing %s", want)
		}
	}
}

func TestRenderEscapesAwkwardInput(t *testing.T) {
	src, err := Render(testBrowserConfig(), testScrapeConfig(), `to"k`+"\n", `key"word`)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !strings.Contains(src, `"to\"k\n"`) {
		t.Fatal("session token not escaped as a Go literal")
	}
	if !strings.Contains(src, `"key\"word"`) {
		t.Fatal("keyword not escaped as a Go literal")
	}
}

// The agent's timing policy follows the server configuration, so an operator
// who widens the collect window gets an agent that waits just as long.
func TestRenderDerivesTimingFromScrapeConfig(t *testing.T) {
	scrape := testScrapeConfig()
	scrape.CollectWindow = 45 * time.Second
	scrape.ComposerWait = 15 * time.Second

	src, err := Render(testBrowserConfig(), scrape, "tok", "kw")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !strings.Contains(src, "collectWindow = 45 * time.Second") {
		t.Fatal("rendered script does not carry the configured collect window")
	}
	if !strings.Contains(src, "composerWait  = 15 * time.Second") {
		t.Fatal("rendered script does not carry the configured composer wait")
	}
}
