// Package script renders a self-contained Go program that performs the same
// cookie injection, response sniffing and query extraction as the live scrape
// path, for operators who want to run the agent outside the server process.
package script

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/searchintel/searchintel/internal/browser"
	"github.com/searchintel/searchintel/internal/config"
	"github.com/searchintel/searchintel/internal/extractor"
)

// OutputFile is where the generated agent writes its result.
const OutputFile = "chatgpt_results.json"

type templateData struct {
	SessionToken     string // quoted Go literal
	Keyword          string // quoted Go literal
	TargetURL        string
	ConversationPath string
	CookieName       string
	CookieDomain     string
	ComposerSelector string
	UserAgent        string
	PromptTemplate   string
	DataPrefix       string
	DoneSentinel     string
	OutputFile       string
	WindowSeconds    int
	ComposerSeconds  int
}

// Render produces the standalone agent source for the given credentials. The
// embedded constants mirror the live pipeline, scrape policy included, so
// both variants extract the same queries from the same traffic.
func Render(cfg config.BrowserConfig, scrape config.ScrapeConfig, sessionToken, keyword string) (string, error) {
	data := templateData{
		SessionToken:     strconv.Quote(sessionToken),
		Keyword:          strconv.Quote(keyword),
		TargetURL:        strconv.Quote(cfg.TargetURL),
		ConversationPath: strconv.Quote(cfg.ConversationPath),
		CookieName:       strconv.Quote(cfg.CookieName),
		CookieDomain:     strconv.Quote(cfg.CookieDomain),
		ComposerSelector: strconv.Quote(cfg.ComposerSelector),
		UserAgent:        strconv.Quote(cfg.UserAgent),
		PromptTemplate:   strconv.Quote(browser.PromptTemplate),
		DataPrefix:       strconv.Quote(extractor.DataPrefix),
		DoneSentinel:     strconv.Quote(extractor.DoneSentinel),
		OutputFile:       strconv.Quote(OutputFile),
		WindowSeconds:    int(scrape.CollectWindow.Seconds()),
		ComposerSeconds:  int(scrape.ComposerWait.Seconds()),
	}

	var b strings.Builder
	if err := agentTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render agent script: %w", err)
	}
	return b.String(), nil
}

var agentTemplate = template.Must(template.New("agent").Parse(`// Standalone search-intent interceptor agent.
//
// Usage:
//  1. go mod init agent && go get github.com/chromedp/chromedp github.com/chromedp/cdproto
//  2. go run .
//
// Writes {{.OutputFile}} when done. Upload that file to the dashboard to
// generate your strategy.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	sessionToken = {{.SessionToken}}
	keyword      = {{.Keyword}}

	targetURL        = {{.TargetURL}}
	conversationPath = {{.ConversationPath}}
	cookieName       = {{.CookieName}}
	cookieDomain     = {{.CookieDomain}}
	composerSelector = {{.ComposerSelector}}
	userAgent        = {{.UserAgent}}
	promptTemplate   = {{.PromptTemplate}}

	dataPrefix   = {{.DataPrefix}}
	doneSentinel = {{.DoneSentinel}}

	composerWait  = {{.ComposerSeconds}} * time.Second
	collectWindow = {{.WindowSeconds}} * time.Second
)

type result struct {
	Keyword          string   ` + "`json:\"keyword\"`" + `
	ExtractedQueries []string ` + "`json:\"extracted_queries\"`" + `
	Timestamp        string   ` + "`json:\"timestamp\"`" + `
}

func main() {
	log.Printf("Starting interceptor for keyword: %s", keyword)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1440, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var queries []string
	record := func(q string) {
		q = strings.TrimSpace(q)
		mu.Lock()
		defer mu.Unlock()
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		queries = append(queries, q)
		log.Printf("Intercepted query: %q", q)
	}

	type pendingMeta struct {
		url    string
		status int
	}
	pending := make(map[network.RequestID]pendingMeta)
	var pmu sync.Mutex

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if !strings.Contains(e.Response.URL, conversationPath) {
				return
			}
			pmu.Lock()
			pending[e.RequestID] = pendingMeta{url: e.Response.URL, status: int(e.Response.Status)}
			pmu.Unlock()
		case *network.EventLoadingFinished:
			pmu.Lock()
			m, ok := pending[e.RequestID]
			if ok {
				delete(pending, e.RequestID)
			}
			pmu.Unlock()
			if !ok || m.status != 200 {
				return
			}
			go func(id network.RequestID) {
				c := chromedp.FromContext(ctx)
				body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(ctx, c.Target))
				if err != nil {
					return
				}
				for _, q := range extract(body) {
					record(q)
				}
			}(e.RequestID)
		}
	})

	if err := chromedp.Run(ctx,
		network.Enable(),
		network.SetCookie(cookieName, sessionToken).
			WithDomain(cookieDomain).
			WithPath("/").
			WithSecure(true).
			WithHTTPOnly(true).
			WithSameSite(network.CookieSameSiteLax),
		chromedp.Navigate(targetURL),
	); err != nil {
		log.Fatalf("navigate: %v", err)
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, composerWait)
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(composerSelector, chromedp.ByQuery))
	cancelWait()
	if err != nil {
		log.Fatalf("could not find text input, session token might be invalid or expired: %v", err)
	}

	log.Println("Authenticated, sending prompt...")
	prompt := fmt.Sprintf(promptTemplate, keyword)
	if err := chromedp.Run(ctx,
		chromedp.Click(composerSelector, chromedp.ByQuery),
		chromedp.SendKeys(composerSelector, prompt, chromedp.ByQuery),
		chromedp.SendKeys(composerSelector, kb.Enter, chromedp.ByQuery),
	); err != nil {
		log.Fatalf("submit prompt: %v", err)
	}

	log.Printf("Waiting for response stream (%s)...", collectWindow)
	time.Sleep(collectWindow)

	mu.Lock()
	out := result{
		Keyword:          keyword,
		ExtractedQueries: queries,
		Timestamp:        time.Now().Format(time.RFC3339),
	}
	if out.ExtractedQueries == nil {
		out.ExtractedQueries = []string{}
	}
	mu.Unlock()

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	if err := os.WriteFile({{.OutputFile}}, encoded, 0o644); err != nil {
		log.Fatalf("write result: %v", err)
	}
	log.Printf("Extraction complete. Found %d unique queries, saved to %s", len(out.ExtractedQueries), {{.OutputFile}})
}

func extract(body []byte) []string {
	var found []string
	for _, line := range strings.Split(string(body), "\n") {
		if !strings.HasPrefix(line, dataPrefix) || line == doneSentinel {
			continue
		}
		var msg struct {
			Message *struct {
				Content *struct {
					Parts []json.RawMessage ` + "`json:\"parts\"`" + `
				} ` + "`json:\"content\"`" + `
				Metadata *struct {
					SearchResult *struct {
						Query string ` + "`json:\"query\"`" + `
					} ` + "`json:\"search_result\"`" + `
				} ` + "`json:\"metadata\"`" + `
			} ` + "`json:\"message\"`" + `
		}
		if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &msg); err != nil || msg.Message == nil {
			continue
		}
		if msg.Message.Content != nil {
			for _, raw := range msg.Message.Content.Parts {
				var part struct {
					ContentType string ` + "`json:\"content_type\"`" + `
					Name        string ` + "`json:\"name\"`" + `
					Args        string ` + "`json:\"args\"`" + `
				}
				if err := json.Unmarshal(raw, &part); err != nil {
					continue
				}
				if part.ContentType != "tool_use" || part.Name != "browser" {
					continue
				}
				var args struct {
					Query string ` + "`json:\"query\"`" + `
				}
				if err := json.Unmarshal([]byte(part.Args), &args); err != nil {
					continue
				}
				if args.Query != "" {
					found = append(found, args.Query)
				}
			}
		}
		if md := msg.Message.Metadata; md != nil && md.SearchResult != nil && md.SearchResult.Query != "" {
			found = append(found, md.SearchResult.Query)
		}
	}
	return found
}
`))
