// Package browser drives a single Chrome instance against the target chat
// site and exposes the network responses its page receives.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/searchintel/searchintel/internal/config"
)

// PromptTemplate is the fixed prompt submitted for a keyword. The offline
// agent embeds the same template; keep them identical.
const PromptTemplate = `Search the web for "%s" and list the top results.`

// Prompt renders the submitted prompt for a keyword.
func Prompt(keyword string) string {
	return fmt.Sprintf(PromptTemplate, keyword)
}

const (
	navigationTimeout = 30 * time.Second

	// Sniffed bodies queue here until the orchestrator drains them. The
	// channel must never block the CDP event loop; overflow is dropped.
	responseBuffer = 64
)

// Response is one sniffed network response from the driven page.
type Response struct {
	URL    string
	Status int
	Body   []byte
}

// Session owns one browser process and one page for the lifetime of a single
// scrape. Close releases the process on every exit path.
type Session struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	responses chan Response
	closeOnce sync.Once
}

// NewSession prepares a session; the browser launches on Start.
func NewSession(cfg config.BrowserConfig, logger *slog.Logger) *Session {
	return &Session{
		cfg:       cfg,
		logger:    logger,
		responses: make(chan Response, responseBuffer),
	}
}

// Start launches Chrome, enables network events and attaches the response
// sniffer. The instance is visibly rendered unless configured headless, with
// flags that blunt basic automation fingerprinting.
func (s *Session) Start(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.UserAgent(s.cfg.UserAgent),
		chromedp.WindowSize(1440, 900),
	)

	var allocCtx context.Context
	allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	s.tabCtx, s.tabCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			s.logger.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)

	s.attachSniffer()

	if err := chromedp.Run(s.tabCtx, network.Enable()); err != nil {
		s.Close()
		return fmt.Errorf("launch browser: %w", err)
	}
	return nil
}

// InjectSession installs the authentication cookie on the target domain. Must
// run before Navigate so the first authenticated request already carries it.
func (s *Session) InjectSession(ctx context.Context, token string) error {
	action := network.SetCookie(s.cfg.CookieName, token).
		WithDomain(s.cfg.CookieDomain).
		WithPath("/").
		WithSecure(true).
		WithHTTPOnly(true).
		WithSameSite(network.CookieSameSiteLax)

	if err := chromedp.Run(s.tabCtx, action); err != nil {
		return fmt.Errorf("inject session cookie: %w", err)
	}
	return nil
}

// Navigate opens the target site, bounded by navigationTimeout. It returns
// once the DOM is constructed rather than at the full load event: the
// composer renders long before heavy page assets finish, and waiting for
// load would turn a slow asset into a fatal timeout.
func (s *Session) Navigate(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(s.tabCtx, navigationTimeout)
	defer cancel()

	domReady := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(navCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			select {
			case domReady <- struct{}{}:
			default:
			}
		}
	})

	err := chromedp.Run(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, _, err := page.Navigate(s.cfg.TargetURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error %s", errorText)
		}
		return awaitDOMContent(ctx, domReady)
	}))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", s.cfg.TargetURL, err)
	}
	return nil
}

// awaitDOMContent blocks until the DOMContentLoaded signal arrives or the
// context expires.
func awaitDOMContent(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitComposer waits for the prompt input to become visible. Its absence
// within the bound means the page never reached an authenticated state.
func (s *Session) AwaitComposer(ctx context.Context, wait time.Duration) error {
	waitCtx, cancel := context.WithTimeout(s.tabCtx, wait)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(s.cfg.ComposerSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("composer %s not visible: %w", s.cfg.ComposerSelector, err)
	}
	return nil
}

// SubmitPrompt types the search prompt for the keyword into the composer and
// submits it with Enter.
func (s *Session) SubmitPrompt(ctx context.Context, keyword string) error {
	sel := s.cfg.ComposerSelector
	err := chromedp.Run(s.tabCtx,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, Prompt(keyword), chromedp.ByQuery),
		chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit prompt: %w", err)
	}
	return nil
}

// Responses returns the sniffed-response channel. It is never closed; the
// consumer stops reading when its collection window ends.
func (s *Session) Responses() <-chan Response {
	return s.responses
}

// Close tears down the page and the browser process. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.tabCancel != nil {
			s.tabCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
	})
}

// attachSniffer registers CDP listeners for the page. Response headers arrive
// on EventResponseReceived but the body is only complete at
// EventLoadingFinished, so candidates are held until then.
func (s *Session) attachSniffer() {
	type meta struct {
		url    string
		status int
	}
	pending := make(map[network.RequestID]meta)
	var mu sync.Mutex

	chromedp.ListenTarget(s.tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if !strings.Contains(e.Response.URL, s.cfg.ConversationPath) {
				return
			}
			mu.Lock()
			pending[e.RequestID] = meta{url: e.Response.URL, status: int(e.Response.Status)}
			mu.Unlock()
		case *network.EventLoadingFinished:
			mu.Lock()
			m, ok := pending[e.RequestID]
			if ok {
				delete(pending, e.RequestID)
			}
			mu.Unlock()
			if !ok {
				return
			}
			// Body fetch must not run inside the event handler.
			go s.deliverBody(e.RequestID, m.url, m.status)
		}
	})
}

func (s *Session) deliverBody(id network.RequestID, url string, status int) {
	c := chromedp.FromContext(s.tabCtx)
	if c == nil {
		return
	}
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(s.tabCtx, c.Target))
	if err != nil {
		// Body read errors on streamed responses are routine; skip silently.
		return
	}

	select {
	case s.responses <- Response{URL: url, Status: status, Body: body}:
	default:
		s.logger.Debug("response buffer full, dropping sniffed body", "url", url)
	}
}
