// Package interceptor wires the browser session, the query extractor and the
// event stream together for one scrape operation.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/searchintel/searchintel/internal/browser"
	"github.com/searchintel/searchintel/internal/config"
	"github.com/searchintel/searchintel/internal/extractor"
	"github.com/searchintel/searchintel/internal/metrics"
	"github.com/searchintel/searchintel/internal/models"
	"github.com/searchintel/searchintel/internal/stream"
)

// ErrInvalidSession reports that the page never reached an authenticated
// state. Its text goes to the caller verbatim.
var ErrInvalidSession = errors.New("Could not find text input. Session token might be invalid.")

// Session is the slice of browser.Session the orchestrator drives. Tests
// substitute a fake.
type Session interface {
	Start(ctx context.Context) error
	InjectSession(ctx context.Context, token string) error
	Navigate(ctx context.Context) error
	AwaitComposer(ctx context.Context, wait time.Duration) error
	SubmitPrompt(ctx context.Context, keyword string) error
	Responses() <-chan browser.Response
	Close()
}

// SessionFactory builds a fresh session per scrape.
type SessionFactory func() Session

// Orchestrator runs one scrape end to end: Starting, AwaitingAuth, Prompting,
// Collecting, then Completed or Failed. Exactly one terminal frame is emitted
// and the browser is released on every path.
type Orchestrator struct {
	cfg        config.ScrapeConfig
	newSession SessionFactory
	extractor  *extractor.Extractor
	collector  *metrics.Collector
	logger     *slog.Logger
}

// New constructs an Orchestrator. The metrics collector may be nil.
func New(cfg config.ScrapeConfig, newSession SessionFactory, ex *extractor.Extractor, collector *metrics.Collector, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		newSession: newSession,
		extractor:  ex,
		collector:  collector,
		logger:     logger,
	}
}

// Handle executes the request and emits progress onto em. It never returns an
// error: every failure becomes one error log plus the terminal error frame.
func (o *Orchestrator) Handle(ctx context.Context, req models.ScrapeRequest, em *stream.Emitter) {
	start := time.Now()
	sess := o.newSession()
	defer sess.Close()

	result, err := o.run(ctx, sess, req, em)
	if err != nil {
		o.logger.Error("scrape failed", "keyword", req.Keyword, "error", err)
		em.Log("Error: "+err.Error(), models.SeverityError)
		em.Finish(stream.NewError(err.Error()))
		if o.collector != nil {
			o.collector.ObserveScrape("failed", time.Since(start), 0)
		}
		return
	}

	o.logger.Info("scrape completed",
		"keyword", req.Keyword,
		"query_count", len(result.ExtractedQueries),
		"duration", time.Since(start))
	em.Finish(stream.NewResult(*result))
	if o.collector != nil {
		o.collector.ObserveScrape("completed", time.Since(start), len(result.ExtractedQueries))
	}
}

func (o *Orchestrator) run(ctx context.Context, sess Session, req models.ScrapeRequest, em *stream.Emitter) (*models.ScrapeResult, error) {
	em.Log("Initializing browser agent...", models.SeverityInfo)
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}

	em.Log("Injecting session cookie...", models.SeverityWarning)
	if err := sess.InjectSession(ctx, req.SessionToken); err != nil {
		return nil, err
	}

	em.Log("Navigating to ChatGPT...", models.SeverityInfo)
	if err := sess.Navigate(ctx); err != nil {
		return nil, err
	}

	if err := sess.AwaitComposer(ctx, o.cfg.ComposerWait); err != nil {
		o.logger.Warn("composer never appeared", "error", err)
		return nil, ErrInvalidSession
	}
	em.Log("Authenticated successfully.", models.SeveritySuccess)

	em.Log(fmt.Sprintf("Sending prompt: \"Search for %s...\"", req.Keyword), models.SeverityInfo)
	if err := sess.SubmitPrompt(ctx, req.Keyword); err != nil {
		return nil, err
	}

	em.Log(fmt.Sprintf("Waiting for response stream (max %ds)...", int(o.cfg.CollectWindow.Seconds())), models.SeverityWarning)
	queries := o.collect(ctx, sess, em)

	if len(queries) == 0 {
		em.Log("No specific search queries found. Model might have answered from training data.", models.SeverityWarning)
	} else {
		em.Log(fmt.Sprintf("Extraction complete. Found %d unique queries.", len(queries)), models.SeveritySuccess)
	}

	return &models.ScrapeResult{
		Keyword:          req.Keyword,
		ExtractedQueries: queries,
	}, nil
}

// collect drains sniffed responses into a deduplicating accumulator until
// either enough distinct queries arrived (checked on each poll tick) or the
// collection window elapses. All accumulator mutation happens here, on one
// goroutine.
func (o *Orchestrator) collect(ctx context.Context, sess Session, em *stream.Emitter) []string {
	seen := make(map[string]struct{})
	var ordered []string

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	window := time.NewTimer(o.cfg.CollectWindow)
	defer window.Stop()

	for {
		select {
		case resp := <-sess.Responses():
			for _, q := range o.extractor.Extract(resp.URL, resp.Status, resp.Body) {
				q = strings.TrimSpace(q)
				if q == "" {
					continue
				}
				if _, dup := seen[q]; dup {
					continue
				}
				seen[q] = struct{}{}
				ordered = append(ordered, q)
				em.Log(fmt.Sprintf("Intercepted query: \"%s\"", q), models.SeveritySuccess)
			}
		case <-ticker.C:
			if len(ordered) >= o.cfg.EarlyExitCount {
				return ordered
			}
		case <-window.C:
			return ordered
		case <-ctx.Done():
			// Caller went away; finish with whatever was collected so
			// teardown still runs through the normal path.
			return ordered
		}
	}
}
