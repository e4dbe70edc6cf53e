package models

import (
	"time"
)

// Severity classifies a log event on the scrape stream.
type Severity string

const (
	SeverityInfo    Severity = "info"    // Progress milestone
	SeveritySuccess Severity = "success" // Milestone reached, query found
	SeverityWarning Severity = "warning" // Degraded but non-fatal outcome
	SeverityError   Severity = "error"   // Fatal for this scrape
)

// ScrapeRequest is the body of POST /api/scrape. Both fields are required;
// the request is rejected before any browser resource is acquired otherwise.
type ScrapeRequest struct {
	SessionToken string `json:"sessionToken"`
	Keyword      string `json:"keyword"`
}

// LogEvent is one progress line on the scrape stream. The timestamp is
// wall-clock time truncated to second-of-day (HH:MM:SS).
type LogEvent struct {
	Timestamp string   `json:"timestamp"`
	Message   string   `json:"message"`
	Severity  Severity `json:"type"`
}

// NewLogEvent stamps a log event with the current wall-clock time.
func NewLogEvent(message string, severity Severity) LogEvent {
	return LogEvent{
		Timestamp: time.Now().Format("15:04:05"),
		Message:   message,
		Severity:  severity,
	}
}

// ScrapeResult is the terminal payload of a successful scrape. Queries are in
// first-seen order and contain no duplicates.
type ScrapeResult struct {
	Keyword          string   `json:"keyword"`
	ExtractedQueries []string `json:"extracted_queries"`
}

// StrategyRequest is the body of POST /api/strategy.
type StrategyRequest struct {
	Keyword string   `json:"keyword"`
	Queries []string `json:"queries"`
}

// StrategyResponse carries the generated content outline.
type StrategyResponse struct {
	Keyword string `json:"keyword"`
	Outline string `json:"outline"`
}
