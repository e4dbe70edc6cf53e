// Package stream frames scrape progress events onto a chunked HTTP response
// as newline-delimited JSON, one self-contained object per line.
package stream

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/searchintel/searchintel/internal/models"
)

type frame struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type resultData struct {
	Keyword          string   `json:"keyword"`
	ExtractedQueries []string `json:"extracted_queries"`
}

// Terminal is the final frame of a stream. It can only be built through
// NewResult or NewError, so a stream cannot end on a log frame.
type Terminal struct {
	frame frame
}

// NewResult builds the terminal frame for a completed scrape. An empty query
// list is a valid result, distinct from an error.
func NewResult(res models.ScrapeResult) Terminal {
	queries := res.ExtractedQueries
	if queries == nil {
		queries = []string{}
	}
	return Terminal{frame: frame{
		Type: "result",
		Data: resultData{Keyword: res.Keyword, ExtractedQueries: queries},
	}}
}

// NewError builds the terminal frame for a failed scrape.
func NewError(message string) Terminal {
	return Terminal{frame: frame{Type: "error", Message: message}}
}

// Emitter writes frames to an open response channel. It is not safe for
// concurrent use; all emission happens on the orchestrator's goroutine.
type Emitter struct {
	enc     *json.Encoder
	flusher http.Flusher
	sealed  bool
}

// NewEmitter wraps a response writer. If w implements http.Flusher each frame
// is flushed immediately so the caller sees events as they occur.
func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Log appends one log frame. Emission after the terminal frame is a no-op.
func (e *Emitter) Log(message string, severity models.Severity) {
	if e.sealed {
		return
	}
	e.write(frame{Type: "log", Data: models.NewLogEvent(message, severity)})
}

// Finish appends the terminal frame and seals the emitter.
func (e *Emitter) Finish(t Terminal) {
	if e.sealed {
		return
	}
	e.write(t.frame)
	e.sealed = true
}

// Sealed reports whether the terminal frame has been written.
func (e *Emitter) Sealed() bool {
	return e.sealed
}

func (e *Emitter) write(f frame) {
	// json.Encoder terminates each value with a newline and never emits raw
	// newlines inside a value, which is exactly the framing contract.
	if err := e.enc.Encode(f); err != nil {
		// The caller disconnected; the orchestrator keeps going and cleanup
		// still runs on its normal path.
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
