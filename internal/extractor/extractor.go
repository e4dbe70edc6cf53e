// Package extractor parses conversation-endpoint response bodies and pulls
// out the search queries the chat backend issued while answering a prompt.
package extractor

import (
	"encoding/json"
	"strings"
)

// SSE framing used inside conversation response bodies.
const (
	DataPrefix   = "data: "
	DoneSentinel = "data: [DONE]"
)

// Extractor is a pure parser: no state, safe for concurrent use.
type Extractor struct {
	conversationPath string
}

// New returns an Extractor that only considers responses whose URL contains
// the given conversation endpoint path.
func New(conversationPath string) *Extractor {
	return &Extractor{conversationPath: conversationPath}
}

// Extract returns the search queries found in one response body, in encounter
// order, without deduplication. Responses from other endpoints or with a
// non-200 status yield nil without the body being decoded. Malformed lines
// and messages are skipped; Extract never fails.
func (e *Extractor) Extract(url string, status int, body []byte) []string {
	if status != 200 || !strings.Contains(url, e.conversationPath) {
		return nil
	}

	var queries []string
	for _, line := range strings.Split(string(body), "\n") {
		if !strings.HasPrefix(line, DataPrefix) || line == DoneSentinel {
			continue
		}

		var msg conversationMessage
		if err := json.Unmarshal([]byte(line[len(DataPrefix):]), &msg); err != nil {
			continue
		}
		if msg.Message == nil {
			continue
		}

		// Tool-call strategy: the model invoking its "browser" tool carries
		// the query inside a JSON-encoded args string.
		if msg.Message.Content != nil {
			for _, raw := range msg.Message.Content.Parts {
				var p contentPart
				if err := json.Unmarshal(raw, &p); err != nil {
					// Parts are frequently plain strings; not our target.
					continue
				}
				if p.ContentType != "tool_use" || p.Name != "browser" {
					continue
				}
				var args toolArgs
				if err := json.Unmarshal([]byte(p.Args), &args); err != nil {
					continue
				}
				if args.Query != "" {
					queries = append(queries, args.Query)
				}
			}
		}

		// Metadata strategy: completed searches surface the query on the
		// message metadata. Additive with the tool-call strategy.
		if md := msg.Message.Metadata; md != nil && md.SearchResult != nil && md.SearchResult.Query != "" {
			queries = append(queries, md.SearchResult.Query)
		}
	}

	return queries
}

type conversationMessage struct {
	Message *struct {
		Content *struct {
			Parts []json.RawMessage `json:"parts"`
		} `json:"content"`
		Metadata *struct {
			SearchResult *struct {
				Query string `json:"query"`
			} `json:"search_result"`
		} `json:"metadata"`
	} `json:"message"`
}

type contentPart struct {
	ContentType string `json:"content_type"`
	Name        string `json:"name"`
	Args        string `json:"args"`
}

type toolArgs struct {
	Query string `json:"query"`
}
