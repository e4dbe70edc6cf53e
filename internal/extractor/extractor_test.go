package extractor

import (
	"reflect"
	"testing"
)

const conversationPath = "/backend-api/conversation"

func TestExtractGuardsURLAndStatus(t *testing.T) {
	e := New(conversationPath)
	body := []byte(`data: {"message":{"metadata":{"search_result":{"query":"guarded"}}}}`)

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{name: "wrong endpoint", url: "https://chatgpt.com/backend-api/me", status: 200},
		{name: "non-200", url: "https://chatgpt.com/backend-api/conversation", status: 403},
		{name: "server error", url: "https://chatgpt.com/backend-api/conversation", status: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Extract(tt.url, tt.status, body); got != nil {
				t.Fatalf("expected nil, got %v", got)
			}
		})
	}

	if got := e.Extract("https://chatgpt.com/backend-api/conversation", 200, body); len(got) != 1 {
		t.Fatalf("expected matching response to yield the query, got %v", got)
	}
}

func TestExtractToolCallStrategy(t *testing.T) {
	e := New(conversationPath)
	body := []byte(`data: {"message":{"content":{"parts":[{"content_type":"tool_use","name":"browser","args":"{\"query\":\"best running shoes 2024\"}"}]}}}` + "\n" +
		`data: [DONE]`)

	got := e.Extract("https://chatgpt.com/backend-api/conversation", 200, body)
	want := []string{"best running shoes 2024"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

func TestExtractMetadataStrategy(t *testing.T) {
	e := New(conversationPath)
	body := []byte(`data: {"message":{"metadata":{"search_result":{"query":"running shoe reviews"}}}}`)

	got := e.Extract("https://chatgpt.com/backend-api/conversation", 200, body)
	want := []string{"running shoe reviews"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

// Both strategies apply to the same message; neither suppresses the other.
func TestExtractStrategiesAreAdditive(t *testing.T) {
	e := New(conversationPath)
	body := []byte(`data: {"message":{"content":{"parts":[{"content_type":"tool_use","name":"browser","args":"{\"query\":\"tool query\"}"}]},"metadata":{"search_result":{"query":"meta query"}}}}`)

	got := e.Extract("https://chatgpt.com/backend-api/conversation", 200, body)
	want := []string{"tool query", "meta query"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

func TestExtractSkipsMalformedLines(t *testing.T) {
	e := New(conversationPath)
	body := []byte("data: {not json\n" +
		`data: {"message":{"metadata":{"search_result":{"query":"first"}}}}` + "\n" +
		"event: ping\n" +
		`data: {"message":{"content":{"parts":["plain text part",{"content_type":"tool_use","name":"browser","args":"not json"}]}}}` + "\n" +
		`data: {"message":{"content":{"parts":[{"content_type":"tool_use","name":"python","args":"{\"query\":\"wrong tool\"}"}]}}}` + "\n" +
		`data: {"message":{"metadata":{"search_result":{"query":"second"}}}}` + "\n" +
		"data: [DONE]\n")

	got := e.Extract("https://chatgpt.com/backend-api/conversation", 200, body)
	want := []string{"first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

func TestExtractIsPureAndIdempotent(t *testing.T) {
	e := New(conversationPath)
	body := []byte(`data: {"message":{"metadata":{"search_result":{"query":"repeatable"}}}}`)
	url := "https://chatgpt.com/backend-api/conversation"

	first := e.Extract(url, 200, body)
	second := e.Extract(url, 200, body)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated extraction diverged: %v vs %v", first, second)
	}
}

func TestExtractEmptyAndDoneOnlyBodies(t *testing.T) {
	e := New(conversationPath)
	url := "https://chatgpt.com/backend-api/conversation"

	if got := e.Extract(url, 200, nil); got != nil {
		t.Fatalf("expected nil for empty body, got %v", got)
	}
	if got := e.Extract(url, 200, []byte("data: [DONE]\n")); got != nil {
		t.Fatalf("expected nil for sentinel-only body, got %v", got)
	}
}

// Duplicates within one body are preserved; deduplication is the
// orchestrator's job.
func TestExtractDoesNotDeduplicate(t *testing.T) {
	e := New(conversationPath)
	body := []byte(`data: {"message":{"metadata":{"search_result":{"query":"same"}}}}` + "\n" +
		`data: {"message":{"metadata":{"search_result":{"query":"same"}}}}`)

	got := e.Extract("https://chatgpt.com/backend-api/conversation", 200, body)
	want := []string{"same", "same"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}
