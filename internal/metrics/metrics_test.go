package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorRecordsHTTPMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}

	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrapeMetrics(t, collector)
	if !strings.Contains(body, `searchintel_http_requests_total{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}

	if !strings.Contains(body, `searchintel_http_request_duration_seconds_count{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("request_duration_seconds_count metric not recorded, body=%q", body)
	}
}

func TestCollectorRecordsScrapeOutcomes(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.ObserveScrape("completed", 12*time.Second, 3)
	collector.ObserveScrape("failed", 2*time.Second, 0)

	body := scrapeMetrics(t, collector)
	if !strings.Contains(body, `searchintel_scrape_total{outcome="completed"} 1`) {
		t.Fatalf("completed outcome not recorded, body=%q", body)
	}
	if !strings.Contains(body, `searchintel_scrape_total{outcome="failed"} 1`) {
		t.Fatalf("failed outcome not recorded, body=%q", body)
	}
	if !strings.Contains(body, `searchintel_scrape_queries_extracted_total 3`) {
		t.Fatalf("queries counter not recorded, body=%q", body)
	}
}

// The scrape stream is chunked; instrumentation must not swallow Flush.
func TestInstrumentedWriterRemainsFlushable(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	flushed := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("instrumented writer does not implement http.Flusher")
		}
		f.Flush()
		flushed = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	rr := httptest.NewRecorder()
	collector.InstrumentHandler(handler).ServeHTTP(rr, req)

	if !flushed {
		t.Fatal("expected Flush to pass through")
	}
	if !rr.Flushed {
		t.Fatal("expected underlying recorder to observe flush")
	}
}

func scrapeMetrics(t *testing.T, c *Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}
