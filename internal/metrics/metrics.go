package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and for the
// interception pipeline.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	scrapeTotal    *prometheus.CounterVec
	scrapeDuration prometheus.Histogram
	queriesTotal   prometheus.Counter
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "searchintel",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchintel",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	scrapeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchintel",
		Subsystem: "scrape",
		Name:      "total",
		Help:      "Scrape operations by terminal outcome.",
	}, []string{"outcome"})

	scrapeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "searchintel",
		Subsystem: "scrape",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of scrape operations.",
		Buckets:   []float64{1, 5, 10, 15, 20, 30, 45, 60},
	})

	queriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "searchintel",
		Subsystem: "scrape",
		Name:      "queries_extracted_total",
		Help:      "Distinct search queries intercepted across all scrapes.",
	})

	collectors := []prometheus.Collector{
		requestDuration, requestTotal, scrapeTotal, scrapeDuration, queriesTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		scrapeTotal:     scrapeTotal,
		scrapeDuration:  scrapeDuration,
		queriesTotal:    queriesTotal,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveScrape records the terminal outcome of one scrape operation.
func (c *Collector) ObserveScrape(outcome string, duration time.Duration, queries int) {
	c.scrapeTotal.WithLabelValues(outcome).Inc()
	c.scrapeDuration.Observe(duration.Seconds())
	c.queriesTotal.Add(float64(queries))
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps the chunked scrape stream flushable through the middleware.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
