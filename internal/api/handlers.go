package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"log/slog"

	"github.com/searchintel/searchintel/internal/config"
	"github.com/searchintel/searchintel/internal/models"
	"github.com/searchintel/searchintel/internal/script"
	"github.com/searchintel/searchintel/internal/stream"
)

// Orchestrator runs one scrape and streams its events onto the emitter.
type Orchestrator interface {
	Handle(ctx context.Context, req models.ScrapeRequest, em *stream.Emitter)
}

// OutlineGenerator turns a keyword plus intercepted queries into a content
// outline.
type OutlineGenerator interface {
	GenerateOutline(ctx context.Context, keyword string, queries []string) (string, error)
}

type Handler struct {
	orchestrator Orchestrator
	strategist   OutlineGenerator
	browserCfg   config.BrowserConfig
	scrapeCfg    config.ScrapeConfig
	logger       *slog.Logger
}

func NewHandler(orchestrator Orchestrator, strategist OutlineGenerator, browserCfg config.BrowserConfig, scrapeCfg config.ScrapeConfig, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		strategist:   strategist,
		browserCfg:   browserCfg,
		scrapeCfg:    scrapeCfg,
		logger:       logger,
	}
}

// ScrapeHandler handles POST /api/scrape. The response is a chunked stream of
// newline-delimited JSON frames ending with exactly one result or error.
func (h *Handler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateScrapeRequest(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	scrapeID := uuid.NewString()
	logger := h.logger.With("scrape_id", scrapeID, "keyword", req.Keyword)
	logger.Info("scrape accepted")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS for dev
	w.Header().Set("X-Scrape-ID", scrapeID)
	w.WriteHeader(http.StatusOK)

	em := stream.NewEmitter(w)
	h.orchestrator.Handle(r.Context(), req, em)

	// The terminal frame is the orchestrator's responsibility; a sealed
	// emitter here is an invariant, not a hope.
	if !em.Sealed() {
		logger.Error("stream ended without terminal frame")
		em.Finish(stream.NewError("internal error: stream ended unexpectedly"))
	}
}

// StrategyHandler handles POST /api/strategy.
func (h *Handler) StrategyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.StrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateStrategyRequest(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	outline, err := h.strategist.GenerateOutline(r.Context(), req.Keyword, req.Queries)
	if err != nil {
		h.logger.Error("outline generation failed", "keyword", req.Keyword, "error", err)
		writeJSONError(w, http.StatusBadGateway, "Failed to generate content strategy")
		return
	}

	writeJSON(w, http.StatusOK, models.StrategyResponse{Keyword: req.Keyword, Outline: outline})
}

// ScriptHandler handles POST /api/script, returning a standalone agent
// program with the caller's credentials baked in.
func (h *Handler) ScriptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateScrapeRequest(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	src, err := script.Render(h.browserCfg, h.scrapeCfg, req.SessionToken, req.Keyword)
	if err != nil {
		h.logger.Error("script rendering failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to render agent script")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agent.go"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(src))
}

// HealthHandler reports liveness; callers gate scrape attempts on it.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// InfoHandler reports service identity.
func InfoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"service":"searchintel","status":"ready","version":"0.1.0"}`))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
