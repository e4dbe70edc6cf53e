package api

import (
	"net/http"
)

// SetupRoutes configures all API routes.
func SetupRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("/api/scrape", handler.ScrapeHandler)
	mux.HandleFunc("/api/strategy", handler.StrategyHandler)
	mux.HandleFunc("/api/script", handler.ScriptHandler)
}
