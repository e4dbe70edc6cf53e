package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchintel/searchintel/internal/api"
	"github.com/searchintel/searchintel/internal/browser"
	"github.com/searchintel/searchintel/internal/config"
	"github.com/searchintel/searchintel/internal/extractor"
	"github.com/searchintel/searchintel/internal/interceptor"
	"github.com/searchintel/searchintel/internal/logging"
	"github.com/searchintel/searchintel/internal/metrics"
	"github.com/searchintel/searchintel/internal/server"
	"github.com/searchintel/searchintel/internal/strategist"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting searchintel")

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	ex := extractor.New(cfg.Browser.ConversationPath)
	newSession := func() interceptor.Session {
		return browser.NewSession(cfg.Browser, logger)
	}
	orchestrator := interceptor.New(cfg.Scrape, newSession, ex, collector, logger)
	outliner := strategist.New(cfg.Strategy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", api.HealthHandler)
	mux.HandleFunc("/api/info", api.InfoHandler)
	mux.Handle("/metrics", collector.Handler())

	handler := api.NewHandler(orchestrator, outliner, cfg.Browser, cfg.Scrape, logger)
	api.SetupRoutes(mux, handler)

	// Serve the dashboard for everything the API does not claim.
	logger.Info("setting up static file server for web UI")
	root := server.SPAMiddleware(collector.InstrumentHandler(mux), "./web/dist", "./web/dist/index.html")

	srv := server.New(cfg.Server, logger, root)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("searchintel started successfully")
	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
