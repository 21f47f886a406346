package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/incomedesk/IncomeDesk/api/internal/config"
	"github.com/incomedesk/IncomeDesk/api/internal/logging"
	"github.com/incomedesk/IncomeDesk/api/internal/ratelimit"
	"github.com/incomedesk/IncomeDesk/api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; a misconfigured process must not start serving.
		log.Fatalf("configuration error: %v", err)
	}

	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	logger.Info("Starting IncomeDesk API server", nil)

	if cfg.Analyzer.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; analyze requests will fail", nil)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize server", err, nil)
		os.Exit(1)
	}

	// Sweepers run for the life of the process and stop on shutdown.
	sweepCtx, stopSweepers := context.WithCancel(context.Background())
	defer stopSweepers()
	go ratelimit.StartSweeping(sweepCtx, cfg.RateLimit.SweepInterval,
		srv.AuthAttempts, srv.AnalyzeAttempts, srv.GlobalAttempts)
	go srv.Sessions.StartSweeping(sweepCtx, cfg.Session.SweepInterval)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server starting", map[string]interface{}{
			"address": addr,
		})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", err, nil)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server", nil)
	stopSweepers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err, nil)
	}

	logger.Info("Server stopped", nil)
}
