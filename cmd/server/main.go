package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chemistryai/answermark/internal/api"
	"github.com/chemistryai/answermark/internal/classify"
	"github.com/chemistryai/answermark/internal/config"
	"github.com/chemistryai/answermark/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the classifier.
	stats := classify.NewStats(time.Hour)
	classifier, closeClassifier := buildClassifier(cfg, stats)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, classifier, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting requests before tearing down the pipeline, so no
		// submission can race orchestrator shutdown.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		closeClassifier()
	}()

	log.Info("starting answermark", "port", cfg.Port, "provider", cfg.Provider)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func buildClassifier(cfg config.Config, stats *classify.Stats) (classify.Classifier, func()) {
	switch cfg.Provider {
	case "openai":
		c := classify.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, stats)
		return c, c.Close
	default:
		c := classify.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, stats)
		return c, c.Close
	}
}
