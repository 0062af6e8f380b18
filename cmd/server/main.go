package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailtriage/internal/analytics"
	"mailtriage/internal/config"
	"mailtriage/internal/email"
	"mailtriage/internal/enrichment"
	"mailtriage/internal/extractor"
	"mailtriage/internal/inbox"
	"mailtriage/internal/intelligence"
	"mailtriage/internal/openai"
	"mailtriage/internal/poller"
	"mailtriage/internal/router"
	"mailtriage/internal/server"
	"mailtriage/internal/store"
	"mailtriage/internal/triage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize record store
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Record store unavailable")
	}
	defer st.Close()
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, records are kept in memory only")
	} else {
		logger.Info().Msg("Database connection established successfully")
	}

	// Language model adapters
	llm, err := openai.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize OpenAI client")
	}
	adapter := intelligence.NewAdapter(llm)
	enricher := enrichment.NewEnricher(adapter, extractor.New(adapter), logger)

	// Outbound mail and routing
	sender, err := email.NewSender(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize email sender")
	}
	rt := router.New(cfg, sender, adapter, st, logger)

	svc := triage.NewService(st, enricher, rt, adapter, analytics.NewService(st, logger), logger)

	// Background inbox poller
	p := poller.New(inbox.NewIMAPTransport(cfg, logger), svc, cfg, logger)
	go p.Run(ctx)

	// Create and initialize server
	srv := server.New(cfg, st, svc, p, logger)
	srv.Initialize()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}
