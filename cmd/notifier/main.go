package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/bookstore/internal/bootstrap"
	"github.com/example/bookstore/internal/config"
	"github.com/example/bookstore/internal/email"
	"github.com/example/bookstore/internal/notification"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	logger := log.With().Str("component", "notifier").Logger()
	if err := cfg.ValidateBackends(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().
		Str("bus", cfg.EventBus).
		Str("smtp", cfg.SMTPHost+":"+cfg.SMTPPort).
		Str("from", cfg.SMTPFrom).
		Msg("starting email notifier")

	// Emails are built from event payloads alone, so the notifier needs no store
	bus, err := bootstrap.OpenBus(cfg, "notifier")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open event bus")
	}
	defer bus.Close()

	handler := notification.NewHandler(email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom))

	go func() {
		logger.Info().Msg("consuming events")
		if err := bus.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("consumer error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	cancel()
}
