package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/bookstore/internal/bootstrap"
	"github.com/example/bookstore/internal/config"
	"github.com/example/bookstore/internal/projection"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	logger := log.With().Str("component", "projector").Logger()
	if err := cfg.ValidateBackends(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().
		Str("store", cfg.StoreBackend).
		Str("bus", cfg.EventBus).
		Msg("starting dashboard projector")

	bus, err := bootstrap.OpenBus(cfg, "projector")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open event bus")
	}
	defer bus.Close()

	stores, err := bootstrap.OpenStores(ctx, cfg, bus)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close()

	projector := projection.NewProjector(stores.Docs)
	replayed, err := projector.Replay(ctx, stores.Events)
	if err != nil {
		logger.Error().Err(err).Msg("event replay failed")
	}
	logger.Info().Int("events", replayed).Msg("event replay completed")

	go func() {
		logger.Info().Msg("consuming events")
		if err := bus.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
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
