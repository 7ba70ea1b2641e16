package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/bookstore/internal/api"
	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/bootstrap"
	"github.com/example/bookstore/internal/command"
	"github.com/example/bookstore/internal/config"
	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/domain/cart"
	"github.com/example/bookstore/internal/domain/inventory"
	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/domain/review"
	"github.com/example/bookstore/internal/domain/user"
	"github.com/example/bookstore/internal/projection"
	"github.com/example/bookstore/internal/query"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	logger := log.With().Str("component", "api").Logger()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info().
		Str("store", cfg.StoreBackend).
		Str("bus", cfg.EventBus).
		Str("addr", cfg.HTTPAddr).
		Msg("starting bookstore api")

	bus, err := bootstrap.OpenBus(cfg, "api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open event bus")
	}
	defer bus.Close()

	stores, err := bootstrap.OpenStores(ctx, cfg, bus)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close()

	// Domain services
	bookSvc := book.NewService(stores.Docs, stores.Events, book.CacheConfig{Size: cfg.CacheSize, TTL: cfg.CacheTTL})
	cartSvc := cart.NewService(stores.Docs, bookSvc, stores.Events)
	orderSvc := order.NewService(stores.Docs, stores.Events)
	inventorySvc := inventory.NewService(stores.Docs, stores.Events, bookSvc)
	userSvc := user.NewService(stores.Docs, stores.Events)
	reviewSvc := review.NewService(stores.Docs, bookSvc, orderSvc, stores.Events)

	if cfg.AdminEmail != "" {
		if _, err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed admin account")
		}
		logger.Info().Str("email", cfg.AdminEmail).Msg("admin account ready")
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Rebuild the dashboard read models before serving
	projector := projection.NewProjector(stores.Docs)
	replayed, err := projector.Replay(ctx, stores.Events)
	if err != nil {
		logger.Error().Err(err).Msg("event replay failed, dashboards may be stale")
	}
	logger.Info().Int("events", replayed).Msg("event replay completed")

	// Keep the read models and the order feed current from the bus
	feed := api.NewOrderFeed()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bus.Consume(ctx, bootstrap.Fanout(projector.HandleEvent, feed.HandleEvent)); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("event consumer stopped")
		}
	}()

	handlers := api.NewHandlers(api.Deps{
		Books:        bookSvc,
		Carts:        cartSvc,
		Orders:       orderSvc,
		Users:        userSvc,
		Reviews:      reviewSvc,
		Commands:     command.NewHandler(bookSvc, cartSvc, orderSvc, inventorySvc),
		Queries:      query.NewHandler(stores.Docs),
		JWT:          jwtService,
		Feed:         feed,
		SecureCookie: cfg.LogFormat == "json",
	})
	router := api.NewRouter(handlers, api.RouterConfig{AllowedOrigins: cfg.CORSOrigins})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	wg.Wait()
}
