package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/bookstore/internal/bootstrap"
	"github.com/example/bookstore/internal/config"
	"github.com/example/bookstore/internal/infrastructure/kinesis"
	"github.com/example/bookstore/internal/projection"
	"github.com/rs/zerolog/log"
)

const component = "lambda_projector"

var projector *projection.Projector

func init() {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, "json")
	if err := cfg.ValidateBackends(); err != nil {
		log.Fatal().Err(err).Str("component", component).Msg("invalid configuration")
	}

	// Events arrive from the table stream, so nothing is published from here
	stores, err := bootstrap.OpenStores(context.Background(), cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Str("component", component).Msg("failed to open store")
	}
	projector = projection.NewProjector(stores.Docs)

	log.Info().Str("component", component).Str("store", cfg.StoreBackend).Msg("initialized")
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	return kinesis.Process(ctx, component, batch, projector.Apply), nil
}

func main() {
	lambda.Start(handler)
}
