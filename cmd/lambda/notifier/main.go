package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/bookstore/internal/config"
	"github.com/example/bookstore/internal/email"
	"github.com/example/bookstore/internal/infrastructure/kinesis"
	"github.com/example/bookstore/internal/notification"
	"github.com/rs/zerolog/log"
)

const component = "lambda_notifier"

var notificationHandler *notification.Handler

func init() {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, "json")

	notificationHandler = notification.NewHandler(email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom))

	log.Info().
		Str("component", component).
		Str("smtp", cfg.SMTPHost+":"+cfg.SMTPPort).
		Msg("initialized")
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	return kinesis.Process(ctx, component, batch, notificationHandler.Apply), nil
}

func main() {
	lambda.Start(handler)
}
