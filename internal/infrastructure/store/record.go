package store

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Record appends an event describing a document write that has already committed.
// Append and publish failures are logged, not returned.
func Record(ctx context.Context, es EventStoreInterface, aggregateID, aggregateType, eventType string, data any) {
	event, err := es.Append(ctx, aggregateID, aggregateType, eventType, data)
	if err == nil {
		return
	}
	logger := log.With().
		Str("component", "event_store").
		Str("aggregate_id", aggregateID).
		Str("event_type", eventType).
		Logger()
	if event != nil {
		logger.Warn().Err(err).Msg("event stored but not published")
		return
	}
	logger.Error().Err(err).Msg("failed to append event")
}
