package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
)

// insert is the only stream event name the events table produces for new events.
const insert = "INSERT"

// ConvertRecord turns a Kinesis record carrying a DynamoDB stream change of the
// events table into a store.Event. Records other than inserts yield nil.
func ConvertRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("unmarshal stream record: %w", err)
	}
	return ConvertStreamRecord(change)
}

// ConvertStreamRecord converts a DynamoDB stream record read directly from the table.
func ConvertStreamRecord(record events.DynamoDBEventRecord) (*store.Event, error) {
	if record.EventName != insert {
		return nil, nil
	}
	return convertImage(record.Change.NewImage)
}

// convertImage maps the attributes written by store.DynamoEventStore.
func convertImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, errors.New("stream record has no new image")
	}

	str := func(name string) string {
		if v, ok := image[name]; ok && v.DataType() == events.DataTypeString {
			return v.String()
		}
		return ""
	}

	event := &store.Event{
		ID:            str("id"),
		AggregateID:   str("aggregate_id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
		Data:          json.RawMessage(str("data")),
	}
	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("missing required fields: id=%q aggregate_id=%q event_type=%q",
			event.ID, event.AggregateID, event.EventType)
	}

	if ts := str("created_at"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		event.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("parse version: %w", err)
		}
		event.Version = int(version)
	}
	return event, nil
}

// Process hands every inserted event in the batch to apply and reports the
// records that failed, so Lambda retries only those.
func Process(ctx context.Context, component string, batch events.KinesisEvent, apply func(context.Context, store.Event) error) events.KinesisEventResponse {
	logger := log.With().Str("component", component).Logger()
	resp := events.KinesisEventResponse{BatchItemFailures: []events.KinesisBatchItemFailure{}}

	for _, record := range batch.Records {
		event, err := ConvertRecord(record)
		if err == nil && event != nil {
			err = apply(ctx, *event)
		}
		if err != nil {
			logger.Error().Err(err).Str("record", record.EventID).Msg("failed to process record")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
		}
	}

	logger.Info().
		Int("records", len(batch.Records)).
		Int("failed", len(resp.BatchItemFailures)).
		Msg("batch processed")
	return resp
}
