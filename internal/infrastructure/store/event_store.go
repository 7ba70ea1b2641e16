package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/example/bookstore/internal/infrastructure/messaging"
	"github.com/google/uuid"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// EventStore keeps the event log in memory and publishes each event to the bus
type EventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	publisher messaging.Publisher
}

func NewEventStore(publisher messaging.Publisher) *EventStore {
	return &EventStore{
		events:    make(map[string][]Event),
		publisher: publisher,
	}
}

// Append stores an event and publishes it
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
		Version:       len(es.events[aggregateID]) + 1,
	}
	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.mu.Unlock()

	if err := publish(ctx, es.publisher, event); err != nil {
		return &event, err
	}
	return &event, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(_ context.Context, aggregateID string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	out := make([]Event, len(es.events[aggregateID]))
	copy(out, es.events[aggregateID])
	return out, nil
}

// GetAllEvents returns every event ordered by timestamp
func (es *EventStore) GetAllEvents(_ context.Context) ([]Event, error) {
	es.mu.RLock()
	var all []Event
	for _, events := range es.events {
		all = append(all, events...)
	}
	es.mu.RUnlock()

	SortEvents(all)
	return all, nil
}

// SortEvents orders events by timestamp, then by per-aggregate version.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].Version < events[j].Version
	})
}

func publish(ctx context.Context, publisher messaging.Publisher, event Event) error {
	if publisher == nil {
		return nil
	}
	return publisher.Publish(ctx, event.AggregateID, event)
}
