package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/bookstore/internal/infrastructure/messaging"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// SQLEventStore stores events in PostgreSQL or SQLite
type SQLEventStore struct {
	db        *sql.DB
	dialect   Dialect
	publisher messaging.Publisher
}

func NewSQLEventStore(db *sql.DB, dialect Dialect, publisher messaging.Publisher) *SQLEventStore {
	return &SQLEventStore{
		db:        db,
		dialect:   dialect,
		publisher: publisher,
	}
}

// Migrate creates the events table if needed.
func (es *SQLEventStore) Migrate(ctx context.Context) error {
	_, err := es.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		aggregate_id TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type TEXT NOT NULL,
		data TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (aggregate_id, version)
	)`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

// Append stores an event and publishes it. The version is read and the row
// inserted in one transaction; a concurrent writer taking the same version
// makes the append start over.
func (es *SQLEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
	}

	err = appendWithRetry(ctx, isUniqueViolation, func() error {
		version, err := es.insert(ctx, event)
		if err != nil {
			return err
		}
		event.Version = version
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append %s to %s: %w", eventType, aggregateID, err)
	}

	if err := publish(ctx, es.publisher, event); err != nil {
		return &event, err
	}
	return &event, nil
}

func (es *SQLEventStore) insert(ctx context.Context, event Event) (int, error) {
	tx, err := es.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	err = tx.QueryRowContext(ctx,
		es.dialect.Rebind("SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = ?"),
		event.AggregateID,
	).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("next version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		es.dialect.Rebind(`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		string(event.Data),
		current+1,
		event.Timestamp,
	)
	if err != nil {
		return 0, err
	}
	return current + 1, tx.Commit()
}

// isUniqueViolation reports whether err is a duplicate (aggregate_id, version).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// GetEvents returns all events for an aggregate
func (es *SQLEventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return es.query(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 WHERE aggregate_id = ?
		 ORDER BY version ASC`,
		aggregateID,
	)
}

// GetAllEvents returns the whole log in insertion order
func (es *SQLEventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	return es.query(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 ORDER BY created_at ASC, version ASC`,
	)
}

func (es *SQLEventStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := es.db.QueryContext(ctx, es.dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &data, &e.Version, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Data = json.RawMessage(data)
		events = append(events, e)
	}
	return events, rows.Err()
}
