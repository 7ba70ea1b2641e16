package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/domain/user"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/readmodel"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Projector keeps the dashboard read models in step with the event log.
// Every write is keyed by aggregate id so events can be applied again safely.
type Projector struct {
	orders *store.Collection[readmodel.OrderIndexRow]
	users  *store.Collection[readmodel.UserDirectoryRow]
}

func NewProjector(docs store.DocumentStore) *Projector {
	return &Projector{
		orders: store.NewCollection[readmodel.OrderIndexRow](docs, readmodel.OrderIndexCollection),
		users:  store.NewCollection[readmodel.UserDirectoryRow](docs, readmodel.UserDirectoryCollection),
	}
}

// HandleEvent is a messaging.Handler.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	return p.Apply(ctx, event)
}

// Apply projects one event. Events the dashboards do not use are ignored.
func (p *Projector) Apply(ctx context.Context, event store.Event) error {
	log.Debug().
		Str("component", "projector").
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Msg("received event")

	switch event.AggregateType {
	case order.AggregateType:
		return p.handleOrderEvent(ctx, event)
	case user.AggregateType:
		return p.handleUserEvent(ctx, event)
	}
	return nil
}

// Replay rebuilds the read models from the whole event log.
func (p *Projector) Replay(ctx context.Context, es store.EventStoreInterface) (int, error) {
	events, err := es.GetAllEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}
	applied := 0
	for _, event := range events {
		if err := p.Apply(ctx, event); err != nil {
			log.Warn().Err(err).
				Str("component", "projector").
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("skip event during replay")
			continue
		}
		applied++
	}
	return applied, nil
}

func (p *Projector) handleOrderEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		row := &readmodel.OrderIndexRow{
			OrderID:     e.OrderID,
			OrderNumber: e.OrderNumber,
			CustomerID:  e.CustomerID,
			Status:      string(order.StatusPending),
			Total:       e.Summary.Total,
			SellerLines: sellerLines(e.Items),
			CreatedAt:   e.PlacedAt,
			UpdatedAt:   e.PlacedAt,
		}
		// A row that already exists has seen later events.
		if err := p.orders.Create(ctx, e.OrderID, row); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return err
		}

	case order.EventOrderStatusChanged:
		var e order.OrderStatusChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		_, err := p.orders.Update(ctx, e.OrderID, func(row *readmodel.OrderIndexRow) error {
			row.Status = string(e.To)
			row.UpdatedAt = e.ChangedAt
			return nil
		})
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("order %s not indexed yet", e.OrderID)
		}
		return err
	}

	return nil
}

func sellerLines(items []order.Item) []readmodel.SellerLine {
	var lines []readmodel.SellerLine
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.SellerID]
		if !ok {
			i = len(lines)
			index[it.SellerID] = i
			lines = append(lines, readmodel.SellerLine{SellerID: it.SellerID, Subtotal: decimal.Zero})
		}
		subtotal := it.Subtotal
		if subtotal.IsZero() {
			subtotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		}
		lines[i].Subtotal = lines[i].Subtotal.Add(subtotal)
		lines[i].Items += it.Quantity
	}
	return lines
}

func (p *Projector) handleUserEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case user.EventUserRegistered:
		var e user.UserRegistered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.users.Put(ctx, e.UserID, &readmodel.UserDirectoryRow{
			UserID:       e.UserID,
			Email:        e.Email,
			Name:         strings.TrimSpace(e.FirstName + " " + e.LastName),
			Role:         e.Role,
			BusinessName: e.BusinessName,
			CreatedAt:    e.RegisteredAt,
		})
	}

	return nil
}
