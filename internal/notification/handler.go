package notification

import (
	"context"
	"encoding/json"

	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/email"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
)

// Sender delivers customer emails
type Sender interface {
	SendOrderConfirmation(to string, data email.OrderConfirmation) error
	SendStatusUpdate(to string, data email.StatusUpdate) error
}

// Handler processes events for sending notifications
type Handler struct {
	sender Sender
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes an event from the bus
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Error().Err(err).Str("component", "notifier").Msg("failed to unmarshal event")
		return err
	}
	return h.Apply(ctx, event)
}

// Apply sends the email an order event calls for, if any.
func (h *Handler) Apply(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(event)
	case order.EventOrderCancelled:
		return h.handleCancelled(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	logger := log.With().Str("component", "notifier").Str("order_id", e.OrderID).Logger()
	if e.CustomerEmail == "" {
		logger.Warn().Msg("order has no customer email")
		return nil
	}

	lines := make([]email.OrderLine, len(e.Items))
	for i, it := range e.Items {
		lines[i] = email.OrderLine{
			Title:    it.Title,
			Quantity: it.Quantity,
			Price:    it.Price,
			Subtotal: it.Subtotal,
		}
	}

	err := h.sender.SendOrderConfirmation(e.CustomerEmail, email.OrderConfirmation{
		OrderNumber:  e.OrderNumber,
		CustomerName: e.ShippingAddress.FullName,
		Items:        lines,
		Subtotal:     e.Summary.Subtotal,
		Tax:          e.Summary.Tax,
		Shipping:     e.Summary.Shipping,
		Discount:     e.Summary.Discount,
		Total:        e.Summary.Total,
		PlacedAt:     e.PlacedAt,
	})
	if err != nil {
		logger.Error().Err(err).Str("to", e.CustomerEmail).Msg("failed to send order confirmation")
		return err
	}

	logger.Info().Str("to", e.CustomerEmail).Msg("order confirmation sent")
	return nil
}

// Customers hear about shipping and delivery. Cancellation has its own event.
func (h *Handler) handleStatusChanged(event store.Event) error {
	var e order.OrderStatusChanged
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	if e.To != order.StatusShipped && e.To != order.StatusDelivered {
		return nil
	}
	return h.sendStatus(e.OrderID, e.CustomerEmail, email.StatusUpdate{
		OrderNumber:    e.OrderNumber,
		Status:         string(e.To),
		Note:           e.Note,
		Carrier:        e.Tracking.Carrier,
		TrackingNumber: e.Tracking.TrackingNumber,
		ChangedAt:      e.ChangedAt,
	})
}

func (h *Handler) handleCancelled(event store.Event) error {
	var e order.OrderCancelled
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return err
	}
	return h.sendStatus(e.OrderID, e.CustomerEmail, email.StatusUpdate{
		OrderNumber: e.OrderNumber,
		Status:      string(order.StatusCancelled),
		Note:        e.Reason,
		ChangedAt:   e.CancelledAt,
	})
}

func (h *Handler) sendStatus(orderID, to string, data email.StatusUpdate) error {
	logger := log.With().Str("component", "notifier").Str("order_id", orderID).Str("status", data.Status).Logger()
	if to == "" {
		logger.Warn().Msg("order has no customer email")
		return nil
	}
	if err := h.sender.SendStatusUpdate(to, data); err != nil {
		logger.Error().Err(err).Str("to", to).Msg("failed to send status email")
		return err
	}
	logger.Info().Str("to", to).Msg("status email sent")
	return nil
}
