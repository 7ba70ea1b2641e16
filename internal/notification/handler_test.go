package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/email"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	Confirmations []email.OrderConfirmation
	Statuses      []email.StatusUpdate
	To            []string
	Err           error
}

func (m *mockSender) SendOrderConfirmation(to string, data email.OrderConfirmation) error {
	m.To = append(m.To, to)
	m.Confirmations = append(m.Confirmations, data)
	return m.Err
}

func (m *mockSender) SendStatusUpdate(to string, data email.StatusUpdate) error {
	m.To = append(m.To, to)
	m.Statuses = append(m.Statuses, data)
	return m.Err
}

func makeEvent(eventType string, data any) []byte {
	jsonData, _ := json.Marshal(data)
	event := store.Event{
		ID:            "event-1",
		AggregateID:   "order-1",
		AggregateType: order.AggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
	}
	result, _ := json.Marshal(event)
	return result
}

// ============================================
// OrderPlaced Tests
// ============================================

func TestHandler_OrderPlaced_SendsConfirmation(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender)

	placed := order.OrderPlaced{
		OrderID:         "order-1",
		OrderNumber:     "ORD-1",
		CustomerEmail:   "reader@example.com",
		Items:           []order.Item{{Title: "Dune", Quantity: 3, Price: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(30)}},
		Summary:         pricing.Summary{Total: decimal.RequireFromString("38.39")},
		ShippingAddress: order.ShippingAddress{FullName: "Ada Reader"},
	}
	err := handler.HandleEvent(context.Background(), nil, makeEvent(order.EventOrderPlaced, placed))

	require.NoError(t, err)
	require.Len(t, sender.Confirmations, 1)
	assert.Equal(t, []string{"reader@example.com"}, sender.To)
	assert.Equal(t, "ORD-1", sender.Confirmations[0].OrderNumber)
	assert.Equal(t, "Ada Reader", sender.Confirmations[0].CustomerName)
	assert.Equal(t, "Dune", sender.Confirmations[0].Items[0].Title)
	assert.Equal(t, "38.39", sender.Confirmations[0].Total.StringFixed(2))
}

func TestHandler_OrderPlaced_NoEmail(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender)

	err := handler.HandleEvent(context.Background(), nil, makeEvent(order.EventOrderPlaced, order.OrderPlaced{OrderID: "order-1"}))

	require.NoError(t, err)
	assert.Empty(t, sender.To)
}

func TestHandler_OrderPlaced_SendFailure(t *testing.T) {
	boom := errors.New("smtp down")
	sender := &mockSender{Err: boom}
	handler := NewHandler(sender)

	placed := order.OrderPlaced{OrderID: "order-1", CustomerEmail: "reader@example.com"}
	err := handler.HandleEvent(context.Background(), nil, makeEvent(order.EventOrderPlaced, placed))

	assert.ErrorIs(t, err, boom)
}

// ============================================
// Status Tests
// ============================================

func TestHandler_StatusChanged(t *testing.T) {
	tests := []struct {
		to       order.Status
		wantSent bool
	}{
		{order.StatusConfirmed, false},
		{order.StatusProcessing, false},
		{order.StatusShipped, true},
		{order.StatusDelivered, true},
		{order.StatusCancelled, false},
		{order.StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			sender := &mockSender{}
			handler := NewHandler(sender)

			changed := order.OrderStatusChanged{
				OrderID:       "order-1",
				OrderNumber:   "ORD-1",
				CustomerEmail: "reader@example.com",
				To:            tt.to,
				Tracking:      order.Tracking{Carrier: "UPS", TrackingNumber: "1Z"},
			}
			err := handler.HandleEvent(context.Background(), nil, makeEvent(order.EventOrderStatusChanged, changed))

			require.NoError(t, err)
			if !tt.wantSent {
				assert.Empty(t, sender.Statuses)
				return
			}
			require.Len(t, sender.Statuses, 1)
			assert.Equal(t, string(tt.to), sender.Statuses[0].Status)
			assert.Equal(t, "1Z", sender.Statuses[0].TrackingNumber)
		})
	}
}

func TestHandler_OrderCancelled(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender)

	cancelled := order.OrderCancelled{
		OrderID:       "order-1",
		OrderNumber:   "ORD-1",
		CustomerEmail: "reader@example.com",
		Reason:        "Order cancelled by customer",
	}
	err := handler.HandleEvent(context.Background(), nil, makeEvent(order.EventOrderCancelled, cancelled))

	require.NoError(t, err)
	require.Len(t, sender.Statuses, 1)
	assert.Equal(t, "cancelled", sender.Statuses[0].Status)
	assert.Equal(t, "Order cancelled by customer", sender.Statuses[0].Note)
}

func TestHandler_IgnoresOtherEvents(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender)

	err := handler.HandleEvent(context.Background(), nil, makeEvent("BookCreated", map[string]string{}))

	require.NoError(t, err)
	assert.Empty(t, sender.To)
}

func TestHandler_InvalidJSON(t *testing.T) {
	handler := NewHandler(&mockSender{})

	err := handler.HandleEvent(context.Background(), nil, []byte("{"))

	assert.Error(t, err)
}
