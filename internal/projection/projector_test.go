package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/domain/user"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/infrastructure/store/mocks"
	"github.com/example/bookstore/internal/pricing"
	"github.com/example/bookstore/internal/readmodel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjector() (*Projector, *mocks.MockDocumentStore) {
	docs := mocks.NewMockDocumentStore()
	return NewProjector(docs), docs
}

func makeEvent(aggregateType, eventType string, data any) []byte {
	jsonData, _ := json.Marshal(data)
	event := store.Event{
		ID:            "event-123",
		AggregateID:   "agg-123",
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
	}
	result, _ := json.Marshal(event)
	return result
}

func getRow(t *testing.T, docs store.DocumentStore, id string) *readmodel.OrderIndexRow {
	t.Helper()
	row, err := store.NewCollection[readmodel.OrderIndexRow](docs, readmodel.OrderIndexCollection).Get(context.Background(), id)
	require.NoError(t, err)
	return row
}

func placed() order.OrderPlaced {
	return order.OrderPlaced{
		OrderID:    "order-1",
		CustomerID: "cust-1",
		Items: []order.Item{
			{BookID: "b1", SellerID: "seller-a", Quantity: 2, Price: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(20)},
			{BookID: "b2", SellerID: "seller-b", Quantity: 1, Price: decimal.NewFromInt(15), Subtotal: decimal.NewFromInt(15)},
			{BookID: "b3", SellerID: "seller-a", Quantity: 1, Price: decimal.NewFromInt(5), Subtotal: decimal.NewFromInt(5)},
		},
		Summary:  pricing.Summary{Total: decimal.RequireFromString("48.19")},
		PlacedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// ============================================
// Order Event Tests
// ============================================

func TestProjector_HandleOrderPlaced(t *testing.T) {
	projector, docs := newTestProjector()
	ctx := context.Background()

	err := projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, order.EventOrderPlaced, placed()))

	require.NoError(t, err)
	row := getRow(t, docs, "order-1")
	assert.Equal(t, "pending", row.Status)
	assert.Equal(t, "48.19", row.Total.StringFixed(2))
	require.Len(t, row.SellerLines, 2)

	a, ok := row.SellerLine("seller-a")
	require.True(t, ok)
	assert.Equal(t, "25", a.Subtotal.String())
	assert.Equal(t, 3, a.Items)

	_, ok = row.SellerLine("seller-z")
	assert.False(t, ok)
}

func TestProjector_HandleOrderStatusChanged(t *testing.T) {
	projector, docs := newTestProjector()
	ctx := context.Background()
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, order.EventOrderPlaced, placed())))

	changed := order.OrderStatusChanged{OrderID: "order-1", From: order.StatusPending, To: order.StatusConfirmed, ChangedAt: time.Now().UTC()}
	err := projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, order.EventOrderStatusChanged, changed))

	require.NoError(t, err)
	assert.Equal(t, "confirmed", getRow(t, docs, "order-1").Status)
}

func TestProjector_ReplayedOrderPlacedKeepsStatus(t *testing.T) {
	projector, docs := newTestProjector()
	ctx := context.Background()
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, order.EventOrderPlaced, placed())))
	changed := order.OrderStatusChanged{OrderID: "order-1", To: order.StatusShipped}
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, order.EventOrderStatusChanged, changed)))

	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(order.AggregateType, order.EventOrderPlaced, placed())))

	assert.Equal(t, "shipped", getRow(t, docs, "order-1").Status)
}

func TestProjector_StatusChangeForUnknownOrder(t *testing.T) {
	projector, _ := newTestProjector()

	changed := order.OrderStatusChanged{OrderID: "ghost", To: order.StatusShipped}
	err := projector.HandleEvent(context.Background(), nil, makeEvent(order.AggregateType, order.EventOrderStatusChanged, changed))

	assert.Error(t, err)
}

// ============================================
// User Event Tests
// ============================================

func TestProjector_HandleUserRegistered(t *testing.T) {
	projector, docs := newTestProjector()
	ctx := context.Background()

	registered := user.UserRegistered{UserID: "u1", Email: "a@example.com", FirstName: "Ada", LastName: "Reader", Role: "seller", BusinessName: "Ada Books"}
	require.NoError(t, projector.HandleEvent(ctx, nil, makeEvent(user.AggregateType, user.EventUserRegistered, registered)))

	row, err := store.NewCollection[readmodel.UserDirectoryRow](docs, readmodel.UserDirectoryCollection).Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Reader", row.Name)
	assert.Equal(t, "Ada Books", row.BusinessName)
}

// ============================================
// Misc Tests
// ============================================

func TestProjector_IgnoresOtherEvents(t *testing.T) {
	projector, docs := newTestProjector()

	err := projector.HandleEvent(context.Background(), nil, makeEvent("Book", "BookCreated", map[string]string{"id": "b1"}))

	require.NoError(t, err)
	assert.Empty(t, docs.PutCalls)
	assert.Empty(t, docs.CreateCalls)
}

func TestProjector_InvalidJSON(t *testing.T) {
	projector, _ := newTestProjector()

	err := projector.HandleEvent(context.Background(), nil, []byte("not json"))

	assert.Error(t, err)
}

func TestProjector_Replay(t *testing.T) {
	projector, docs := newTestProjector()
	eventStore := mocks.NewMockEventStore()
	require.NoError(t, eventStore.AddEvent("order-1", order.AggregateType, order.EventOrderPlaced, placed()))
	require.NoError(t, eventStore.AddEvent("order-1", order.AggregateType, order.EventOrderStatusChanged,
		order.OrderStatusChanged{OrderID: "order-1", To: order.StatusCancelled}))
	require.NoError(t, eventStore.AddEvent("order-2", order.AggregateType, order.EventOrderStatusChanged,
		order.OrderStatusChanged{OrderID: "order-2", To: order.StatusShipped}))

	applied, err := projector.Replay(context.Background(), eventStore)

	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, "cancelled", getRow(t, docs, "order-1").Status)
}
