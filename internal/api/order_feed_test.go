package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderEvent(t *testing.T, eventType string, data any) store.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return store.Event{
		ID:            "evt-1",
		AggregateID:   "order-1",
		AggregateType: order.AggregateType,
		EventType:     eventType,
		Data:          raw,
		Timestamp:     time.Now().UTC(),
		Version:       1,
	}
}

func subscribe(feed *OrderFeed, p auth.Principal) *feedClient {
	c := &feedClient{principal: p, send: make(chan []byte, feedBuffer)}
	feed.register(c)
	return c
}

func received(c *feedClient) int {
	return len(c.send)
}

// ============================================
// Fan-out Tests
// ============================================

func TestOrderFeed_Broadcast(t *testing.T) {
	placed := orderEvent(t, order.EventOrderPlaced, order.OrderPlaced{
		OrderID: "order-1",
		Items:   []order.Item{{BookID: "b1", SellerID: seller.UserID}, {BookID: "b2", SellerID: seller.UserID}},
	})
	changed := orderEvent(t, order.EventOrderStatusChanged, order.OrderStatusChanged{
		OrderID:   "order-1",
		SellerIDs: []string{rival.UserID},
		To:        order.StatusShipped,
	})
	cancelled := orderEvent(t, order.EventOrderCancelled, order.OrderCancelled{OrderID: "order-1"})
	bookEvent := orderEvent(t, "BookCreated", map[string]string{"book_id": "b1"})
	bookEvent.AggregateType = "Book"

	tests := []struct {
		name       string
		event      store.Event
		wantAdmin  int
		wantSeller int
		wantRival  int
	}{
		{"placed reaches the seller with lines", placed, 1, 1, 0},
		{"status change reaches listed sellers", changed, 1, 0, 1},
		{"cancellation carries no sellers", cancelled, 1, 0, 0},
		{"non-order events are ignored", bookEvent, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := NewOrderFeed()
			adminClient := subscribe(feed, admin)
			sellerClient := subscribe(feed, seller)
			rivalClient := subscribe(feed, rival)

			feed.Broadcast(tt.event)

			assert.Equal(t, tt.wantAdmin, received(adminClient))
			assert.Equal(t, tt.wantSeller, received(sellerClient))
			assert.Equal(t, tt.wantRival, received(rivalClient))
		})
	}
}

func TestOrderFeed_HandleEvent(t *testing.T) {
	feed := NewOrderFeed()
	client := subscribe(feed, admin)
	event := orderEvent(t, order.EventOrderCancelled, order.OrderCancelled{OrderID: "order-1", Reason: "changed mind"})
	value, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, feed.HandleEvent(context.Background(), []byte("order-1"), value))

	require.Equal(t, 1, received(client))
	var msg FeedMessage
	require.NoError(t, json.Unmarshal(<-client.send, &msg))
	assert.Equal(t, order.EventOrderCancelled, msg.EventType)
	assert.Equal(t, "order-1", msg.OrderID)
	assert.Contains(t, string(msg.Data), "changed mind")

	assert.Error(t, feed.HandleEvent(context.Background(), nil, []byte("not json")))
}

func TestOrderFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	feed := NewOrderFeed()
	client := subscribe(feed, admin)
	event := orderEvent(t, order.EventOrderCancelled, order.OrderCancelled{OrderID: "order-1"})

	for i := 0; i < feedBuffer+5; i++ {
		feed.Broadcast(event)
	}

	assert.Equal(t, feedBuffer, received(client))
}

func TestOrderFeed_Unregister(t *testing.T) {
	feed := NewOrderFeed()
	client := subscribe(feed, admin)
	require.Equal(t, 1, feed.Subscribers())

	feed.unregister(client)
	feed.unregister(client)

	assert.Equal(t, 0, feed.Subscribers())
	_, open := <-client.send
	assert.False(t, open)
}

// ============================================
// WebSocket Tests
// ============================================

func TestOrderFeedSocket_StreamsCheckout(t *testing.T) {
	f := newTestServer(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()
	b := f.addBook(t, seller, "Dune", "10.00", 5)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/ws"
	header := http.Header{"Authorization": []string{"Bearer " + f.token(t, seller)}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	require.Eventually(t, func() bool { return f.feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	o := f.placeOrder(t, b, 1)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg FeedMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, order.EventOrderPlaced, msg.EventType)
	assert.Equal(t, o.ID, msg.OrderID)
}

func TestOrderFeedSocket_RejectsCustomers(t *testing.T) {
	f := newTestServer(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/ws"
	header := http.Header{"Authorization": []string{"Bearer " + f.token(t, customer)}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
