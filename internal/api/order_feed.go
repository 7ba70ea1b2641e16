package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
	feedBuffer     = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedMessage is what subscribers receive for each order event
type FeedMessage struct {
	EventType string          `json:"eventType"`
	OrderID   string          `json:"orderId"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type feedClient struct {
	principal auth.Principal
	send      chan []byte
}

// sees reports whether the client may receive an event touching sellers.
// Admins see every order, sellers only orders containing their books.
func (c *feedClient) sees(sellers []string) bool {
	if c.principal.Can(auth.CapOrderReadAny) {
		return true
	}
	for _, id := range sellers {
		if id == c.principal.UserID {
			return true
		}
	}
	return false
}

// OrderFeed fans order events from the bus out to websocket subscribers
type OrderFeed struct {
	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

func NewOrderFeed() *OrderFeed {
	return &OrderFeed{clients: make(map[*feedClient]struct{})}
}

func (f *OrderFeed) register(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[c] = struct{}{}
}

func (f *OrderFeed) unregister(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

// Subscribers returns the number of connected clients
func (f *OrderFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// sellersOf extracts the sellers an order event concerns. Events without
// seller information go to admins only.
func sellersOf(event store.Event) []string {
	switch event.EventType {
	case order.EventOrderPlaced:
		var placed order.OrderPlaced
		if err := json.Unmarshal(event.Data, &placed); err != nil {
			return nil
		}
		seen := make(map[string]bool)
		var sellers []string
		for _, it := range placed.Items {
			if !seen[it.SellerID] {
				seen[it.SellerID] = true
				sellers = append(sellers, it.SellerID)
			}
		}
		return sellers
	case order.EventOrderStatusChanged:
		var changed order.OrderStatusChanged
		if err := json.Unmarshal(event.Data, &changed); err != nil {
			return nil
		}
		return changed.SellerIDs
	}
	return nil
}

// HandleEvent is a messaging.Handler. Non-order events are ignored.
func (f *OrderFeed) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	f.Broadcast(event)
	return nil
}

// Broadcast sends an order event to every subscriber allowed to see it.
// Slow subscribers whose buffer is full miss the message.
func (f *OrderFeed) Broadcast(event store.Event) {
	if event.AggregateType != order.AggregateType {
		return
	}
	msg, err := json.Marshal(FeedMessage{
		EventType: event.EventType,
		OrderID:   event.AggregateID,
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	if err != nil {
		return
	}
	sellers := sellersOf(event)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients {
		if !c.sees(sellers) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("component", "order_feed").Str("user_id", c.principal.UserID).Msg("subscriber too slow, dropping message")
		}
	}
}

// OrderFeedSocket handles GET /api/orders/ws
func (h *Handlers) OrderFeedSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "order_feed").Msg("websocket upgrade failed")
		return
	}

	client := &feedClient{principal: principal(c), send: make(chan []byte, feedBuffer)}
	h.feed.register(client)
	log.Info().Str("component", "order_feed").Str("user_id", client.principal.UserID).Msg("subscriber connected")

	go writePump(conn, client)
	readPump(conn)

	h.feed.unregister(client)
	log.Info().Str("component", "order_feed").Str("user_id", client.principal.UserID).Msg("subscriber disconnected")
}

// readPump drains client frames until the connection closes
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, client *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
