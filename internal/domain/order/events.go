package order

import (
	"time"

	"github.com/example/bookstore/internal/pricing"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
)

type OrderPlaced struct {
	OrderID         string          `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      string          `json:"customer_id"`
	CustomerEmail   string          `json:"customer_email"`
	Items           []Item          `json:"items"`
	Summary         pricing.Summary `json:"summary"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentType     PaymentType     `json:"payment_type"`
	PlacedAt        time.Time       `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email"`
	SellerIDs     []string  `json:"seller_ids"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Note          string    `json:"note,omitempty"`
	UpdatedBy     string    `json:"updated_by"`
	Tracking      Tracking  `json:"tracking"`
	ChangedAt     time.Time `json:"changed_at"`
}

type OrderCancelled struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email"`
	Reason        string    `json:"reason"`
	CancelledBy   string    `json:"cancelled_by"`
	CancelledAt   time.Time `json:"cancelled_at"`
}
