package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Read model collections in the document store
const (
	OrderIndexCollection    = "order_index"
	UserDirectoryCollection = "user_directory"
)

// SellerLine is one seller's share of an order
type SellerLine struct {
	SellerID string          `json:"sellerId"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Items    int             `json:"items"`
}

// OrderIndexRow is the dashboard view of one order
type OrderIndexRow struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	CustomerID  string          `json:"customerId"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	SellerLines []SellerLine    `json:"sellerLines"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SellerLine returns the seller's share, if any.
func (r *OrderIndexRow) SellerLine(sellerID string) (SellerLine, bool) {
	for _, l := range r.SellerLines {
		if l.SellerID == sellerID {
			return l, true
		}
	}
	return SellerLine{}, false
}

// UserDirectoryRow is the public part of an account
type UserDirectoryRow struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	BusinessName string    `json:"businessName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
