package inventory

import "time"

const (
	EventStockReserved = "StockReserved"
	EventStockReleased = "StockReleased"
)

type StockReserved struct {
	OrderID    string    `json:"order_id"`
	BookID     string    `json:"book_id"`
	Quantity   int       `json:"quantity"`
	Remaining  int       `json:"remaining"`
	IsDigital  bool      `json:"is_digital"`
	ReservedAt time.Time `json:"reserved_at"`
}

type StockReleased struct {
	OrderID    string    `json:"order_id"`
	BookID     string    `json:"book_id"`
	Quantity   int       `json:"quantity"`
	Remaining  int       `json:"remaining"`
	IsDigital  bool      `json:"is_digital"`
	Reason     string    `json:"reason"`
	ReleasedAt time.Time `json:"released_at"`
}
