package command

import (
	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/domain/order"
)

// Checkout Commands
type Checkout struct {
	Customer        auth.Principal
	ShippingAddress order.ShippingAddress
	PaymentMethod   order.PaymentMethod
	CustomerNote    string
}

// Order Commands
type CancelOrder struct {
	Actor   auth.Principal
	OrderID string
}

type UpdateOrderStatus struct {
	Actor   auth.Principal
	OrderID string
	Update  order.StatusUpdate
}
