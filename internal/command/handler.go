package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/domain/cart"
	"github.com/example/bookstore/internal/domain/inventory"
	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/pricing"
	"github.com/rs/zerolog/log"
)

// Handler runs the operations that span more than one aggregate.
type Handler struct {
	bookSvc      *book.Service
	cartSvc      *cart.Service
	orderSvc     *order.Service
	inventorySvc *inventory.Service
}

func NewHandler(
	bookSvc *book.Service,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	inventorySvc *inventory.Service,
) *Handler {
	return &Handler{
		bookSvc:      bookSvc,
		cartSvc:      cartSvc,
		orderSvc:     orderSvc,
		inventorySvc: inventorySvc,
	}
}

// Checkout turns the customer's cart into a pending order
func (h *Handler) Checkout(ctx context.Context, cmd Checkout) (*order.Order, error) {
	// 1. Price the cart from the live catalog
	c, err := h.cartSvc.Get(ctx, cmd.Customer.UserID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, order.ErrEmptyOrder
	}

	items := make([]order.Item, 0, len(c.Items))
	lines := make([]inventory.Line, 0, len(c.Items))
	for _, ci := range c.Items {
		b, err := h.bookSvc.GetActive(ctx, ci.BookID)
		if err != nil {
			return nil, fmt.Errorf("book %s: %w", ci.BookID, err)
		}
		if !b.HasStockFor(ci.Quantity) {
			return nil, &inventory.InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock}
		}
		items = append(items, orderItem(b, ci.Quantity))
		lines = append(lines, inventory.Line{BookID: b.ID, Quantity: ci.Quantity})
	}

	o, err := order.NewOrder(order.PlaceInput{
		CustomerID:      cmd.Customer.UserID,
		CustomerEmail:   cmd.Customer.Email,
		Items:           items,
		ShippingAddress: cmd.ShippingAddress,
		PaymentMethod:   cmd.PaymentMethod,
		CustomerNote:    cmd.CustomerNote,
	}, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	// 2. Take the stock (emits StockReserved events)
	if err := h.inventorySvc.Reserve(ctx, o.ID, lines); err != nil {
		return nil, err
	}

	// 3. Store the order (emits OrderPlaced event)
	if err := h.orderSvc.Save(ctx, o); err != nil {
		if relErr := h.inventorySvc.Release(ctx, o.ID, "checkout failed", lines); relErr != nil {
			log.Error().Err(relErr).Str("component", "checkout").Str("order_id", o.ID).Msg("failed to release stock")
		}
		return nil, err
	}

	// 4. Empty the cart (emits CartCleared event). The order stands either way.
	if err := h.cartSvc.Clear(ctx, cmd.Customer.UserID, "checkout"); err != nil {
		log.Warn().Err(err).Str("component", "checkout").Str("order_id", o.ID).Msg("failed to clear cart")
	}
	return o, nil
}

func orderItem(b *book.Book, qty int) order.Item {
	line := pricing.Line{Price: b.Price, OriginalPrice: b.OriginalPrice, Quantity: qty}
	return order.Item{
		BookID:    b.ID,
		SellerID:  b.SellerID,
		Title:     b.Title,
		Quantity:  qty,
		Price:     b.Price,
		Discount:  line.Discount(),
		IsDigital: b.IsDigital,
	}
}

// CancelOrder cancels an order and puts its books back on the shelf
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*order.Order, error) {
	tr, err := h.orderSvc.Cancel(ctx, cmd.Actor, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	h.release(ctx, tr.Order, "order cancelled")
	return tr.Order, nil
}

// UpdateOrderStatus moves an order along and restocks when it is cancelled,
// or refunded before it shipped.
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	tr, err := h.orderSvc.UpdateStatus(ctx, cmd.Actor, cmd.OrderID, cmd.Update)
	if err != nil {
		return nil, err
	}
	switch {
	case tr.Order.Status == order.StatusCancelled:
		h.release(ctx, tr.Order, "order cancelled")
	case tr.Order.Status == order.StatusRefunded && tr.From.RestocksOnRefund():
		h.release(ctx, tr.Order, "order refunded")
	}
	return tr.Order, nil
}

// release is best effort: the status change has already committed.
func (h *Handler) release(ctx context.Context, o *order.Order, reason string) {
	lines := make([]inventory.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = inventory.Line{BookID: it.BookID, Quantity: it.Quantity}
	}
	if err := h.inventorySvc.Release(ctx, o.ID, reason, lines); err != nil {
		event := log.Error()
		if errors.Is(err, book.ErrBookNotFound) {
			event = log.Warn()
		}
		event.Err(err).Str("component", "order").Str("order_id", o.ID).Msg("failed to release stock")
	}
}
