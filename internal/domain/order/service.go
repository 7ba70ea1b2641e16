package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/pagination"
	"github.com/example/bookstore/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultLimit = 10

type Service struct {
	orders     *store.Collection[Order]
	eventStore store.EventStoreInterface
}

func NewService(docs store.DocumentStore, es store.EventStoreInterface) *Service {
	return &Service{
		orders:     store.NewCollection[Order](docs, Collection),
		eventStore: es,
	}
}

// PlaceInput is a priced cart snapshot ready to become an order.
type PlaceInput struct {
	CustomerID      string
	CustomerEmail   string
	Items           []Item
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	CustomerNote    string
}

// NewOrder builds a pending order with its summary. Nothing is stored.
func NewOrder(in PlaceInput, now time.Time) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	if !in.PaymentMethod.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPayment, in.PaymentMethod.Type)
	}

	items := slices.Clone(in.Items)
	lines := make([]pricing.Line, len(items))
	discount := decimal.Zero
	for i := range items {
		lines[i] = pricing.Line{Price: items[i].Price, Quantity: items[i].Quantity}
		items[i].Subtotal = lines[i].Subtotal()
		discount = discount.Add(items[i].Discount)
	}
	summary := pricing.Compute(lines)
	summary.Discount = discount.Round(2)

	payment := in.PaymentMethod
	payment.Status = "pending"

	return &Order{
		ID:              uuid.New().String(),
		OrderNumber:     NewOrderNumber(now),
		CustomerID:      in.CustomerID,
		CustomerEmail:   in.CustomerEmail,
		Items:           items,
		Summary:         summary,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   payment,
		Status:          StatusPending,
		StatusHistory: []StatusEntry{{
			Status:    StatusPending,
			Timestamp: now,
			Note:      "Order placed",
			UpdatedBy: in.CustomerID,
		}},
		Notes:     Notes{Customer: in.CustomerNote},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Save persists a newly placed order and announces it.
func (s *Service) Save(ctx context.Context, o *Order) error {
	if err := s.orders.Put(ctx, o.ID, o); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	store.Record(ctx, s.eventStore, o.ID, AggregateType, EventOrderPlaced, OrderPlaced{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		CustomerEmail:   o.CustomerEmail,
		Items:           o.Items,
		Summary:         o.Summary,
		ShippingAddress: o.ShippingAddress,
		PaymentType:     o.PaymentMethod.Type,
		PlacedAt:        o.CreatedAt,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// CanRead: the customer, any seller with a line in the order, or an admin.
func CanRead(actor auth.Principal, o *Order) bool {
	switch {
	case actor.Can(auth.CapOrderReadAny):
		return true
	case o.CustomerID == actor.UserID && actor.Can(auth.CapOrderReadOwn):
		return true
	case actor.Can(auth.CapOrderReadSeller) && o.HasSeller(actor.UserID):
		return true
	}
	return false
}

func canUpdateStatus(actor auth.Principal, o *Order) bool {
	return actor.Can(auth.CapOrderStatusAny) ||
		(actor.Can(auth.CapOrderStatusSeller) && o.HasSeller(actor.UserID))
}

func canCancel(actor auth.Principal, o *Order) bool {
	return actor.Can(auth.CapOrderCancelAny) ||
		(o.CustomerID == actor.UserID && actor.Can(auth.CapOrderCancelOwn))
}

// GetFor returns an order the actor is allowed to read.
func (s *Service) GetFor(ctx context.Context, actor auth.Principal, id string) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanRead(actor, o) {
		return nil, ErrAccessDenied
	}
	return o, nil
}

// StatusUpdate is a requested move along the transition table.
type StatusUpdate struct {
	Status   Status
	Note     string
	Tracking *Tracking
}

// Transition is the outcome of a committed status change.
type Transition struct {
	Order *Order
	From  Status
}

// UpdateStatus checks access and the transition table inside one atomic update.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Principal, id string, upd StatusUpdate) (*Transition, error) {
	return s.transition(ctx, id, upd, actor.UserID, func(o *Order, _ *string) error {
		if !canUpdateStatus(actor, o) {
			return ErrAccessDenied
		}
		return nil
	})
}

// Cancel moves a pending or confirmed order to cancelled on behalf of its customer or an admin.
func (s *Service) Cancel(ctx context.Context, actor auth.Principal, id string) (*Transition, error) {
	upd := StatusUpdate{Status: StatusCancelled}
	return s.transition(ctx, id, upd, actor.UserID, func(o *Order, note *string) error {
		if !canCancel(actor, o) {
			return ErrAccessDenied
		}
		if !o.Status.Cancellable() {
			return fmt.Errorf("%w: order is %s", ErrCannotCancel, o.Status)
		}
		*note = "Order cancelled by admin"
		if o.CustomerID == actor.UserID {
			*note = "Order cancelled by customer"
		}
		return nil
	})
}

// transition runs guard, which may reject the change or rewrite its history note,
// then applies the change in the same atomic update.
func (s *Service) transition(ctx context.Context, id string, upd StatusUpdate, by string, guard func(o *Order, note *string) error) (*Transition, error) {
	var from Status
	now := time.Now().UTC()
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		note := upd.Note
		if err := guard(o, &note); err != nil {
			return err
		}
		from = o.Status
		if err := o.transition(upd.Status, note, by, now); err != nil {
			return err
		}
		if upd.Tracking != nil {
			if upd.Tracking.TrackingNumber != "" {
				o.Tracking.TrackingNumber = upd.Tracking.TrackingNumber
			}
			if upd.Tracking.Carrier != "" {
				o.Tracking.Carrier = upd.Tracking.Carrier
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	last := o.StatusHistory[len(o.StatusHistory)-1]
	store.Record(ctx, s.eventStore, o.ID, AggregateType, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		SellerIDs:     o.SellerIDs(),
		From:          from,
		To:            o.Status,
		Note:          last.Note,
		UpdatedBy:     by,
		Tracking:      o.Tracking,
		ChangedAt:     now,
	})
	if o.Status == StatusCancelled {
		store.Record(ctx, s.eventStore, o.ID, AggregateType, EventOrderCancelled, OrderCancelled{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerID:    o.CustomerID,
			CustomerEmail: o.CustomerEmail,
			Reason:        last.Note,
			CancelledBy:   by,
			CancelledAt:   now,
		})
	}
	return &Transition{Order: o, From: from}, nil
}

// ListQuery filters order listings. Zero values mean no filter.
type ListQuery struct {
	Page       int
	Limit      int
	Status     Status
	CustomerID string
	SellerID   string
}

type Page struct {
	Orders     []View                `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

func (q ListQuery) matches(o *Order) bool {
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	if q.CustomerID != "" && o.CustomerID != q.CustomerID {
		return false
	}
	if q.SellerID != "" && !o.HasSeller(q.SellerID) {
		return false
	}
	return true
}

func (s *Service) list(ctx context.Context, q ListQuery, project func(*Order) *Order) (*Page, error) {
	all, err := s.orders.All(ctx)
	if err != nil {
		return nil, err
	}
	matched := slices.DeleteFunc(all, func(o *Order) bool { return !q.matches(o) })
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page, limit := pagination.Normalize(q.Page, q.Limit, DefaultLimit)
	views := make([]View, 0, limit)
	for _, o := range pagination.Slice(matched, page, limit) {
		views = append(views, project(o).View())
	}
	return &Page{Orders: views, Pagination: pagination.New(page, limit, len(matched))}, nil
}

// ListByCustomer returns a customer's orders, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string, q ListQuery) (*Page, error) {
	q.CustomerID = customerID
	q.SellerID = ""
	return s.list(ctx, q, func(o *Order) *Order { return o })
}

// ListForSeller returns orders containing the seller's books, trimmed to the seller's lines.
func (s *Service) ListForSeller(ctx context.Context, sellerID string, q ListQuery) (*Page, error) {
	q.SellerID = sellerID
	return s.list(ctx, q, func(o *Order) *Order { return o.ForSeller(sellerID) })
}

// ListAll is the admin listing.
func (s *Service) ListAll(ctx context.Context, q ListQuery) (*Page, error) {
	return s.list(ctx, q, func(o *Order) *Order { return o })
}

// HasDelivered reports whether the customer received an order containing the book.
func (s *Service) HasDelivered(ctx context.Context, customerID, bookID string) (bool, error) {
	all, err := s.orders.All(ctx)
	if err != nil {
		return false, err
	}
	for _, o := range all {
		if o.CustomerID != customerID || o.Status != StatusDelivered {
			continue
		}
		for _, it := range o.Items {
			if it.BookID == bookID {
				return true, nil
			}
		}
	}
	return false, nil
}
