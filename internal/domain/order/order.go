package order

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/example/bookstore/internal/pricing"
	"github.com/shopspring/decimal"
)

const (
	AggregateType = "Order"
	Collection    = "orders"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrCannotCancel      = errors.New("order cannot be cancelled at this stage")
	ErrAccessDenied      = errors.New("access denied")
	ErrInvalidAddress    = errors.New("invalid shipping address")
	ErrInvalidPayment    = errors.New("invalid payment method")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled, StatusRefunded},
	StatusConfirmed:  {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {}, // terminal state
	StatusRefunded:   {}, // terminal state
}

var displayStatus = map[Status]string{
	StatusPending:    "Order Placed",
	StatusConfirmed:  "Order Confirmed",
	StatusProcessing: "Processing",
	StatusShipped:    "Shipped",
	StatusDelivered:  "Delivered",
	StatusCancelled:  "Cancelled",
	StatusRefunded:   "Refunded",
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Display is the customer-facing label for a status.
func (s Status) Display() string {
	if label, ok := displayStatus[s]; ok {
		return label
	}
	return string(s)
}

// Cancellable reports whether a customer may still cancel.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// RestocksOnRefund reports whether goods refunded from this status never left the warehouse.
func (s Status) RestocksOnRefund() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusProcessing
}

// CanTransition checks the transition table.
func CanTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

type PaymentType string

const (
	PaymentCreditCard     PaymentType = "credit_card"
	PaymentDebitCard      PaymentType = "debit_card"
	PaymentPayPal         PaymentType = "paypal"
	PaymentBankTransfer   PaymentType = "bank_transfer"
	PaymentCashOnDelivery PaymentType = "cash_on_delivery"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCreditCard, PaymentDebitCard, PaymentPayPal, PaymentBankTransfer, PaymentCashOnDelivery:
		return true
	}
	return false
}

type PaymentDetails struct {
	Last4         string `json:"last4,omitempty"`
	Brand         string `json:"brand,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

type PaymentMethod struct {
	Type    PaymentType    `json:"type"`
	Details PaymentDetails `json:"details"`
	Status  string         `json:"status"`
}

type ShippingAddress struct {
	FullName    string `json:"fullName"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

func (a ShippingAddress) Validate() error {
	fields := []struct{ name, value string }{
		{"fullName", a.FullName},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"country", a.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidAddress, f.name)
		}
	}
	return nil
}

// Item is a cart line frozen at checkout.
type Item struct {
	BookID    string          `json:"bookId"`
	SellerID  string          `json:"sellerId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	IsDigital bool            `json:"isDigital"`
}

type StatusEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

type Tracking struct {
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

type Notes struct {
	Customer string `json:"customer,omitempty"`
	Internal string `json:"internal,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerID      string          `json:"customerId"`
	CustomerEmail   string          `json:"customerEmail"`
	Items           []Item          `json:"items"`
	Summary         pricing.Summary `json:"summary"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Status          Status          `json:"status"`
	StatusHistory   []StatusEntry   `json:"statusHistory"`
	Tracking        Tracking        `json:"tracking"`
	Notes           Notes           `json:"notes"`
	ConfirmedAt     *time.Time      `json:"confirmedAt,omitempty"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	RefundedAt      *time.Time      `json:"refundedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	return CanTransition(o.Status, target)
}

func (o *Order) transitionError(target Status) error {
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
}

// transition moves the order along the table, recording history and the stage timestamp.
func (o *Order) transition(target Status, note, by string, at time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	if !o.CanTransitionTo(target) {
		return o.transitionError(target)
	}
	o.Status = target
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		Status:    target,
		Timestamp: at,
		Note:      note,
		UpdatedBy: by,
	})
	switch target {
	case StatusConfirmed:
		o.ConfirmedAt = &at
	case StatusShipped:
		o.ShippedAt = &at
	case StatusDelivered:
		o.DeliveredAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
	case StatusRefunded:
		o.RefundedAt = &at
	}
	o.UpdatedAt = at
	return nil
}

// HasSeller reports whether any line belongs to the seller.
func (o *Order) HasSeller(sellerID string) bool {
	return slices.ContainsFunc(o.Items, func(it Item) bool { return it.SellerID == sellerID })
}

// SellerSubtotal sums the seller's line subtotals.
func (o *Order) SellerSubtotal(sellerID string) decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			total = total.Add(it.Subtotal)
		}
	}
	return total
}

// ForSeller returns a copy of the order holding only the seller's lines.
func (o *Order) ForSeller(sellerID string) *Order {
	c := *o
	c.Items = slices.DeleteFunc(slices.Clone(o.Items), func(it Item) bool { return it.SellerID != sellerID })
	return &c
}

// View is an order as returned to clients.
type View struct {
	*Order
	DisplayStatus string `json:"displayStatus"`
}

func (o *Order) View() View {
	return View{Order: o, DisplayStatus: o.Status.Display()}
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber formats ORD-<base36 unix millis>-<5 random chars>.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.Intn(len(orderNumberAlphabet))]
	}
	return "ORD-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)) + "-" + string(suffix)
}

// SellerIDs lists the distinct sellers in the order, in line order.
func (o *Order) SellerIDs() []string {
	var ids []string
	for _, it := range o.Items {
		if !slices.Contains(ids, it.SellerID) {
			ids = append(ids, it.SellerID)
		}
	}
	return ids
}
