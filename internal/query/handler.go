package query

import (
	"context"
	"errors"
	"sort"

	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/readmodel"
	"github.com/shopspring/decimal"
)

// RecentOrders caps the recent order lists on the dashboards.
const RecentOrders = 5

// Handler answers dashboard queries from the projected read models.
type Handler struct {
	orders *store.Collection[readmodel.OrderIndexRow]
	users  *store.Collection[readmodel.UserDirectoryRow]
}

func NewHandler(docs store.DocumentStore) *Handler {
	return &Handler{
		orders: store.NewCollection[readmodel.OrderIndexRow](docs, readmodel.OrderIndexCollection),
		users:  store.NewCollection[readmodel.UserDirectoryRow](docs, readmodel.UserDirectoryCollection),
	}
}

// StatusSummary is the count and revenue of orders in one status
type StatusSummary struct {
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SellerDashboard summarizes the orders containing a seller's books.
// Revenue counts only the seller's own lines.
type SellerDashboard struct {
	TotalOrders  int                      `json:"totalOrders"`
	TotalRevenue decimal.Decimal          `json:"totalRevenue"`
	ByStatus     map[string]StatusSummary `json:"byStatus"`
	Recent       []SellerOrder            `json:"recentOrders"`
}

type SellerOrder struct {
	OrderID     string               `json:"orderId"`
	OrderNumber string               `json:"orderNumber"`
	Status      string               `json:"status"`
	Line        readmodel.SellerLine `json:"line"`
}

// AdminDashboard covers every order and account.
type AdminDashboard struct {
	TotalOrders       int                        `json:"totalOrders"`
	TotalRevenue      decimal.Decimal            `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal            `json:"averageOrderValue"`
	ByStatus          map[string]StatusSummary   `json:"byStatus"`
	UsersByRole       map[string]int             `json:"usersByRole"`
	TotalUsers        int                        `json:"totalUsers"`
	Recent            []*readmodel.OrderIndexRow `json:"recentOrders"`
}

// earns reports whether an order in this status counts toward revenue.
func earns(status string) bool {
	return status != string(order.StatusCancelled) && status != string(order.StatusRefunded)
}

func newestFirst(rows []*readmodel.OrderIndexRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].OrderID < rows[j].OrderID
	})
}

func (h *Handler) SellerDashboard(ctx context.Context, sellerID string) (*SellerDashboard, error) {
	rows, err := h.orders.All(ctx)
	if err != nil {
		return nil, err
	}
	newestFirst(rows)

	d := &SellerDashboard{
		TotalRevenue: decimal.Zero,
		ByStatus:     make(map[string]StatusSummary),
		Recent:       []SellerOrder{},
	}
	for _, row := range rows {
		line, ok := row.SellerLine(sellerID)
		if !ok {
			continue
		}
		d.TotalOrders++
		s := d.ByStatus[row.Status]
		s.Count++
		s.Revenue = s.Revenue.Add(line.Subtotal)
		d.ByStatus[row.Status] = s
		if earns(row.Status) {
			d.TotalRevenue = d.TotalRevenue.Add(line.Subtotal)
		}
		if len(d.Recent) < RecentOrders {
			d.Recent = append(d.Recent, SellerOrder{
				OrderID:     row.OrderID,
				OrderNumber: row.OrderNumber,
				Status:      row.Status,
				Line:        line,
			})
		}
	}
	return d, nil
}

func (h *Handler) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	rows, err := h.orders.All(ctx)
	if err != nil {
		return nil, err
	}
	users, err := h.users.All(ctx)
	if err != nil {
		return nil, err
	}
	newestFirst(rows)

	d := &AdminDashboard{
		TotalOrders:       len(rows),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		ByStatus:          make(map[string]StatusSummary),
		UsersByRole:       make(map[string]int),
		TotalUsers:        len(users),
	}
	earning := 0
	for _, row := range rows {
		s := d.ByStatus[row.Status]
		s.Count++
		s.Revenue = s.Revenue.Add(row.Total)
		d.ByStatus[row.Status] = s
		if earns(row.Status) {
			d.TotalRevenue = d.TotalRevenue.Add(row.Total)
			earning++
		}
	}
	if earning > 0 {
		d.AverageOrderValue = d.TotalRevenue.Div(decimal.NewFromInt(int64(earning))).Round(2)
	}
	for _, u := range users {
		d.UsersByRole[u.Role]++
	}
	d.Recent = rows[:min(len(rows), RecentOrders)]
	return d, nil
}

// User looks up a directory entry.
func (h *Handler) User(ctx context.Context, id string) (*readmodel.UserDirectoryRow, bool, error) {
	u, err := h.users.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
