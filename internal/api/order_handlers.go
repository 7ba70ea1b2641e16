package api

import (
	"net/http"

	"github.com/example/bookstore/internal/command"
	"github.com/example/bookstore/internal/domain/order"
	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   struct {
		Type    order.PaymentType    `json:"type" binding:"required"`
		Details order.PaymentDetails `json:"details"`
	} `json:"paymentMethod"`
	Notes string `json:"notes"`
}

type orderListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Status string `form:"status"`
}

func (q orderListQuery) toQuery() order.ListQuery {
	return order.ListQuery{Page: q.Page, Limit: q.Limit, Status: order.Status(q.Status)}
}

// adminOrderListQuery adds the filters only the all-orders listing accepts
type adminOrderListQuery struct {
	orderListQuery
	SellerID   string `form:"sellerId"`
	CustomerID string `form:"customerId"`
}

func (q adminOrderListQuery) toQuery() order.ListQuery {
	out := q.orderListQuery.toQuery()
	out.SellerID = q.SellerID
	out.CustomerID = q.CustomerID
	return out
}

type updateStatusRequest struct {
	Status         order.Status `json:"status" binding:"required"`
	Note           string       `json:"note"`
	TrackingNumber string       `json:"trackingNumber"`
	Carrier        string       `json:"carrier"`
}

// CreateOrder handles POST /api/orders/create: checkout of the caller's cart
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.cmdHandler.Checkout(c.Request.Context(), command.Checkout{
		Customer:        principal(c),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod: order.PaymentMethod{
			Type:    req.PaymentMethod.Type,
			Details: req.PaymentMethod.Details,
		},
		CustomerNote: req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": o.View()})
}

// MyOrders handles GET /api/orders/my-orders
func (h *Handlers) MyOrders(c *gin.Context) {
	var q orderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.orders.ListByCustomer(c.Request.Context(), principal(c).UserID, q.toQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SellerOrders handles GET /api/orders/seller/orders. Orders are trimmed to the
// seller's own lines and come with the per-status summary.
func (h *Handlers) SellerOrders(c *gin.Context) {
	var q orderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	sellerID := principal(c).UserID

	page, err := h.orders.ListForSeller(ctx, sellerID, q.toQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	dashboard, err := h.queryHandler.SellerDashboard(ctx, sellerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":     page.Orders,
		"pagination": page.Pagination,
		"summary":    dashboard.ByStatus,
	})
}

// AllOrders handles GET /api/orders/admin/all-orders
func (h *Handlers) AllOrders(c *gin.Context) {
	var q adminOrderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()

	page, err := h.orders.ListAll(ctx, q.toQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := h.queryHandler.AdminDashboard(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":     page.Orders,
		"pagination": page.Pagination,
		"statistics": stats,
	})
}

// GetOrder handles GET /api/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	o, err := h.orders.GetFor(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o.View()})
}

// UpdateOrderStatus handles PUT /api/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	upd := order.StatusUpdate{Status: req.Status, Note: req.Note}
	if req.TrackingNumber != "" || req.Carrier != "" {
		upd.Tracking = &order.Tracking{TrackingNumber: req.TrackingNumber, Carrier: req.Carrier}
	}

	o, err := h.cmdHandler.UpdateOrderStatus(c.Request.Context(), command.UpdateOrderStatus{
		Actor:   principal(c),
		OrderID: c.Param("id"),
		Update:  upd,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": o.View()})
}

// CancelOrder handles PUT /api/orders/:id/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	o, err := h.cmdHandler.CancelOrder(c.Request.Context(), command.CancelOrder{
		Actor:   principal(c),
		OrderID: c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": o.View()})
}
