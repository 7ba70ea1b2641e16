package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	BookID   string `json:"bookId" binding:"required"`
	Quantity int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// respondCart answers a cart mutation with the freshly priced cart
func (h *Handlers) respondCart(c *gin.Context, status int, message string) {
	view, err := h.carts.View(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"message": message, "cart": view})
}

// GetCart handles GET /api/cart
func (h *Handlers) GetCart(c *gin.Context) {
	view, err := h.carts.View(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CartCount handles GET /api/cart/count
func (h *Handlers) CartCount(c *gin.Context) {
	n, err := h.carts.Count(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// AddToCart handles POST /api/cart/add. Quantity defaults to one.
func (h *Handlers) AddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if _, err := h.carts.AddItem(c.Request.Context(), principal(c).UserID, req.BookID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	h.respondCart(c, http.StatusOK, "Item added to cart")
}

// UpdateCartItem handles PUT /api/cart/update/:itemId
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if _, err := h.carts.UpdateItem(c.Request.Context(), principal(c).UserID, c.Param("itemId"), req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	h.respondCart(c, http.StatusOK, "Cart updated")
}

// RemoveFromCart handles DELETE /api/cart/remove/:itemId
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	if _, err := h.carts.RemoveItem(c.Request.Context(), principal(c).UserID, c.Param("itemId")); err != nil {
		respondError(c, err)
		return
	}
	h.respondCart(c, http.StatusOK, "Item removed from cart")
}

// ClearCart handles DELETE /api/cart/clear
func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), principal(c).UserID, "cleared by customer"); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Cart cleared")
}

// MoveToWishlist handles POST /api/cart/move-to-wishlist/:itemId
func (h *Handlers) MoveToWishlist(c *gin.Context) {
	if _, err := h.carts.MoveToWishlist(c.Request.Context(), principal(c).UserID, c.Param("itemId")); err != nil {
		respondError(c, err)
		return
	}
	h.respondCart(c, http.StatusOK, "Item moved to wishlist")
}
