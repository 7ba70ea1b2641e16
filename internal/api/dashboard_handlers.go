package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SellerDashboard handles GET /api/dashboard/seller
func (h *Handlers) SellerDashboard(c *gin.Context) {
	dashboard, err := h.queryHandler.SellerDashboard(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// AdminDashboard handles GET /api/dashboard/admin
func (h *Handlers) AdminDashboard(c *gin.Context) {
	dashboard, err := h.queryHandler.AdminDashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// DirectoryUser handles GET /api/dashboard/users/:id
func (h *Handlers) DirectoryUser(c *gin.Context) {
	row, found, err := h.queryHandler.User(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, row)
}
