package api

import (
	"net/http"

	"github.com/example/bookstore/internal/domain/review"
	"github.com/gin-gonic/gin"
)

type moderateReviewRequest struct {
	Status review.Status `json:"status" binding:"required"`
}

// ModerateReview handles PUT /api/reviews/:id/moderate
func (h *Handlers) ModerateReview(c *gin.Context) {
	var req moderateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	r, err := h.reviews.Moderate(c.Request.Context(), principal(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review moderated", "review": r})
}

// MarkReviewHelpful handles POST /api/reviews/:id/helpful
func (h *Handlers) MarkReviewHelpful(c *gin.Context) {
	r, err := h.reviews.MarkHelpful(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review marked as helpful", "helpfulCount": r.HelpfulCount})
}
