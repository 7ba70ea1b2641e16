package api

import (
	"net/http"

	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/domain/review"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type bookListQuery struct {
	Page     int      `form:"page" binding:"omitempty,min=1"`
	Limit    int      `form:"limit" binding:"omitempty,min=1"`
	Category string   `form:"category"`
	MinPrice *float64 `form:"minPrice" binding:"omitempty,min=0"`
	MaxPrice *float64 `form:"maxPrice" binding:"omitempty,min=0"`
	Author   string   `form:"author"`
	Search   string   `form:"search"`
	Featured bool     `form:"featured"`
	InStock  bool     `form:"inStock"`
	Sort     string   `form:"sort" binding:"omitempty,oneof=price rating popularity title createdAt relevance"`
	Order    string   `form:"order" binding:"omitempty,oneof=asc desc"`
	Status   string   `form:"status" binding:"omitempty,oneof=active inactive"`
}

func (q bookListQuery) toQuery() book.Query {
	out := book.Query{
		Page:     q.Page,
		Limit:    q.Limit,
		Category: q.Category,
		Author:   q.Author,
		Search:   q.Search,
		Featured: q.Featured,
		InStock:  q.InStock,
		Sort:     q.Sort,
		Order:    q.Order,
	}
	if q.MinPrice != nil {
		v := decimal.NewFromFloat(*q.MinPrice)
		out.MinPrice = &v
	}
	if q.MaxPrice != nil {
		v := decimal.NewFromFloat(*q.MaxPrice)
		out.MaxPrice = &v
	}
	return out
}

type createBookRequest struct {
	Title         string           `json:"title" binding:"required"`
	Author        string           `json:"author" binding:"required"`
	Description   string           `json:"description" binding:"required"`
	Category      string           `json:"category" binding:"required"`
	Tags          []string         `json:"tags"`
	ImageURL      string           `json:"imageURL"`
	PDFURL        string           `json:"pdfURL"`
	Price         *decimal.Decimal `json:"price" binding:"required"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Stock         int              `json:"stock" binding:"min=0"`
	IsDigital     bool             `json:"isDigital"`
	Featured      bool             `json:"featured"`
}

type updateBookRequest struct {
	Title         *string          `json:"title"`
	Author        *string          `json:"author"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category"`
	Tags          *[]string        `json:"tags"`
	ImageURL      *string          `json:"imageURL"`
	PDFURL        *string          `json:"pdfURL"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Stock         *int             `json:"stock"`
	IsDigital     *bool            `json:"isDigital"`
	Featured      *bool            `json:"featured"`
	IsActive      *bool            `json:"isActive"`
}

type createReviewRequest struct {
	Rating  int      `json:"rating" binding:"required,min=1,max=5"`
	Title   string   `json:"title" binding:"required"`
	Content string   `json:"content" binding:"required"`
	Pros    []string `json:"pros"`
	Cons    []string `json:"cons"`
}

// bookDetail is a book with the labels derived from its price and stock
type bookDetail struct {
	*book.Book
	DiscountPercentage int    `json:"discountPercentage"`
	Availability       string `json:"availability"`
}

func detail(b *book.Book) bookDetail {
	return bookDetail{Book: b, DiscountPercentage: b.DiscountPercentage(), Availability: b.Availability()}
}

// ListBooks handles GET /api/books
func (h *Handlers) ListBooks(c *gin.Context) {
	var q bookListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.books.List(c.Request.Context(), q.toQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SearchBooks handles GET /api/books/search?q=
func (h *Handlers) SearchBooks(c *gin.Context) {
	var q bookListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	query := q.toQuery()
	query.Search = c.Query("q")

	page, err := h.books.Search(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetBook handles GET /api/books/:id. Every hit counts as a view.
func (h *Handlers) GetBook(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := h.books.View(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	reviews, err := h.reviews.Approved(ctx, b.ID, review.DefaultBookLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	related, err := h.books.Related(ctx, b)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"book":         detail(b),
		"reviews":      reviews,
		"relatedBooks": related,
	})
}

// CreateBook handles POST /api/books
func (h *Handlers) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := book.CreateInput{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
		PDFURL:      req.PDFURL,
		Price:       *req.Price,
		Stock:       req.Stock,
		IsDigital:   req.IsDigital,
		Featured:    req.Featured,
	}
	in.OriginalPrice = in.Price
	if req.OriginalPrice != nil {
		in.OriginalPrice = *req.OriginalPrice
	}

	b, err := h.books.Create(c.Request.Context(), principal(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Book created successfully", "book": detail(b)})
}

// UpdateBook handles PUT /api/books/:id
func (h *Handlers) UpdateBook(c *gin.Context) {
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	b, err := h.books.Update(c.Request.Context(), principal(c), c.Param("id"), book.Patch{
		Title:         req.Title,
		Author:        req.Author,
		Description:   req.Description,
		Category:      req.Category,
		Tags:          req.Tags,
		ImageURL:      req.ImageURL,
		PDFURL:        req.PDFURL,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Stock:         req.Stock,
		IsDigital:     req.IsDigital,
		Featured:      req.Featured,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book updated successfully", "book": detail(b)})
}

// DeleteBook handles DELETE /api/books/:id
func (h *Handlers) DeleteBook(c *gin.Context) {
	if err := h.books.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Book deleted successfully")
}

// MyBooks handles GET /api/books/my: the caller's listings in any state plus a sales summary
func (h *Handlers) MyBooks(c *gin.Context) {
	var q bookListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	p := principal(c)

	query := q.toQuery()
	query.SellerID = p.UserID
	query.Status = q.Status
	query.IncludeInactive = q.Status == ""

	page, err := h.books.List(ctx, query)
	if err != nil {
		respondError(c, err)
		return
	}
	owned, err := h.books.BySeller(ctx, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books":      page.Books,
		"pagination": page.Pagination,
		"summary":    book.Summarize(owned),
	})
}

// SellerBooks handles GET /api/books/seller/:sellerId
func (h *Handlers) SellerBooks(c *gin.Context) {
	var q bookListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	query := q.toQuery()
	query.SellerID = c.Param("sellerId")

	page, err := h.books.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// BookReviews handles GET /api/books/:id/reviews
func (h *Handlers) BookReviews(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := h.books.GetActive(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	reviews, err := h.reviews.Approved(ctx, b.ID, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews":       reviews,
		"averageRating": b.AverageRating,
		"reviewCount":   b.ReviewCount,
	})
}

// CreateReview handles POST /api/books/:id/reviews
func (h *Handlers) CreateReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	r, err := h.reviews.Create(c.Request.Context(), principal(c), c.Param("id"), review.CreateInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Content: req.Content,
		Pros:    req.Pros,
		Cons:    req.Cons,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review submitted for moderation", "review": r})
}
