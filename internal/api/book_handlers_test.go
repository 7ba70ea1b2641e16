package api

import (
	"net/http"
	"testing"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/domain/review"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func newBookBody() gin.H {
	return gin.H{
		"title":       "Dune",
		"author":      "Frank Herbert",
		"description": "A desert planet",
		"category":    "Science Fiction",
		"price":       12.5,
		"stock":       4,
		"tags":        []string{"classic"},
	}
}

// ============================================
// Create / Update / Delete Tests
// ============================================

func TestCreateBook(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, seller, http.MethodPost, "/api/books", newBookBody())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[struct {
		Book bookDetail `json:"book"`
	}](t, rec).Book
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, seller.UserID, got.SellerID)
	assert.Equal(t, "12.50", got.Price.StringFixed(2))
	assert.Equal(t, "12.50", got.OriginalPrice.StringFixed(2))
	assert.True(t, got.IsActive)
	assert.Equal(t, "low_stock", got.Availability)
}

func TestCreateBook_Rejections(t *testing.T) {
	f := newTestServer(t)

	missingPrice := newBookBody()
	delete(missingPrice, "price")
	negativeStock := newBookBody()
	negativeStock["stock"] = -1
	negativePrice := newBookBody()
	negativePrice["price"] = -3

	tests := []struct {
		name string
		as   auth.Principal
		body gin.H
		want int
	}{
		{"anonymous", auth.Principal{}, newBookBody(), http.StatusUnauthorized},
		{"customer lacks book:write", customer, newBookBody(), http.StatusForbidden},
		{"missing price", seller, missingPrice, http.StatusBadRequest},
		{"negative stock", seller, negativeStock, http.StatusBadRequest},
		{"negative price", seller, negativePrice, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.as, http.MethodPost, "/api/books", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestUpdateBook_Ownership(t *testing.T) {
	f := newTestServer(t)
	b := f.addBook(t, seller, "Dune", "10.00", 5)
	patch := gin.H{"price": "8.99", "stock": 9}

	rec := f.do(t, rival, http.MethodPut, "/api/books/"+b.ID, patch)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, seller, http.MethodPut, "/api/books/"+b.ID, patch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[struct {
		Book bookDetail `json:"book"`
	}](t, rec).Book
	assert.Equal(t, "8.99", got.Price.StringFixed(2))
	assert.Equal(t, 9, got.Stock)
	assert.Equal(t, "Dune", got.Title)

	rec = f.do(t, admin, http.MethodPut, "/api/books/"+b.ID, gin.H{"featured": true})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteBook(t *testing.T) {
	f := newTestServer(t)
	b := f.addBook(t, seller, "Dune", "10.00", 5)

	rec := f.do(t, seller, http.MethodDelete, "/api/books/"+b.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, auth.Principal{}, http.MethodGet, "/api/books/"+b.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================
// Catalog Query Tests
// ============================================

func TestListBooks(t *testing.T) {
	f := newTestServer(t)
	f.addBook(t, seller, "Dune", "10.00", 5)
	f.addBook(t, seller, "Hyperion", "20.00", 0)
	f.addBook(t, rival, "Foundation", "30.00", 2)

	tests := []struct {
		name   string
		query  string
		titles []string
	}{
		{"price ascending", "?sort=price&order=asc", []string{"Dune", "Hyperion", "Foundation"}},
		{"price range", "?minPrice=15&maxPrice=25", []string{"Hyperion"}},
		{"in stock only", "?inStock=true&sort=title&order=asc", []string{"Dune", "Foundation"}},
		{"paged", "?sort=price&order=asc&page=2&limit=2", []string{"Foundation"}},
		{"price descending", "?sort=price&order=desc", []string{"Foundation", "Hyperion", "Dune"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, auth.Principal{}, http.MethodGet, "/api/books"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			page := decode[book.Page](t, rec)
			var titles []string
			for _, b := range page.Books {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestListBooks_BadQuery(t *testing.T) {
	f := newTestServer(t)

	for _, query := range []string{"?order=sideways", "?sort=weight", "?status=archived"} {
		t.Run(query, func(t *testing.T) {
			rec := f.do(t, auth.Principal{}, http.MethodGet, "/api/books"+query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchBooks(t *testing.T) {
	f := newTestServer(t)
	f.addBook(t, seller, "Dune Messiah", "10.00", 5)
	f.addBook(t, seller, "Hyperion", "20.00", 5)

	rec := f.do(t, auth.Principal{}, http.MethodGet, "/api/books/search?q=messiah", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[book.Page](t, rec)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "Dune Messiah", page.Books[0].Title)

	rec = f.do(t, auth.Principal{}, http.MethodGet, "/api/books/search?q=%20", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBook_CountsViewAndIncludesRelated(t *testing.T) {
	f := newTestServer(t)
	dune := f.addBook(t, seller, "Dune", "10.00", 5)
	f.addBook(t, seller, "Hyperion", "20.00", 5)

	f.do(t, auth.Principal{}, http.MethodGet, "/api/books/"+dune.ID, nil)
	rec := f.do(t, auth.Principal{}, http.MethodGet, "/api/books/"+dune.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Book         bookDetail    `json:"book"`
		Reviews      []review.View `json:"reviews"`
		RelatedBooks []*book.Book  `json:"relatedBooks"`
	}](t, rec)
	assert.Equal(t, 2, got.Book.Views)
	assert.Empty(t, got.Reviews)
	require.Len(t, got.RelatedBooks, 1)
	assert.Equal(t, "Hyperion", got.RelatedBooks[0].Title)
}

func TestMyBooks_IncludesInactiveAndSummary(t *testing.T) {
	f := newTestServer(t)
	dune := f.addBook(t, seller, "Dune", "10.00", 5)
	f.addBook(t, seller, "Hyperion", "20.00", 5)
	f.addBook(t, rival, "Foundation", "30.00", 5)
	rec := f.do(t, seller, http.MethodPut, "/api/books/"+dune.ID, gin.H{"isActive": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, seller, http.MethodGet, "/api/books/my", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Books   []*book.Book      `json:"books"`
		Summary book.SalesSummary `json:"summary"`
	}](t, rec)
	assert.Len(t, got.Books, 2)
	assert.Equal(t, 2, got.Summary.TotalBooks)
	assert.Equal(t, 1, got.Summary.ActiveBooks)

	rec = f.do(t, seller, http.MethodGet, "/api/books/my?status=inactive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inactive := decode[book.Page](t, rec)
	require.Len(t, inactive.Books, 1)
	assert.Equal(t, dune.ID, inactive.Books[0].ID)

	rec = f.do(t, auth.Principal{}, http.MethodGet, "/api/books/seller/"+seller.UserID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	public := decode[book.Page](t, rec)
	require.Len(t, public.Books, 1)
	assert.Equal(t, "Hyperion", public.Books[0].Title)
}

// ============================================
// Export Tests
// ============================================

func TestExportBooks(t *testing.T) {
	f := newTestServer(t)
	f.addBook(t, seller, "Dune", "10.00", 5)
	f.addBook(t, rival, "Foundation", "30.00", 5)

	tests := []struct {
		name string
		as   auth.Principal
		rows int
	}{
		{"seller exports own books", seller, 2},
		{"admin exports the catalog", admin, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.as, http.MethodGet, "/api/books/export", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=books-")

			file, err := xlsx.OpenBinary(rec.Body.Bytes())
			require.NoError(t, err)
			require.Len(t, file.Sheets, 1)
			sheet := file.Sheets[0]
			assert.Len(t, sheet.Rows, tt.rows)
			assert.Equal(t, "Title", sheet.Rows[0].Cells[1].Value)
		})
	}

	rec := f.do(t, customer, http.MethodGet, "/api/books/export", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ============================================
// Review Tests
// ============================================

func TestReviews_Lifecycle(t *testing.T) {
	f := newTestServer(t)
	b := f.addBook(t, seller, "Dune", "10.00", 5)
	body := gin.H{"rating": 4, "title": "Great", "content": "Spice must flow"}

	rec := f.do(t, customer, http.MethodPost, "/api/books/"+b.ID+"/reviews", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Review review.Review `json:"review"`
	}](t, rec).Review
	assert.Equal(t, review.StatusPending, created.Status)

	rec = f.do(t, customer, http.MethodPost, "/api/books/"+b.ID+"/reviews", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, seller, http.MethodPost, "/api/books/"+b.ID+"/reviews", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, customer, http.MethodPut, "/api/reviews/"+created.ID+"/moderate", gin.H{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, admin, http.MethodPut, "/api/reviews/"+created.ID+"/moderate", gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, auth.Principal{}, http.MethodGet, "/api/books/"+b.ID+"/reviews", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[struct {
		Reviews       []review.View `json:"reviews"`
		AverageRating float64       `json:"averageRating"`
		ReviewCount   int           `json:"reviewCount"`
	}](t, rec)
	require.Len(t, listed.Reviews, 1)
	assert.Equal(t, 4.0, listed.AverageRating)
	assert.Equal(t, 1, listed.ReviewCount)

	rec = f.do(t, customer, http.MethodPost, "/api/reviews/"+created.ID+"/helpful", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, seller, http.MethodPost, "/api/reviews/"+created.ID+"/helpful", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Review marked as helpful","helpfulCount":1}`, rec.Body.String())
}

func TestCreateReview_Validation(t *testing.T) {
	f := newTestServer(t)
	b := f.addBook(t, seller, "Dune", "10.00", 5)

	rec := f.do(t, customer, http.MethodPost, "/api/books/"+b.ID+"/reviews", gin.H{"rating": 6, "title": "x", "content": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, customer, http.MethodPost, "/api/books/missing/reviews", gin.H{"rating": 5, "title": "x", "content": "y"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
