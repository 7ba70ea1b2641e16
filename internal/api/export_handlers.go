package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/domain/book"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeaders = []string{
	"ID", "Title", "Author", "Category", "Tags", "Price", "OriginalPrice",
	"Stock", "IsDigital", "IsActive", "TotalSales", "Views", "AverageRating",
	"ReviewCount", "SellerID", "CreatedAt", "UpdatedAt",
}

// buildCatalogWorkbook writes one row per book under a header row
func buildCatalogWorkbook(books []*book.Book) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Books")
	if err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, b := range books {
		row := sheet.AddRow()
		row.AddCell().SetValue(b.ID)
		row.AddCell().SetValue(b.Title)
		row.AddCell().SetValue(b.Author)
		row.AddCell().SetValue(b.Category)
		row.AddCell().SetValue(strings.Join(b.Tags, ","))
		row.AddCell().SetValue(b.Price.StringFixed(2))
		row.AddCell().SetValue(b.OriginalPrice.StringFixed(2))
		row.AddCell().SetValue(b.Stock)
		row.AddCell().SetValue(b.IsDigital)
		row.AddCell().SetValue(b.IsActive)
		row.AddCell().SetValue(b.TotalSales)
		row.AddCell().SetValue(b.Views)
		row.AddCell().SetValue(b.AverageRating)
		row.AddCell().SetValue(b.ReviewCount)
		row.AddCell().SetValue(b.SellerID)
		row.AddCell().SetValue(b.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(b.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

// ExportBooks handles GET /api/books/export. Sellers get their own listings,
// admins get the whole catalog.
func (h *Handlers) ExportBooks(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)

	var (
		books []*book.Book
		err   error
	)
	if p.Can(auth.CapBookManageAny) {
		books, err = h.books.All(ctx)
	} else {
		books, err = h.books.BySeller(ctx, p.UserID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := buildCatalogWorkbook(books)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("books-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Expires", "0")

	if err := file.Write(c.Writer); err != nil {
		respondError(c, fmt.Errorf("write workbook: %w", err))
		return
	}
}
