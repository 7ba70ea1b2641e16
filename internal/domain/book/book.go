package book

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AggregateType = "Book"
	Collection    = "books"
)

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrInvalidTitle       = errors.New("title is required")
	ErrInvalidAuthor      = errors.New("author is required")
	ErrInvalidCategory    = errors.New("category is required")
	ErrInvalidDescription = errors.New("description is required")
	ErrInvalidPrice       = errors.New("price must not be negative")
	ErrInvalidStock       = errors.New("stock must not be negative")
	ErrNotOwner           = errors.New("only the seller who listed the book or an admin may change it")
	ErrEmptySearch        = errors.New("search query is required")
)

type Book struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Tags          []string        `json:"tags,omitempty"`
	ImageURL      string          `json:"imageURL,omitempty"`
	PDFURL        string          `json:"pdfURL,omitempty"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Stock         int             `json:"stock"`
	IsDigital     bool            `json:"isDigital"`
	SellerID      string          `json:"sellerId"`
	Featured      bool            `json:"featured"`
	IsActive      bool            `json:"isActive"`
	TotalSales    int             `json:"totalSales"`
	Views         int             `json:"views"`
	AverageRating float64         `json:"averageRating"`
	ReviewCount   int             `json:"reviewCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// HasStockFor reports whether qty units can be sold. Digital books always can.
func (b *Book) HasStockFor(qty int) bool {
	return b.IsDigital || b.Stock >= qty
}

// InStock is true for digital books and physical books with units left.
func (b *Book) InStock() bool {
	return b.IsDigital || b.Stock > 0
}

// DiscountPercentage is the whole-percent markdown from originalPrice.
func (b *Book) DiscountPercentage() int {
	if !b.OriginalPrice.GreaterThan(b.Price) || b.OriginalPrice.IsZero() {
		return 0
	}
	pct := b.OriginalPrice.Sub(b.Price).Div(b.OriginalPrice).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

// Availability is a human-readable stock label.
func (b *Book) Availability() string {
	switch {
	case b.IsDigital:
		return "available"
	case b.Stock == 0:
		return "out_of_stock"
	case b.Stock <= 5:
		return "low_stock"
	default:
		return "in_stock"
	}
}

func (b *Book) validate() error {
	switch {
	case strings.TrimSpace(b.Title) == "":
		return ErrInvalidTitle
	case strings.TrimSpace(b.Author) == "":
		return ErrInvalidAuthor
	case strings.TrimSpace(b.Category) == "":
		return ErrInvalidCategory
	case strings.TrimSpace(b.Description) == "":
		return ErrInvalidDescription
	case b.Price.IsNegative() || b.OriginalPrice.IsNegative():
		return ErrInvalidPrice
	case b.Stock < 0:
		return ErrInvalidStock
	}
	return nil
}
