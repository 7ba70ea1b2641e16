package book

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventBookCreated   = "BookCreated"
	EventBookUpdated   = "BookUpdated"
	EventBookDeleted   = "BookDeleted"
	EventRatingChanged = "BookRatingChanged"
)

type BookCreated struct {
	BookID    string          `json:"book_id"`
	SellerID  string          `json:"seller_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsDigital bool            `json:"is_digital"`
	CreatedAt time.Time       `json:"created_at"`
}

type BookUpdated struct {
	BookID    string    `json:"book_id"`
	Fields    []string  `json:"fields"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BookDeleted struct {
	BookID    string    `json:"book_id"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}

type RatingChanged struct {
	BookID        string  `json:"book_id"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}
