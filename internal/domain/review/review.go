package review

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

const (
	AggregateType    = "Review"
	Collection       = "reviews"
	AuthorCollection = "review_authors"
	MaxTitleLength   = 100
	MaxContentLength = 2000
	DefaultBookLimit = 10
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusHidden   Status = "hidden"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusHidden:
		return true
	}
	return false
}

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidTitle    = errors.New("title is required and must be at most 100 characters")
	ErrInvalidContent  = errors.New("content is required and must be at most 2000 characters")
	ErrInvalidStatus   = errors.New("invalid review status")
	ErrAlreadyReviewed = errors.New("you have already reviewed this book")
	ErrOwnReview       = errors.New("you cannot mark your own review as helpful")
	ErrAlreadyMarked   = errors.New("review already marked helpful")
)

type Review struct {
	ID           string    `json:"id"`
	BookID       string    `json:"bookId"`
	CustomerID   string    `json:"customerId"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Pros         []string  `json:"pros,omitempty"`
	Cons         []string  `json:"cons,omitempty"`
	Status       Status    `json:"status"`
	Verified     bool      `json:"verified"`
	HelpfulCount int       `json:"helpfulCount"`
	HelpfulBy    []string  `json:"helpfulBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// View adds the relative age shown next to a review.
type View struct {
	*Review
	Age string `json:"reviewAge"`
}

func (r *Review) View(now time.Time) View {
	return View{Review: r, Age: humanize.RelTime(r.CreatedAt, now, "ago", "from now")}
}

func authorKey(bookID, customerID string) string {
	return bookID + ":" + customerID
}

type author struct {
	ReviewID string `json:"reviewId"`
}

func validate(rating int, title, content string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return ErrInvalidContent
	}
	return nil
}
