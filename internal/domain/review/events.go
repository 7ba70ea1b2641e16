package review

import "time"

const (
	EventReviewSubmitted = "ReviewSubmitted"
	EventReviewModerated = "ReviewModerated"
	EventReviewHelpful   = "ReviewMarkedHelpful"
)

type ReviewSubmitted struct {
	ReviewID    string    `json:"review_id"`
	BookID      string    `json:"book_id"`
	CustomerID  string    `json:"customer_id"`
	Rating      int       `json:"rating"`
	Verified    bool      `json:"verified"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ReviewModerated struct {
	ReviewID    string    `json:"review_id"`
	BookID      string    `json:"book_id"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	ModeratedBy string    `json:"moderated_by"`
	ModeratedAt time.Time `json:"moderated_at"`
}

type ReviewMarkedHelpful struct {
	ReviewID     string `json:"review_id"`
	UserID       string `json:"user_id"`
	HelpfulCount int    `json:"helpful_count"`
}
