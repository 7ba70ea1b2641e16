package cart

import "time"

const (
	EventItemAdded         = "ItemAddedToCart"
	EventItemUpdated       = "CartItemUpdated"
	EventItemRemoved       = "ItemRemovedFromCart"
	EventCartCleared       = "CartCleared"
	EventItemMovedWishlist = "ItemMovedToWishlist"
)

type ItemAddedToCart struct {
	UserID   string    `json:"user_id"`
	ItemID   string    `json:"item_id"`
	BookID   string    `json:"book_id"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

type CartItemUpdated struct {
	UserID   string `json:"user_id"`
	ItemID   string `json:"item_id"`
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type ItemRemovedFromCart struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	BookID string `json:"book_id"`
}

type CartCleared struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	ClearedAt time.Time `json:"cleared_at"`
}

type ItemMovedToWishlist struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	BookID string `json:"book_id"`
}
