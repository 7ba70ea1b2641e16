package cart

import (
	"slices"
	"time"
)

const (
	AggregateType = "Cart"
	Collection    = "carts"
)

// Item is one book line. A cart holds at most one item per book.
type Item struct {
	ID       string    `json:"id"`
	BookID   string    `json:"bookId"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"addedAt"`
}

// Cart is keyed by the owning user's id.
type Cart struct {
	UserID    string    `json:"userId"`
	Items     []Item    `json:"items"`
	Wishlist  []string  `json:"wishlist"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Cart) itemIndex(itemID string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ID == itemID })
}

func (c *Cart) bookIndex(bookID string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.BookID == bookID })
}

// Count is the total quantity across all items.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
