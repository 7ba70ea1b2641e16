package cart

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/domain/inventory"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemNotFound    = errors.New("cart item not found")
)

// BookReader looks up listed books.
type BookReader interface {
	GetActive(ctx context.Context, id string) (*book.Book, error)
}

type Service struct {
	carts      *store.Collection[Cart]
	books      BookReader
	eventStore store.EventStoreInterface
}

func NewService(docs store.DocumentStore, books BookReader, es store.EventStoreInterface) *Service {
	return &Service{
		carts:      store.NewCollection[Cart](docs, Collection),
		books:      books,
		eventStore: es,
	}
}

// Get returns the user's cart, empty if they never had one.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &Cart{UserID: userID, Items: []Item{}, Wishlist: []string{}}, nil
	}
	return c, err
}

// mutate atomically applies fn to the user's cart, creating it on first use.
func (s *Service) mutate(ctx context.Context, userID string, fn func(*Cart) error) (*Cart, error) {
	update := func(c *Cart) error {
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()
		return nil
	}

	c, err := s.carts.Update(ctx, userID, update)
	if !errors.Is(err, store.ErrNotFound) {
		return c, err
	}
	err = s.carts.Create(ctx, userID, &Cart{UserID: userID, Items: []Item{}, Wishlist: []string{}})
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return nil, err
	}
	return s.carts.Update(ctx, userID, update)
}

func stockError(b *book.Book) error {
	return &inventory.InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock}
}

// AddItem adds qty of a book, merging with an existing line for the same book.
func (s *Service) AddItem(ctx context.Context, userID, bookID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	b, err := s.books.GetActive(ctx, bookID)
	if err != nil {
		return nil, err
	}

	var added Item
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		now := time.Now().UTC()
		if i := c.bookIndex(bookID); i >= 0 {
			total := c.Items[i].Quantity + qty
			if !b.HasStockFor(total) {
				return stockError(b)
			}
			c.Items[i].Quantity = total
			c.Items[i].AddedAt = now
			added = c.Items[i]
			return nil
		}
		if !b.HasStockFor(qty) {
			return stockError(b)
		}
		added = Item{ID: uuid.New().String(), BookID: bookID, Quantity: qty, AddedAt: now}
		c.Items = append(c.Items, added)
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Record(ctx, s.eventStore, userID, AggregateType, EventItemAdded, ItemAddedToCart{
		UserID:   userID,
		ItemID:   added.ID,
		BookID:   bookID,
		Quantity: qty,
		AddedAt:  added.AddedAt,
	})
	return c, nil
}

// UpdateItem sets a line's quantity.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := current.itemIndex(itemID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	bookID := current.Items[i].BookID
	b, err := s.books.GetActive(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !b.HasStockFor(qty) {
		return nil, stockError(b)
	}

	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		i := c.itemIndex(itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items[i].Quantity = qty
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Record(ctx, s.eventStore, userID, AggregateType, EventItemUpdated, CartItemUpdated{
		UserID:   userID,
		ItemID:   itemID,
		BookID:   bookID,
		Quantity: qty,
	})
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*Cart, error) {
	var removed Item
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		i := c.itemIndex(itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		removed = c.Items[i]
		c.Items = slices.Delete(c.Items, i, i+1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Record(ctx, s.eventStore, userID, AggregateType, EventItemRemoved, ItemRemovedFromCart{
		UserID: userID,
		ItemID: itemID,
		BookID: removed.BookID,
	})
	return c, nil
}

// Clear empties the cart and keeps the wishlist.
func (s *Service) Clear(ctx context.Context, userID, reason string) error {
	now := time.Now().UTC()
	_, err := s.mutate(ctx, userID, func(c *Cart) error {
		c.Items = []Item{}
		return nil
	})
	if err != nil {
		return err
	}

	store.Record(ctx, s.eventStore, userID, AggregateType, EventCartCleared, CartCleared{
		UserID:    userID,
		Reason:    reason,
		ClearedAt: now,
	})
	return nil
}

// MoveToWishlist removes a line and remembers its book on the wishlist.
func (s *Service) MoveToWishlist(ctx context.Context, userID, itemID string) (*Cart, error) {
	var moved Item
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		i := c.itemIndex(itemID)
		if i < 0 {
			return ErrItemNotFound
		}
		moved = c.Items[i]
		c.Items = slices.Delete(c.Items, i, i+1)
		if !slices.Contains(c.Wishlist, moved.BookID) {
			c.Wishlist = append(c.Wishlist, moved.BookID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Record(ctx, s.eventStore, userID, AggregateType, EventItemMovedWishlist, ItemMovedToWishlist{
		UserID: userID,
		ItemID: itemID,
		BookID: moved.BookID,
	})
	return c, nil
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// ViewItem is a cart line joined with its current book.
type ViewItem struct {
	ID           string          `json:"id"`
	Book         *book.Book      `json:"book"`
	Quantity     int             `json:"quantity"`
	ItemSubtotal decimal.Decimal `json:"itemSubtotal"`
	IsAvailable  bool            `json:"isAvailable"`
	AddedAt      time.Time       `json:"addedAt"`
}

type ViewSummary struct {
	pricing.Summary
	HasUnavailableItems bool `json:"hasUnavailableItems"`
}

type View struct {
	Items    []ViewItem  `json:"items"`
	Wishlist []string    `json:"wishlist"`
	Summary  ViewSummary `json:"summary"`
}

// View prices the cart against current book records. Lines whose book is
// gone or unlisted are left out.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	v := &View{Items: make([]ViewItem, 0, len(c.Items)), Wishlist: c.Wishlist}
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		b, err := s.books.GetActive(ctx, it.BookID)
		if errors.Is(err, book.ErrBookNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		line := pricing.Line{Price: b.Price, OriginalPrice: b.OriginalPrice, Quantity: it.Quantity}
		available := b.HasStockFor(it.Quantity)
		v.Items = append(v.Items, ViewItem{
			ID:           it.ID,
			Book:         b,
			Quantity:     it.Quantity,
			ItemSubtotal: line.Subtotal(),
			IsAvailable:  available,
			AddedAt:      it.AddedAt,
		})
		if !available {
			v.Summary.HasUnavailableItems = true
		}
		lines = append(lines, line)
	}
	v.Summary.Summary = pricing.Compute(lines)
	return v, nil
}
