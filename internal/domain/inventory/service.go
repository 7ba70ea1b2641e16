package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
)

// Stock is tracked on the book documents themselves.
const AggregateType = book.AggregateType

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// InsufficientStockError reports how many units of a book remain.
type InsufficientStockError struct {
	BookID    string
	Title     string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d items available in stock", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Line is a quantity of one book moving in or out of stock.
type Line struct {
	BookID   string
	Quantity int
}

// Invalidator drops cached copies of books whose stock changed.
type Invalidator interface {
	Invalidate(id string)
}

type Service struct {
	books      *store.Collection[book.Book]
	eventStore store.EventStoreInterface
	cache      Invalidator
}

func NewService(docs store.DocumentStore, es store.EventStoreInterface, cache Invalidator) *Service {
	return &Service{
		books:      store.NewCollection[book.Book](docs, book.Collection),
		eventStore: es,
		cache:      cache,
	}
}

// Reserve takes every line out of stock and counts the sale, or none of them.
// The stock check runs inside each book's atomic update.
func (s *Service) Reserve(ctx context.Context, orderID string, lines []Line) error {
	for _, line := range lines {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}

	applied := make([]Line, 0, len(lines))
	reserved := make([]StockReserved, 0, len(lines))
	for _, line := range lines {
		b, err := s.books.Update(ctx, line.BookID, func(b *book.Book) error {
			if !b.IsActive {
				return book.ErrBookNotFound
			}
			if !b.HasStockFor(line.Quantity) {
				return &InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock}
			}
			if !b.IsDigital {
				b.Stock -= line.Quantity
			}
			b.TotalSales += line.Quantity
			return nil
		})
		if errors.Is(err, store.ErrNotFound) {
			err = book.ErrBookNotFound
		}
		if err != nil {
			s.compensate(ctx, orderID, applied)
			return fmt.Errorf("reserve %s: %w", line.BookID, err)
		}
		s.invalidate(line.BookID)
		applied = append(applied, line)
		reserved = append(reserved, StockReserved{
			OrderID:    orderID,
			BookID:     line.BookID,
			Quantity:   line.Quantity,
			Remaining:  b.Stock,
			IsDigital:  b.IsDigital,
			ReservedAt: time.Now().UTC(),
		})
	}

	for _, event := range reserved {
		store.Record(ctx, s.eventStore, event.BookID, AggregateType, EventStockReserved, event)
	}
	return nil
}

// compensate undoes lines already reserved by a checkout that failed part way.
func (s *Service) compensate(ctx context.Context, orderID string, applied []Line) {
	for _, line := range applied {
		if _, err := s.restore(ctx, line); err != nil {
			log.Error().Err(err).
				Str("component", "inventory").
				Str("order_id", orderID).
				Str("book_id", line.BookID).
				Int("quantity", line.Quantity).
				Msg("failed to compensate stock reservation")
		}
	}
}

// Release puts every line back into stock and reverses its sale count.
// It keeps going past failing lines and returns them joined.
func (s *Service) Release(ctx context.Context, orderID, reason string, lines []Line) error {
	var errs []error
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		b, err := s.restore(ctx, line)
		if err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", line.BookID, err))
			continue
		}
		store.Record(ctx, s.eventStore, line.BookID, AggregateType, EventStockReleased, StockReleased{
			OrderID:    orderID,
			BookID:     line.BookID,
			Quantity:   line.Quantity,
			Remaining:  b.Stock,
			IsDigital:  b.IsDigital,
			Reason:     reason,
			ReleasedAt: time.Now().UTC(),
		})
	}
	return errors.Join(errs...)
}

func (s *Service) restore(ctx context.Context, line Line) (*book.Book, error) {
	b, err := s.books.Update(ctx, line.BookID, func(b *book.Book) error {
		if !b.IsDigital {
			b.Stock += line.Quantity
		}
		b.TotalSales -= line.Quantity
		if b.TotalSales < 0 {
			b.TotalSales = 0
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, book.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(line.BookID)
	return b, nil
}

func (s *Service) invalidate(id string) {
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
}
