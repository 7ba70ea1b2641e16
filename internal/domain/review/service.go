package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/google/uuid"
)

// Books is the slice of the catalog reviews depend on.
type Books interface {
	GetActive(ctx context.Context, id string) (*book.Book, error)
	SetRating(ctx context.Context, id string, average float64, count int) error
}

// Purchases answers whether a customer received a book.
type Purchases interface {
	HasDelivered(ctx context.Context, customerID, bookID string) (bool, error)
}

type Service struct {
	reviews    *store.Collection[Review]
	authors    *store.Collection[author]
	books      Books
	purchases  Purchases
	eventStore store.EventStoreInterface
}

func NewService(docs store.DocumentStore, books Books, purchases Purchases, es store.EventStoreInterface) *Service {
	return &Service{
		reviews:    store.NewCollection[Review](docs, Collection),
		authors:    store.NewCollection[author](docs, AuthorCollection),
		books:      books,
		purchases:  purchases,
		eventStore: es,
	}
}

type CreateInput struct {
	Rating  int
	Title   string
	Content string
	Pros    []string
	Cons    []string
}

// Create submits a review for moderation. One review per customer and book.
func (s *Service) Create(ctx context.Context, actor auth.Principal, bookID string, in CreateInput) (*Review, error) {
	if err := validate(in.Rating, in.Title, in.Content); err != nil {
		return nil, err
	}
	if _, err := s.books.GetActive(ctx, bookID); err != nil {
		return nil, err
	}
	verified, err := s.purchases.HasDelivered(ctx, actor.UserID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}

	now := time.Now().UTC()
	r := &Review{
		ID:         uuid.New().String(),
		BookID:     bookID,
		CustomerID: actor.UserID,
		Rating:     in.Rating,
		Title:      strings.TrimSpace(in.Title),
		Content:    strings.TrimSpace(in.Content),
		Pros:       in.Pros,
		Cons:       in.Cons,
		Status:     StatusPending,
		Verified:   verified,
		HelpfulBy:  []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	key := authorKey(bookID, actor.UserID)
	if err := s.authors.Create(ctx, key, &author{ReviewID: r.ID}); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	if err := s.reviews.Put(ctx, r.ID, r); err != nil {
		_ = s.authors.Delete(ctx, key)
		return nil, fmt.Errorf("save review: %w", err)
	}

	store.Record(ctx, s.eventStore, r.ID, AggregateType, EventReviewSubmitted, ReviewSubmitted{
		ReviewID:    r.ID,
		BookID:      bookID,
		CustomerID:  actor.UserID,
		Rating:      r.Rating,
		Verified:    verified,
		SubmittedAt: now,
	})
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Review, error) {
	r, err := s.reviews.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReviewNotFound
	}
	return r, err
}

func (s *Service) forBook(ctx context.Context, bookID string, status Status) ([]*Review, error) {
	all, err := s.reviews.All(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(all, func(r *Review) bool {
		return r.BookID != bookID || (status != "" && r.Status != status)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Approved returns up to limit approved reviews of a book, newest first.
func (s *Service) Approved(ctx context.Context, bookID string, limit int) ([]View, error) {
	reviews, err := s.forBook(ctx, bookID, StatusApproved)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}
	now := time.Now()
	views := make([]View, len(reviews))
	for i, r := range reviews {
		views[i] = r.View(now)
	}
	return views, nil
}

// Moderate sets a review's status and refreshes the book rating when
// the review enters or leaves the approved set.
func (s *Service) Moderate(ctx context.Context, actor auth.Principal, id string, status Status) (*Review, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var from Status
	now := time.Now().UTC()
	r, err := s.reviews.Update(ctx, id, func(r *Review) error {
		from = r.Status
		r.Status = status
		r.UpdatedAt = now
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}

	if (from == StatusApproved) != (status == StatusApproved) {
		if err := s.refreshRating(ctx, r.BookID); err != nil {
			return nil, err
		}
	}

	store.Record(ctx, s.eventStore, id, AggregateType, EventReviewModerated, ReviewModerated{
		ReviewID:    id,
		BookID:      r.BookID,
		From:        from,
		To:          status,
		ModeratedBy: actor.UserID,
		ModeratedAt: now,
	})
	return r, nil
}

func (s *Service) refreshRating(ctx context.Context, bookID string) error {
	approved, err := s.forBook(ctx, bookID, StatusApproved)
	if err != nil {
		return err
	}
	average, count := Rating(approved)
	if err := s.books.SetRating(ctx, bookID, average, count); err != nil && !errors.Is(err, book.ErrBookNotFound) {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

// Rating is the mean of the reviews' ratings to one decimal place.
func Rating(reviews []*Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return math.Round(avg*10) / 10, len(reviews)
}

// MarkHelpful counts a vote once per user. Authors cannot vote for themselves.
func (s *Service) MarkHelpful(ctx context.Context, actor auth.Principal, id string) (*Review, error) {
	r, err := s.reviews.Update(ctx, id, func(r *Review) error {
		if r.CustomerID == actor.UserID {
			return ErrOwnReview
		}
		if slices.Contains(r.HelpfulBy, actor.UserID) {
			return ErrAlreadyMarked
		}
		r.HelpfulBy = append(r.HelpfulBy, actor.UserID)
		r.HelpfulCount = len(r.HelpfulBy)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}

	store.Record(ctx, s.eventStore, id, AggregateType, EventReviewHelpful, ReviewMarkedHelpful{
		ReviewID:     id,
		UserID:       actor.UserID,
		HelpfulCount: r.HelpfulCount,
	})
	return r, nil
}
