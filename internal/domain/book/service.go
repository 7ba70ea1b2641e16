package book

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/pagination"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

const relatedLimit = 6

// CacheConfig sizes the read-through book cache.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

var DefaultCacheConfig = CacheConfig{Size: 1024, TTL: 5 * time.Minute}

type Service struct {
	books      *store.Collection[Book]
	eventStore store.EventStoreInterface
	cache      *expirable.LRU[string, Book]
}

func NewService(docs store.DocumentStore, es store.EventStoreInterface, cfg CacheConfig) *Service {
	if cfg.Size <= 0 {
		cfg.Size = DefaultCacheConfig.Size
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig.TTL
	}
	return &Service{
		books:      store.NewCollection[Book](docs, Collection),
		eventStore: es,
		cache:      expirable.NewLRU[string, Book](cfg.Size, nil, cfg.TTL),
	}
}

type CreateInput struct {
	Title         string
	Author        string
	Description   string
	Category      string
	Tags          []string
	ImageURL      string
	PDFURL        string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Stock         int
	IsDigital     bool
	Featured      bool
}

func (s *Service) Create(ctx context.Context, seller auth.Principal, in CreateInput) (*Book, error) {
	now := time.Now().UTC()
	b := &Book{
		ID:            uuid.New().String(),
		Title:         in.Title,
		Author:        in.Author,
		Description:   in.Description,
		Category:      in.Category,
		Tags:          in.Tags,
		ImageURL:      in.ImageURL,
		PDFURL:        in.PDFURL,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Stock:         in.Stock,
		IsDigital:     in.IsDigital,
		SellerID:      seller.UserID,
		Featured:      in.Featured,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	if err := s.books.Put(ctx, b.ID, b); err != nil {
		return nil, fmt.Errorf("save book: %w", err)
	}

	store.Record(ctx, s.eventStore, b.ID, AggregateType, EventBookCreated, BookCreated{
		BookID:    b.ID,
		SellerID:  b.SellerID,
		Title:     b.Title,
		Author:    b.Author,
		Category:  b.Category,
		Price:     b.Price,
		Stock:     b.Stock,
		IsDigital: b.IsDigital,
		CreatedAt: now,
	})
	return b, nil
}

// Get returns a book regardless of its active flag.
func (s *Service) Get(ctx context.Context, id string) (*Book, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cloneBook(&cached), nil
	}

	b, err := s.books.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, *cloneBook(b))
	return b, nil
}

// GetActive returns a book only while it is listed.
func (s *Service) GetActive(ctx context.Context, id string) (*Book, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, ErrBookNotFound
	}
	return b, nil
}

// View returns an active book and counts the view.
func (s *Service) View(ctx context.Context, id string) (*Book, error) {
	b, err := s.books.Update(ctx, id, func(b *Book) error {
		if !b.IsActive {
			return ErrBookNotFound
		}
		b.Views++
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	// A stock write may have landed since the update, so the next Get reloads.
	s.Invalidate(id)
	return b, nil
}

// Patch lists the fields a seller may change. Nil fields are left untouched.
type Patch struct {
	Title         *string
	Author        *string
	Description   *string
	Category      *string
	Tags          *[]string
	ImageURL      *string
	PDFURL        *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	Stock         *int
	IsDigital     *bool
	Featured      *bool
	IsActive      *bool
}

func (p Patch) apply(b *Book) []string {
	var fields []string
	set := func(name string, ok bool, fn func()) {
		if ok {
			fn()
			fields = append(fields, name)
		}
	}
	set("title", p.Title != nil, func() { b.Title = *p.Title })
	set("author", p.Author != nil, func() { b.Author = *p.Author })
	set("description", p.Description != nil, func() { b.Description = *p.Description })
	set("category", p.Category != nil, func() { b.Category = *p.Category })
	set("tags", p.Tags != nil, func() { b.Tags = *p.Tags })
	set("imageURL", p.ImageURL != nil, func() { b.ImageURL = *p.ImageURL })
	set("pdfURL", p.PDFURL != nil, func() { b.PDFURL = *p.PDFURL })
	set("price", p.Price != nil, func() { b.Price = *p.Price })
	set("originalPrice", p.OriginalPrice != nil, func() { b.OriginalPrice = *p.OriginalPrice })
	set("stock", p.Stock != nil, func() { b.Stock = *p.Stock })
	set("isDigital", p.IsDigital != nil, func() { b.IsDigital = *p.IsDigital })
	set("featured", p.Featured != nil, func() { b.Featured = *p.Featured })
	set("isActive", p.IsActive != nil, func() { b.IsActive = *p.IsActive })
	return fields
}

func canManage(actor auth.Principal, b *Book) bool {
	return b.SellerID == actor.UserID || actor.Can(auth.CapBookManageAny)
}

func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, patch Patch) (*Book, error) {
	var fields []string
	b, err := s.books.Update(ctx, id, func(b *Book) error {
		if !canManage(actor, b) {
			return ErrNotOwner
		}
		fields = patch.apply(b)
		b.UpdatedAt = time.Now().UTC()
		return b.validate()
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Invalidate(id)

	store.Record(ctx, s.eventStore, id, AggregateType, EventBookUpdated, BookUpdated{
		BookID:    id,
		Fields:    fields,
		UpdatedBy: actor.UserID,
		UpdatedAt: b.UpdatedAt,
	})
	return b, nil
}

// Delete unlists a book. Orders keep referring to it.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	now := time.Now().UTC()
	_, err := s.books.Update(ctx, id, func(b *Book) error {
		if !canManage(actor, b) {
			return ErrNotOwner
		}
		b.IsActive = false
		b.UpdatedAt = now
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrBookNotFound
	}
	if err != nil {
		return err
	}
	s.Invalidate(id)

	store.Record(ctx, s.eventStore, id, AggregateType, EventBookDeleted, BookDeleted{
		BookID:    id,
		DeletedBy: actor.UserID,
		DeletedAt: now,
	})
	return nil
}

// List runs a catalog query and attaches the category filter values.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	all, err := s.books.All(ctx)
	if err != nil {
		return nil, err
	}
	page := q.Apply(all)
	page.Categories = Categories(all)
	return page, nil
}

// Search ranks active books by how many query terms they match.
func (s *Service) Search(ctx context.Context, q Query) (*Page, error) {
	if len(searchTerms(q.Search)) == 0 {
		return nil, ErrEmptySearch
	}
	q.Sort = SortRelevance
	q.Order = "desc"
	all, err := s.books.All(ctx)
	if err != nil {
		return nil, err
	}
	return q.Apply(all), nil
}

// Related returns other active books in the same category, best rated first.
func (s *Service) Related(ctx context.Context, b *Book) ([]*Book, error) {
	page, err := s.List(ctx, Query{
		Category: b.Category,
		Sort:     SortRating,
		Limit:    pagination.MaxLimit,
	})
	if err != nil {
		return nil, err
	}
	related := make([]*Book, 0, relatedLimit)
	for _, other := range page.Books {
		if other.ID == b.ID || !strings.EqualFold(other.Category, b.Category) {
			continue
		}
		related = append(related, other)
		if len(related) == relatedLimit {
			break
		}
	}
	return related, nil
}

// All returns every book, listed or not, newest first.
func (s *Service) All(ctx context.Context) ([]*Book, error) {
	all, err := s.books.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

// BySeller returns every book a seller listed, newest first.
func (s *Service) BySeller(ctx context.Context, sellerID string) ([]*Book, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(b *Book) bool { return b.SellerID != sellerID }), nil
}

// SalesSummary aggregates a seller's catalog.
type SalesSummary struct {
	TotalBooks   int             `json:"totalBooks"`
	ActiveBooks  int             `json:"activeBooks"`
	TotalSales   int             `json:"totalSales"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

func Summarize(books []*Book) SalesSummary {
	var sum SalesSummary
	for _, b := range books {
		sum.TotalBooks++
		if b.IsActive {
			sum.ActiveBooks++
		}
		sum.TotalSales += b.TotalSales
		sum.TotalRevenue = sum.TotalRevenue.Add(b.Price.Mul(decimal.NewFromInt(int64(b.TotalSales))))
	}
	return sum
}

// SetRating stores the aggregate of a book's approved reviews.
func (s *Service) SetRating(ctx context.Context, id string, average float64, count int) error {
	_, err := s.books.Update(ctx, id, func(b *Book) error {
		b.AverageRating = average
		b.ReviewCount = count
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrBookNotFound
	}
	if err != nil {
		return err
	}
	s.Invalidate(id)

	store.Record(ctx, s.eventStore, id, AggregateType, EventRatingChanged, RatingChanged{
		BookID:        id,
		AverageRating: average,
		ReviewCount:   count,
	})
	return nil
}

// Invalidate drops a cached book after a write that bypassed the service.
func (s *Service) Invalidate(id string) {
	s.cache.Remove(id)
}

func cloneBook(b *Book) *Book {
	c := *b
	c.Tags = slices.Clone(b.Tags)
	return &c
}
