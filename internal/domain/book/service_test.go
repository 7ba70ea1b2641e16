package book

import (
	"context"
	"errors"
	"testing"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/example/bookstore/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seller      = auth.Principal{UserID: "seller-1", Email: "seller@example.com", Role: auth.RoleSeller}
	otherSeller = auth.Principal{UserID: "seller-2", Email: "other@example.com", Role: auth.RoleSeller}
	admin       = auth.Principal{UserID: "admin-1", Email: "admin@example.com", Role: auth.RoleAdmin}
)

func newTestBookService() (*Service, *mocks.MockDocumentStore, *mocks.MockEventStore) {
	docs := mocks.NewMockDocumentStore()
	eventStore := mocks.NewMockEventStore()
	return NewService(docs, eventStore, DefaultCacheConfig), docs, eventStore
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "The Go Programming Language",
		Author:      "Alan Donovan",
		Description: "An introduction to Go",
		Category:    "Programming",
		Price:       decimal.RequireFromString("34.99"),
		Stock:       10,
	}
}

func ptr[T any](v T) *T { return &v }

// ============================================
// Create Book Tests
// ============================================

func TestService_Create_ValidBook(t *testing.T) {
	service, docs, eventStore := newTestBookService()
	ctx := context.Background()

	b, err := service.Create(ctx, seller, validInput())

	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "seller-1", b.SellerID)
	assert.True(t, b.IsActive)
	assert.Equal(t, 10, b.Stock)

	assert.Len(t, docs.PutCalls, 1)
	assert.Equal(t, Collection, docs.PutCalls[0].Collection)
	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventBookCreated, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInput)
		want   error
	}{
		{"empty title", func(in *CreateInput) { in.Title = " " }, ErrInvalidTitle},
		{"empty author", func(in *CreateInput) { in.Author = "" }, ErrInvalidAuthor},
		{"empty category", func(in *CreateInput) { in.Category = "" }, ErrInvalidCategory},
		{"empty description", func(in *CreateInput) { in.Description = "" }, ErrInvalidDescription},
		{"negative price", func(in *CreateInput) { in.Price = decimal.NewFromInt(-1) }, ErrInvalidPrice},
		{"negative stock", func(in *CreateInput) { in.Stock = -1 }, ErrInvalidStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, docs, eventStore := newTestBookService()
			in := validInput()
			tt.mutate(&in)

			b, err := service.Create(context.Background(), seller, in)

			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, b)
			assert.Empty(t, docs.PutCalls)
			assert.Empty(t, eventStore.AppendCalls)
		})
	}
}

func TestService_Create_FreeBook(t *testing.T) {
	service, _, _ := newTestBookService()
	in := validInput()
	in.Price = decimal.Zero

	b, err := service.Create(context.Background(), seller, in)

	require.NoError(t, err)
	assert.True(t, b.Price.IsZero())
}

func TestService_Create_EventFailureDoesNotFailCreate(t *testing.T) {
	service, _, eventStore := newTestBookService()
	eventStore.AppendErr = errors.New("event store down")

	b, err := service.Create(context.Background(), seller, validInput())

	require.NoError(t, err)
	stored, err := service.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Title, stored.Title)
}

// ============================================
// Get / View Tests
// ============================================

func TestService_Get_NotFound(t *testing.T) {
	service, _, _ := newTestBookService()

	b, err := service.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Nil(t, b)
}

func TestService_Get_ServedFromCache(t *testing.T) {
	service, docs, _ := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)

	_, err = service.Get(ctx, b.ID)
	require.NoError(t, err)

	docs.GetErr = errors.New("store unavailable")
	cached, err := service.Get(ctx, b.ID)

	require.NoError(t, err)
	assert.Equal(t, b.ID, cached.ID)
}

func TestService_Get_ReturnsCopy(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()
	in := validInput()
	in.Tags = []string{"go"}
	b, err := service.Create(ctx, seller, in)
	require.NoError(t, err)

	first, err := service.Get(ctx, b.ID)
	require.NoError(t, err)
	first.Title = "changed"
	first.Tags[0] = "changed"

	second, err := service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Title, second.Title)
	assert.Equal(t, []string{"go"}, second.Tags)
}

func TestService_View_IncrementsViews(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)

	_, err = service.View(ctx, b.ID)
	require.NoError(t, err)
	viewed, err := service.View(ctx, b.ID)

	require.NoError(t, err)
	assert.Equal(t, 2, viewed.Views)
}

func TestService_View_DoesNotCacheItsCopy(t *testing.T) {
	service, docs, _ := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)
	_, err = service.Get(ctx, b.ID)
	require.NoError(t, err)

	_, err = service.View(ctx, b.ID)
	require.NoError(t, err)
	_, err = store.NewCollection[Book](docs, Collection).Update(ctx, b.ID, func(stored *Book) error {
		stored.Stock = 3
		return nil
	})
	require.NoError(t, err)

	got, err := service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, 1, got.Views)
}

func TestService_View_InactiveBook(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, seller, b.ID))

	_, err = service.View(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = service.GetActive(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// ============================================
// Update / Delete Tests
// ============================================

func TestService_Update_Owner(t *testing.T) {
	service, _, eventStore := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)
	eventStore.Reset()

	updated, err := service.Update(ctx, seller, b.ID, Patch{
		Price: ptr(decimal.RequireFromString("29.99")),
		Stock: ptr(3),
	})

	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("29.99")))
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, "The Go Programming Language", updated.Title)

	require.Len(t, eventStore.AppendCalls, 1)
	data := eventStore.AppendCalls[0].Data.(BookUpdated)
	assert.Equal(t, []string{"price", "stock"}, data.Fields)

	fresh, err := service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Stock)
}

func TestService_Update_Access(t *testing.T) {
	tests := []struct {
		name    string
		actor   auth.Principal
		wantErr error
	}{
		{"owner", seller, nil},
		{"admin", admin, nil},
		{"other seller", otherSeller, ErrNotOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _ := newTestBookService()
			ctx := context.Background()
			b, err := service.Create(ctx, seller, validInput())
			require.NoError(t, err)

			_, err = service.Update(ctx, tt.actor, b.ID, Patch{Title: ptr("New title")})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestService_Update_InvalidPatchLeavesBookUntouched(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)

	_, err = service.Update(ctx, seller, b.ID, Patch{Stock: ptr(-5)})
	assert.ErrorIs(t, err, ErrInvalidStock)

	fresh, err := service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, fresh.Stock)
}

func TestService_Update_NotFound(t *testing.T) {
	service, _, _ := newTestBookService()

	_, err := service.Update(context.Background(), admin, "missing", Patch{})

	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestService_Delete_SoftDeletes(t *testing.T) {
	service, docs, eventStore := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, seller, b.ID))

	assert.Empty(t, docs.DeleteCalls)
	stored, err := service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, []string{EventBookCreated, EventBookDeleted}, eventStore.EventTypes())
}

func TestService_Delete_OtherSeller(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)

	err = service.Delete(ctx, otherSeller, b.ID)

	assert.ErrorIs(t, err, ErrNotOwner)
}

// ============================================
// Listing Tests
// ============================================

func TestService_List_ActiveOnlyWithCategories(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()

	in := validInput()
	_, err := service.Create(ctx, seller, in)
	require.NoError(t, err)
	in.Category = "Fiction"
	_, err = service.Create(ctx, seller, in)
	require.NoError(t, err)
	in.Category = "History"
	hidden, err := service.Create(ctx, seller, in)
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, seller, hidden.ID))

	page, err := service.List(ctx, Query{})

	require.NoError(t, err)
	assert.Len(t, page.Books, 2)
	assert.Equal(t, []string{"Fiction", "Programming"}, page.Categories)
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestService_List_StoreError(t *testing.T) {
	service, docs, _ := newTestBookService()
	docs.ListErr = errors.New("boom")

	_, err := service.List(context.Background(), Query{})

	assert.Error(t, err)
}

func TestService_Search_RequiresQuery(t *testing.T) {
	service, _, _ := newTestBookService()

	_, err := service.Search(context.Background(), Query{Search: "   "})

	assert.ErrorIs(t, err, ErrEmptySearch)
}

func TestService_Related(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()

	target, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		b, err := service.Create(ctx, seller, validInput())
		require.NoError(t, err)
		require.NoError(t, service.SetRating(ctx, b.ID, float64(i%5), 1))
	}
	other := validInput()
	other.Category = "Cooking"
	_, err = service.Create(ctx, seller, other)
	require.NoError(t, err)

	related, err := service.Related(ctx, target)

	require.NoError(t, err)
	assert.Len(t, related, relatedLimit)
	for i, b := range related {
		assert.NotEqual(t, target.ID, b.ID)
		assert.Equal(t, "Programming", b.Category)
		if i > 0 {
			assert.GreaterOrEqual(t, related[i-1].AverageRating, b.AverageRating)
		}
	}
}

func TestService_BySellerAndSummary(t *testing.T) {
	service, docs, _ := newTestBookService()
	ctx := context.Background()

	a, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)
	_, err = service.Create(ctx, otherSeller, validInput())
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, seller, b.ID))

	books := store.NewCollection[Book](docs, Collection)
	_, err = books.Update(ctx, a.ID, func(b *Book) error {
		b.TotalSales = 3
		return nil
	})
	require.NoError(t, err)

	mine, err := service.BySeller(ctx, seller.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	summary := Summarize(mine)
	assert.Equal(t, 2, summary.TotalBooks)
	assert.Equal(t, 1, summary.ActiveBooks)
	assert.Equal(t, 3, summary.TotalSales)
	assert.Equal(t, "104.97", summary.TotalRevenue.StringFixed(2))
}

func TestService_SetRating_InvalidatesCache(t *testing.T) {
	service, _, _ := newTestBookService()
	ctx := context.Background()
	b, err := service.Create(ctx, seller, validInput())
	require.NoError(t, err)
	_, err = service.Get(ctx, b.ID)
	require.NoError(t, err)

	require.NoError(t, service.SetRating(ctx, b.ID, 4.5, 2))

	fresh, err := service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, fresh.AverageRating)
	assert.Equal(t, 2, fresh.ReviewCount)
}
