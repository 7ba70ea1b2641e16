package book

import (
	"sort"
	"strings"

	"github.com/example/bookstore/internal/pagination"
	"github.com/shopspring/decimal"
)

const DefaultLimit = 12

const (
	SortCreatedAt  = "createdAt"
	SortPrice      = "price"
	SortRating     = "rating"
	SortPopularity = "popularity"
	SortTitle      = "title"
	SortRelevance  = "relevance"
)

// Query filters, sorts and pages the catalog.
type Query struct {
	Page     int
	Limit    int
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Author   string
	Search   string
	Featured bool
	InStock  bool
	Sort     string
	Order    string
	SellerID string
	// Status is "active", "inactive" or empty. Empty lists active books unless
	// IncludeInactive is set.
	Status          string
	IncludeInactive bool
}

// Page is one page of catalog results.
type Page struct {
	Books      []*Book               `json:"books"`
	Pagination pagination.Pagination `json:"pagination"`
	Categories []string              `json:"categories,omitempty"`
}

func searchTerms(search string) []string {
	return strings.Fields(strings.ToLower(search))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// relevance counts how many search terms occur anywhere in the book's text fields.
func relevance(b *Book, terms []string) int {
	text := strings.ToLower(strings.Join([]string{
		b.Title, b.Author, b.Description, b.Category, strings.Join(b.Tags, " "),
	}, " "))
	score := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			score++
		}
	}
	return score
}

func (q Query) matches(b *Book, terms []string) bool {
	switch q.Status {
	case "active":
		if !b.IsActive {
			return false
		}
	case "inactive":
		if b.IsActive {
			return false
		}
	default:
		if !b.IsActive && !q.IncludeInactive {
			return false
		}
	}
	if q.SellerID != "" && b.SellerID != q.SellerID {
		return false
	}
	if q.Category != "" && !strings.EqualFold(q.Category, "all") && !containsFold(b.Category, q.Category) {
		return false
	}
	if q.MinPrice != nil && b.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && b.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if q.Author != "" && !containsFold(b.Author, q.Author) {
		return false
	}
	if q.Featured && !b.Featured {
		return false
	}
	if q.InStock && !b.InStock() {
		return false
	}
	if len(terms) > 0 && relevance(b, terms) == 0 {
		return false
	}
	return true
}

func (q Query) less(terms []string) func(a, b *Book) bool {
	desc := !strings.EqualFold(q.Order, "asc")
	cmp := func(a, b *Book) int {
		switch q.Sort {
		case SortPrice:
			return a.Price.Cmp(b.Price)
		case SortRating:
			return compareFloat(a.AverageRating, b.AverageRating)
		case SortPopularity:
			return a.TotalSales - b.TotalSales
		case SortTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortRelevance:
			if d := relevance(a, terms) - relevance(b, terms); d != 0 {
				return d
			}
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return func(a, b *Book) bool {
		c := cmp(a, b)
		if c == 0 {
			return a.ID < b.ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Apply filters, sorts and pages books.
func (q Query) Apply(books []*Book) *Page {
	terms := searchTerms(q.Search)

	matched := make([]*Book, 0, len(books))
	for _, b := range books {
		if q.matches(b, terms) {
			matched = append(matched, b)
		}
	}

	less := q.less(terms)
	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	page, limit := pagination.Normalize(q.Page, q.Limit, DefaultLimit)
	return &Page{
		Books:      pagination.Slice(matched, page, limit),
		Pagination: pagination.New(page, limit, len(matched)),
	}
}

// Categories returns the distinct categories of active books, sorted.
func Categories(books []*Book) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range books {
		if !b.IsActive || b.Category == "" {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	sort.Strings(out)
	return out
}
