package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name              string
		page, limit, def  int
		wantPage, wantLim int
	}{
		{"defaults", 0, 0, 12, 1, 12},
		{"negative page", -3, 5, 12, 1, 5},
		{"limit capped", 2, 1000, 12, 2, MaxLimit},
		{"kept", 3, 20, 12, 3, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := Normalize(tt.page, tt.limit, tt.def)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLim, limit)
		})
	}
}

func TestNew(t *testing.T) {
	p := New(2, 10, 25)

	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	last := New(3, 10, 25)
	assert.False(t, last.HasNext)

	empty := New(1, 10, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Slice(items, 1, 2))
	assert.Equal(t, []int{5}, Slice(items, 3, 2))
	assert.Empty(t, Slice(items, 4, 2))
}
