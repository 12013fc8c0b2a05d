package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIDsFollowEnumerationOrder(t *testing.T) {
	c := NewCatalog([]Entry{
		{Name: "돼지국밥", Price: 9000},
		{Name: "순대국밥", Price: 9500},
		{Name: "수육 한접시", Price: 25000},
	})

	items := c.Items()
	require.Len(t, items, 3)
	for i, it := range items {
		assert.Equal(t, i+1, it.ID)
	}
	assert.Equal(t, "img/수육.jpg", items[2].ImageRef)

	got, ok := c.Lookup("순대국밥")
	require.True(t, ok)
	assert.Equal(t, 2, got.ID)
	assert.Equal(t, 9500, got.Price)

	_, ok = c.Lookup("순대")
	assert.False(t, ok, "lookup is exact match only")
}

func TestCatalogDropsDuplicateNames(t *testing.T) {
	c := NewCatalog([]Entry{{Name: "A", Price: 1}, {Name: "A", Price: 2}, {Name: "B", Price: -5}})
	require.Equal(t, 2, c.Len())

	b, ok := c.ByID(2)
	require.True(t, ok)
	assert.Equal(t, "B", b.Name)
	assert.Equal(t, 0, b.Price, "negative prices clamp to zero")

	_, ok = c.ByID(0)
	assert.False(t, ok)
	_, ok = c.ByID(3)
	assert.False(t, ok)
}

type flakySource struct {
	fails int
	calls int
}

func (f *flakySource) Menu(ctx context.Context) ([]Entry, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("connection refused")
	}
	return []Entry{{Name: "돼지국밥", Price: 9000}}, nil
}

func TestLoadRetries(t *testing.T) {
	src := &flakySource{fails: 1}
	c, err := Load(context.Background(), src, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, src.calls)
}

func TestLoadGivesUp(t *testing.T) {
	src := &flakySource{fails: 10}
	_, err := Load(context.Background(), src, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, src.calls)
}
