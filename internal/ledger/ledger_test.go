package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gukbap/kiosk/internal/menu"
)

var (
	pork   = menu.MenuItem{ID: 1, Name: "돼지국밥", Price: 9000}
	sundae = menu.MenuItem{ID: 2, Name: "순대국밥", Price: 9500}
	suyuk  = menu.MenuItem{ID: 6, Name: "수육 한접시", Price: 25000}
)

func TestAddMergesByID(t *testing.T) {
	l := New()
	require.NoError(t, l.Add(pork, 1))
	require.NoError(t, l.Add(sundae, 2))
	require.NoError(t, l.Add(pork, 3))

	lines := l.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, pork.ID, lines[0].Item.ID)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, 2, lines[1].Quantity)
}

func TestAddSumsRandomSequences(t *testing.T) {
	items := []menu.MenuItem{pork, sundae, suyuk}
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		l := New()
		want := map[int]int{}
		for i := 0; i < 50; i++ {
			it := items[r.Intn(len(items))]
			q := 1 + r.Intn(4)
			require.NoError(t, l.Add(it, q))
			want[it.ID] += q
		}
		require.Equal(t, len(want), l.Len())
		total := 0
		for _, ln := range l.Lines() {
			assert.Equal(t, want[ln.Item.ID], ln.Quantity)
			total += ln.Item.Price * ln.Quantity
		}
		assert.Equal(t, total, l.Total())
	}
}

func TestAddRejectsMissingID(t *testing.T) {
	l := New()
	require.NoError(t, l.Add(pork, 1))

	err := l.Add(menu.MenuItem{Name: "유령국밥", Price: 1}, 1)
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.Equal(t, 1, l.Len())
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	l := New()
	require.NoError(t, l.Add(pork, 2))

	assert.ErrorIs(t, l.Add(pork, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Add(pork, -5), ErrInvalidQuantity)
	assert.Equal(t, 2, l.Lines()[0].Quantity)
}

func TestClearAndTotal(t *testing.T) {
	l := New()
	require.NoError(t, l.Add(pork, 2))
	require.NoError(t, l.Add(suyuk, 1))
	assert.Equal(t, 43000, l.Total())

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.Total())
}

func TestSummary(t *testing.T) {
	l := New()
	require.NoError(t, l.Add(pork, 2))
	require.NoError(t, l.Add(suyuk, 1))
	assert.Equal(t, "돼지국밥 2개\n수육 한접시 1개", l.Summary())
}
