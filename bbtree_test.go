package physics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBTree_Proxies(t *testing.T) {
	tree := NewBBTree(0.1, 4)
	assert.Equal(t, 0, tree.Height())

	a := tree.CreateProxy(NewBB(0, 0, 1, 1), "a")
	b := tree.CreateProxy(NewBB(5, 5, 6, 6), "b")
	c := tree.CreateProxy(NewBB(0.5, 0.5, 2, 2), "c")
	require.True(t, tree.Validate())

	assert.Equal(t, "b", tree.GetObj(b))
	assert.True(t, tree.GetBB(a).Contains(NewBB(0, 0, 1, 1)))

	var hits []string
	tree.Query(NewBB(0.8, 0.8, 0.9, 0.9), func(id int) bool {
		hits = append(hits, tree.GetObj(id).(string))
		return true
	})
	assert.ElementsMatch(t, []string{"a", "c"}, hits)

	tree.DestroyProxy(c)
	require.True(t, tree.Validate())

	hits = hits[:0]
	tree.Query(NewBB(0.8, 0.8, 0.9, 0.9), func(id int) bool {
		hits = append(hits, tree.GetObj(id).(string))
		return true
	})
	assert.Equal(t, []string{"a"}, hits)
}

func TestBBTree_MoveProxy(t *testing.T) {
	tree := NewBBTree(0.1, 4)
	id := tree.CreateProxy(NewBB(0, 0, 1, 1), nil)

	// Small motion stays inside the fat box.
	assert.False(t, tree.MoveProxy(id, NewBB(0.05, 0, 1.05, 1), Vector{0.05, 0}))

	// Large motion refits and extends along the displacement.
	assert.True(t, tree.MoveProxy(id, NewBB(3, 0, 4, 1), Vector{3, 0}))
	fat := tree.GetBB(id)
	assert.True(t, fat.Contains(NewBB(3, 0, 4, 1)))
	assert.Greater(t, fat.R, 4.0+3.0)
	require.True(t, tree.Validate())
}

func TestBBTree_QueryStops(t *testing.T) {
	tree := NewBBTree(0.1, 4)
	for i := 0; i < 10; i++ {
		tree.CreateProxy(NewBB(0, 0, 1, 1), i)
	}
	calls := 0
	tree.Query(NewBB(0, 0, 1, 1), func(id int) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}

func TestBBTree_SegmentQuery(t *testing.T) {
	tree := NewBBTree(0, 0)
	near := tree.CreateProxy(NewBB(2, -1, 3, 1), "near")
	tree.CreateProxy(NewBB(6, -1, 7, 1), "far")
	tree.CreateProxy(NewBB(2, 5, 3, 6), "off")

	var seen []string
	tree.SegmentQuery(RayCastInput{P1: Vector{0, 0}, P2: Vector{10, 0}, MaxFraction: 1}, func(input RayCastInput, id int) float64 {
		seen = append(seen, tree.GetObj(id).(string))
		return input.MaxFraction
	})
	assert.ElementsMatch(t, []string{"near", "far"}, seen)

	// Clipping to the near box hides the far one.
	seen = seen[:0]
	tree.SegmentQuery(RayCastInput{P1: Vector{0, 0}, P2: Vector{10, 0}, MaxFraction: 1}, func(input RayCastInput, id int) float64 {
		seen = append(seen, tree.GetObj(id).(string))
		if id == near {
			return 0.2
		}
		return input.MaxFraction
	})
	assert.Contains(t, seen, "near")
	if len(seen) == 2 {
		// The far box may be visited first; it is never visited after the clip.
		assert.Equal(t, "far", seen[0])
	}
}

func TestBBTree_Balance(t *testing.T) {
	tree := NewBBTree(0.1, 4)
	r := rand.New(rand.NewSource(1))
	var ids []int
	for i := 0; i < 500; i++ {
		x, y := r.Float64()*100, r.Float64()*100
		ids = append(ids, tree.CreateProxy(NewBB(x, y, x+1, y+1), i))
	}
	require.True(t, tree.Validate())
	// A balanced tree of 500 leaves is far shallower than a list.
	assert.Less(t, tree.Height(), 30)
	assert.Less(t, tree.MaxBalance(), tree.Height())
	assert.Greater(t, tree.AreaRatio(), 1.0)

	for _, id := range ids[:250] {
		tree.DestroyProxy(id)
	}
	require.True(t, tree.Validate())
	assert.Less(t, tree.Height(), 30)

	tree.ShiftOrigin(Vector{50, 50})
	require.True(t, tree.Validate())
}
