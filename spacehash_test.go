package physics

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpaceHashQuery(t *testing.T) {
	hash := NewSpaceHash(1, 16)
	points := []Vector{{0.5, 0.5}, {1.5, 0.5}, {10.5, 10.5}, {-3.5, 2.5}}
	hash.Rebuild(points)

	var found []int
	hash.Query(NewBB(0, 0, 1.9, 0.9), func(id int) {
		if !slices.Contains(found, id) {
			found = append(found, id)
		}
	})
	assert.Contains(t, found, 0)
	assert.Contains(t, found, 1)

	hash.Clear()
	found = found[:0]
	hash.Query(NewBB(0, 0, 1.9, 0.9), func(id int) {
		found = append(found, id)
	})
	assert.Empty(t, found)
}

func TestSpaceHashMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := make([]Vector, 400)
	for i := range points {
		points[i] = Vector{rng.Float64()*40 - 20, rng.Float64()*40 - 20}
	}
	// More points than bins forces a resize.
	hash := NewSpaceHash(0.5, 16)
	hash.Rebuild(points)

	for q := 0; q < 50; q++ {
		c := points[rng.Intn(len(points))]
		bb := NewBBForCircle(c, 0.5)

		got := map[int]bool{}
		hash.Query(bb, func(id int) {
			if bb.ContainsVect(points[id]) {
				got[id] = true
			}
		})
		for i, p := range points {
			assert.Equal(t, bb.ContainsVect(p), got[i], "query %d point %d", q, i)
		}
	}
}

func TestSpaceHashSetCellDim(t *testing.T) {
	hash := NewSpaceHash(1, 8)
	hash.Insert(3, Vector{0.2, 0.2})
	hash.SetCellDim(0.1)

	count := 0
	hash.Query(NewBB(0, 0, 0.3, 0.3), func(int) { count++ })
	assert.Equal(t, 0, count)

	hash.Insert(3, Vector{0.25, 0.25})
	hash.Query(NewBB(0.2, 0.2, 0.29, 0.29), func(int) { count++ })
	assert.Equal(t, 1, count)
}
