package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thing struct {
	key   int
	value string
}

func newThingSet() *HashSet[*thing] {
	return NewHashSet(func(a, b *thing) bool {
		return a.key == b.key
	})
}

func TestHashSet(t *testing.T) {
	set := newThingSet()

	one := &thing{key: 1, value: "one"}
	stored, inserted := set.Insert(HashValue(0), one)
	assert.True(t, inserted)
	assert.Same(t, one, stored)
	assert.EqualValues(t, 1, set.Count())

	// Same hash, different key: chained in the same bin.
	two := &thing{key: 2, value: "two"}
	stored, inserted = set.Insert(HashValue(0), two)
	assert.True(t, inserted)
	assert.Same(t, two, stored)
	assert.EqualValues(t, 2, set.Count())

	// Equal key returns the existing element.
	stored, inserted = set.Insert(HashValue(0), &thing{key: 1, value: "other"})
	assert.False(t, inserted)
	assert.Same(t, one, stored)
	assert.EqualValues(t, 2, set.Count())

	found, ok := set.Find(HashValue(0), &thing{key: 2})
	require.True(t, ok)
	assert.Equal(t, "two", found.value)

	removed, ok := set.Remove(HashValue(0), &thing{key: 1})
	require.True(t, ok)
	assert.Same(t, one, removed)
	assert.EqualValues(t, 1, set.Count())

	_, ok = set.Remove(HashValue(0), one)
	assert.False(t, ok)

	removed, ok = set.Remove(HashValue(0), two)
	require.True(t, ok)
	assert.Same(t, two, removed)
	assert.EqualValues(t, 0, set.Count())
}

func TestHashSetResizeAndFilter(t *testing.T) {
	set := newThingSet()
	for i := 0; i < 500; i++ {
		set.Insert(HashValue(i*7919), &thing{key: i})
	}
	assert.EqualValues(t, 500, set.Count())
	for i := 0; i < 500; i++ {
		_, ok := set.Find(HashValue(i*7919), &thing{key: i})
		require.True(t, ok, "key %d", i)
	}

	set.Filter(func(elt *thing) bool { return elt.key%2 == 0 })
	assert.EqualValues(t, 250, set.Count())

	seen := 0
	set.Each(func(elt *thing) {
		assert.Zero(t, elt.key%2)
		seen++
	})
	assert.Equal(t, 250, seen)
}

func TestHashPairIsSymmetric(t *testing.T) {
	assert.Equal(t, hashPair(3, 9), hashPair(9, 3))
	assert.NotEqual(t, hashPair(3, 9), hashPair(3, 10))
}
