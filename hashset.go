package physics

type HashValue uint64

// hashPair combines two ids into a hash that does not depend on their order.
func hashPair(a, b int) HashValue {
	return HashValue(uint64(a)*3344921057) ^ HashValue(uint64(b)*3344921057)
}

var primes = []uint{
	5, 13, 23, 47, 97, 193, 389, 769, 1543, 3079, 6151, 12289, 24593,
	49157, 98317, 196613, 393241, 786433, 1572869, 3145739, 6291469,
	12582917, 25165843, 50331653, 100663319, 201326611, 402653189,
}

func nextPrime(n uint) uint {
	for _, p := range primes {
		if p >= n {
			return p
		}
	}
	panic("hash set too large")
}

type hashSetBin[T any] struct {
	elt  T
	hash HashValue
	next *hashSetBin[T]
}

// HashSet is a chained hash table with a caller supplied equality. Elements
// that compare equal under eql are the same entry even when the stored
// value differs, which lets a key value find the stored one.
type HashSet[T any] struct {
	entries uint
	eql     func(a, b T) bool

	size  uint
	table []*hashSetBin[T]
}

func NewHashSet[T any](eql func(a, b T) bool) *HashSet[T] {
	size := nextPrime(0)
	return &HashSet[T]{
		eql:   eql,
		size:  size,
		table: make([]*hashSetBin[T], size),
	}
}

func (set *HashSet[T]) resize() {
	newSize := nextPrime(set.size + 1)
	newTable := make([]*hashSetBin[T], newSize)

	for _, bin := range set.table {
		for bin != nil {
			next := bin.next
			idx := uint(bin.hash) % newSize
			bin.next = newTable[idx]
			newTable[idx] = bin
			bin = next
		}
	}

	set.table = newTable
	set.size = newSize
}

func (set *HashSet[T]) Count() uint {
	return set.entries
}

// Insert adds elt unless an equal element exists. It returns the stored
// element and whether it was newly inserted.
func (set *HashSet[T]) Insert(hash HashValue, elt T) (T, bool) {
	idx := uint(hash) % set.size

	// Find the bin with the matching element.
	bin := set.table[idx]
	for bin != nil && !set.eql(elt, bin.elt) {
		bin = bin.next
	}
	if bin != nil {
		return bin.elt, false
	}

	bin = &hashSetBin[T]{elt: elt, hash: hash, next: set.table[idx]}
	set.table[idx] = bin
	set.entries++
	if set.entries >= set.size {
		set.resize()
	}
	return elt, true
}

func (set *HashSet[T]) Remove(hash HashValue, key T) (T, bool) {
	idx := uint(hash) % set.size
	prevPtr := &set.table[idx]
	bin := *prevPtr

	for bin != nil && !set.eql(key, bin.elt) {
		prevPtr = &bin.next
		bin = bin.next
	}

	if bin == nil {
		var zero T
		return zero, false
	}
	*prevPtr = bin.next
	set.entries--
	return bin.elt, true
}

func (set *HashSet[T]) Find(hash HashValue, key T) (T, bool) {
	bin := set.table[uint(hash)%set.size]
	for bin != nil && !set.eql(key, bin.elt) {
		bin = bin.next
	}
	if bin == nil {
		var zero T
		return zero, false
	}
	return bin.elt, true
}

// Each visits every element. The order is unspecified.
func (set *HashSet[T]) Each(f func(elt T)) {
	for _, bin := range set.table {
		for bin != nil {
			next := bin.next
			f(bin.elt)
			bin = next
		}
	}
}

// Filter removes every element for which keep returns false.
func (set *HashSet[T]) Filter(keep func(elt T) bool) {
	for i := range set.table {
		prevPtr := &set.table[i]
		for bin := *prevPtr; bin != nil; bin = bin.next {
			if keep(bin.elt) {
				prevPtr = &bin.next
			} else {
				*prevPtr = bin.next
				set.entries--
			}
		}
	}
}
