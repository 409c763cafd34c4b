package physics

import (
	"math"
	"slices"
)

// SpaceHash buckets points into square cells. Cells are mapped into a
// prime-sized table, so unrelated cells may share a bin and callers must
// still test distances.
type SpaceHash struct {
	celldim float64
	table   [][]int
	// bins touched since the last clear, so clearing is proportional to use.
	used []int
}

func NewSpaceHash(celldim float64, cells int) *SpaceHash {
	hash := &SpaceHash{celldim: celldim}
	hash.resize(cells)
	return hash
}

func (hash *SpaceHash) resize(cells int) {
	n := int(nextPrime(uint(cells)))
	hash.table = make([][]int, n)
	hash.used = hash.used[:0]
}

// SetCellDim changes the cell size and empties the table.
func (hash *SpaceHash) SetCellDim(celldim float64) {
	hash.celldim = celldim
	hash.Clear()
}

func (hash *SpaceHash) Clear() {
	for _, idx := range hash.used {
		hash.table[idx] = hash.table[idx][:0]
	}
	hash.used = hash.used[:0]
}

func (hash *SpaceHash) cell(p Vector) (int, int) {
	return int(math.Floor(p.X / hash.celldim)), int(math.Floor(p.Y / hash.celldim))
}

func (hash *SpaceHash) bin(x, y int) int {
	return int(hashFunc(HashValue(x), HashValue(y), HashValue(len(hash.table))))
}

// Rebuild hashes every point, growing the table with the point count.
func (hash *SpaceHash) Rebuild(points []Vector) {
	if len(points) > 2*len(hash.table) {
		hash.resize(len(points))
	} else {
		hash.Clear()
	}
	for i, p := range points {
		hash.Insert(i, p)
	}
}

func (hash *SpaceHash) Insert(id int, p Vector) {
	idx := hash.bin(hash.cell(p))
	if len(hash.table[idx]) == 0 {
		hash.used = append(hash.used, idx)
	}
	hash.table[idx] = append(hash.table[idx], id)
}

// Query calls f for every id in the bins covering bb. An id is reported at
// most once per bin; distinct cells never report the same bin twice.
func (hash *SpaceHash) Query(bb BB, f func(id int)) {
	l, b := hash.cell(Vector{bb.L, bb.B})
	r, t := hash.cell(Vector{bb.R, bb.T})

	var seen [9]int
	visited := seen[:0]
	for x := l; x <= r; x++ {
		for y := b; y <= t; y++ {
			idx := hash.bin(x, y)
			if slices.Contains(visited, idx) {
				continue
			}
			visited = append(visited, idx)
			for _, id := range hash.table[idx] {
				f(id)
			}
		}
	}
}

func hashFunc(x, y, n HashValue) HashValue {
	return (x*1640531513 ^ y*2654435789) % n
}
