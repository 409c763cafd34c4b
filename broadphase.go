package physics

import (
	"cmp"
	"slices"
)

type proxyPair struct {
	a, b int
}

// BroadPhase tracks moved proxies and reports new overlapping pairs from the tree.
type BroadPhase struct {
	tree       *BBTree
	proxyCount int

	moveBuffer []int
	pairBuffer []proxyPair
}

func NewBroadPhase(extension, multiplier float64) *BroadPhase {
	return &BroadPhase{tree: NewBBTree(extension, multiplier)}
}

func (bp *BroadPhase) CreateProxy(bb BB, obj interface{}) int {
	id := bp.tree.CreateProxy(bb, obj)
	bp.proxyCount++
	bp.bufferMove(id)
	return id
}

func (bp *BroadPhase) DestroyProxy(id int) {
	bp.unbufferMove(id)
	bp.proxyCount--
	bp.tree.DestroyProxy(id)
}

func (bp *BroadPhase) MoveProxy(id int, bb BB, displacement Vector) {
	if bp.tree.MoveProxy(id, bb, displacement) {
		bp.bufferMove(id)
	}
}

// TouchProxy forces pair generation for a proxy on the next update.
func (bp *BroadPhase) TouchProxy(id int) {
	bp.bufferMove(id)
}

func (bp *BroadPhase) bufferMove(id int) {
	bp.moveBuffer = append(bp.moveBuffer, id)
}

func (bp *BroadPhase) unbufferMove(id int) {
	for i, m := range bp.moveBuffer {
		if m == id {
			bp.moveBuffer[i] = nullNode
		}
	}
}

func (bp *BroadPhase) TestOverlap(a, b int) bool {
	return bp.tree.GetBB(a).Intersects(bp.tree.GetBB(b))
}

func (bp *BroadPhase) GetFatBB(id int) BB {
	return bp.tree.GetBB(id)
}

func (bp *BroadPhase) GetObj(id int) interface{} {
	return bp.tree.GetObj(id)
}

func (bp *BroadPhase) ProxyCount() int {
	return bp.proxyCount
}

// UpdatePairs queries the tree for every moved proxy and calls f once per
// unique overlapping pair in sorted order.
func (bp *BroadPhase) UpdatePairs(f func(a, b interface{})) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, query := range bp.moveBuffer {
		if query == nullNode {
			continue
		}
		fat := bp.tree.GetBB(query)
		bp.tree.Query(fat, func(id int) bool {
			if id == query {
				return true
			}
			bp.pairBuffer = append(bp.pairBuffer, proxyPair{min(id, query), max(id, query)})
			return true
		})
	}
	bp.moveBuffer = bp.moveBuffer[:0]

	slices.SortFunc(bp.pairBuffer, func(x, y proxyPair) int {
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})

	for i := 0; i < len(bp.pairBuffer); {
		pair := bp.pairBuffer[i]
		f(bp.tree.GetObj(pair.a), bp.tree.GetObj(pair.b))
		i++
		for i < len(bp.pairBuffer) && bp.pairBuffer[i] == pair {
			i++
		}
	}
}

func (bp *BroadPhase) Query(bb BB, f func(id int) bool) {
	bp.tree.Query(bb, f)
}

func (bp *BroadPhase) RayCast(input RayCastInput, f func(input RayCastInput, id int) float64) {
	bp.tree.SegmentQuery(input, f)
}

func (bp *BroadPhase) ShiftOrigin(origin Vector) {
	bp.tree.ShiftOrigin(origin)
}

func (bp *BroadPhase) TreeHeight() int {
	return bp.tree.Height()
}
