package physics

import "math"

const nullNode = -1

// Node is a node in the tree. Leaves hold proxies, internal nodes hold the
// union of their children.
type Node struct {
	bb     BB
	obj    interface{}
	parent int
	a, b   int
	// leaf = 0, free node = -1
	height int
}

func (node *Node) IsLeaf() bool {
	return node.a == nullNode
}

// BBTree is a dynamic bounding volume hierarchy. Leaves store fattened boxes
// so small motions do not require an update. The tree is kept balanced with
// rotations on insert and remove.
type BBTree struct {
	root     int
	nodes    []Node
	freeList int

	extension  float64
	multiplier float64

	insertionCount int
}

func NewBBTree(extension, multiplier float64) *BBTree {
	return &BBTree{
		root:       nullNode,
		freeList:   nullNode,
		extension:  extension,
		multiplier: multiplier,
	}
}

func (tree *BBTree) allocateNode() int {
	if tree.freeList == nullNode {
		tree.nodes = append(tree.nodes, Node{})
		id := len(tree.nodes) - 1
		tree.nodes[id] = Node{parent: nullNode, a: nullNode, b: nullNode}
		return id
	}
	id := tree.freeList
	tree.freeList = tree.nodes[id].parent
	tree.nodes[id] = Node{parent: nullNode, a: nullNode, b: nullNode}
	return id
}

func (tree *BBTree) freeNode(id int) {
	tree.nodes[id] = Node{parent: tree.freeList, a: nullNode, b: nullNode, height: -1}
	tree.freeList = id
}

// CreateProxy inserts a leaf for bb and returns its id.
func (tree *BBTree) CreateProxy(bb BB, obj interface{}) int {
	id := tree.allocateNode()
	tree.nodes[id].bb = bb.Fatten(tree.extension)
	tree.nodes[id].obj = obj
	tree.nodes[id].height = 0
	tree.insertLeaf(id)
	return id
}

func (tree *BBTree) DestroyProxy(id int) {
	invariant(id >= 0 && id < len(tree.nodes), "proxy out of range")
	invariant(tree.nodes[id].IsLeaf(), "proxy is not a leaf")
	tree.removeLeaf(id)
	tree.freeNode(id)
}

// MoveProxy refits a leaf. The fat box is extended along the displacement to
// anticipate motion. Returns false when the stored box still contains bb.
func (tree *BBTree) MoveProxy(id int, bb BB, displacement Vector) bool {
	invariant(tree.nodes[id].IsLeaf(), "proxy is not a leaf")
	if tree.nodes[id].bb.Contains(bb) {
		return false
	}
	tree.removeLeaf(id)

	fat := bb.Fatten(tree.extension)
	d := displacement.Mult(tree.multiplier)
	if d.X < 0 {
		fat.L += d.X
	} else {
		fat.R += d.X
	}
	if d.Y < 0 {
		fat.B += d.Y
	} else {
		fat.T += d.Y
	}
	tree.nodes[id].bb = fat

	tree.insertLeaf(id)
	return true
}

func (tree *BBTree) GetBB(id int) BB {
	return tree.nodes[id].bb
}

func (tree *BBTree) GetObj(id int) interface{} {
	return tree.nodes[id].obj
}

func (tree *BBTree) insertLeaf(leaf int) {
	tree.insertionCount++

	if tree.root == nullNode {
		tree.root = leaf
		tree.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling by the perimeter heuristic.
	leafBB := tree.nodes[leaf].bb
	index := tree.root
	for !tree.nodes[index].IsLeaf() {
		node := &tree.nodes[index]
		a, b := node.a, node.b

		area := node.bb.Perimeter()
		combinedArea := node.bb.Merge(leafBB).Perimeter()

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2.0 * combinedArea
		// Minimum cost of pushing the leaf further down the tree.
		inheritance := 2.0 * (combinedArea - area)

		costA := tree.descendCost(a, leafBB) + inheritance
		costB := tree.descendCost(b, leafBB) + inheritance

		if cost < costA && cost < costB {
			break
		}
		if costA < costB {
			index = a
		} else {
			index = b
		}
	}
	sibling := index

	oldParent := tree.nodes[sibling].parent
	newParent := tree.allocateNode()
	tree.nodes[newParent].parent = oldParent
	tree.nodes[newParent].bb = leafBB.Merge(tree.nodes[sibling].bb)
	tree.nodes[newParent].height = tree.nodes[sibling].height + 1

	if oldParent != nullNode {
		if tree.nodes[oldParent].a == sibling {
			tree.nodes[oldParent].a = newParent
		} else {
			tree.nodes[oldParent].b = newParent
		}
	} else {
		tree.root = newParent
	}
	tree.nodes[newParent].a = sibling
	tree.nodes[newParent].b = leaf
	tree.nodes[sibling].parent = newParent
	tree.nodes[leaf].parent = newParent

	tree.refit(tree.nodes[leaf].parent)
}

func (tree *BBTree) descendCost(child int, leafBB BB) float64 {
	node := &tree.nodes[child]
	merged := leafBB.Merge(node.bb).Perimeter()
	if node.IsLeaf() {
		return merged
	}
	return merged - node.bb.Perimeter()
}

// refit walks to the root fixing heights and boxes, balancing on the way.
func (tree *BBTree) refit(index int) {
	for index != nullNode {
		index = tree.balance(index)

		node := &tree.nodes[index]
		a := &tree.nodes[node.a]
		b := &tree.nodes[node.b]
		node.height = 1 + max(a.height, b.height)
		node.bb = a.bb.Merge(b.bb)

		index = node.parent
	}
}

func (tree *BBTree) removeLeaf(leaf int) {
	if leaf == tree.root {
		tree.root = nullNode
		return
	}

	parent := tree.nodes[leaf].parent
	grandParent := tree.nodes[parent].parent
	var sibling int
	if tree.nodes[parent].a == leaf {
		sibling = tree.nodes[parent].b
	} else {
		sibling = tree.nodes[parent].a
	}

	if grandParent != nullNode {
		if tree.nodes[grandParent].a == parent {
			tree.nodes[grandParent].a = sibling
		} else {
			tree.nodes[grandParent].b = sibling
		}
		tree.nodes[sibling].parent = grandParent
		tree.freeNode(parent)
		tree.refit(grandParent)
	} else {
		tree.root = sibling
		tree.nodes[sibling].parent = nullNode
		tree.freeNode(parent)
	}
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the new root of the subtree.
func (tree *BBTree) balance(iA int) int {
	A := &tree.nodes[iA]
	if A.IsLeaf() || A.height < 2 {
		return iA
	}

	iB := A.a
	iC := A.b
	B := &tree.nodes[iB]
	C := &tree.nodes[iC]

	balance := C.height - B.height

	// Rotate C up
	if balance > 1 {
		iF := C.a
		iG := C.b
		F := &tree.nodes[iF]
		G := &tree.nodes[iG]

		C.a = iA
		C.parent = A.parent
		A.parent = iC
		tree.replaceChild(C.parent, iA, iC)

		if F.height > G.height {
			C.b = iF
			A.b = iG
			G.parent = iA
			A.bb = B.bb.Merge(G.bb)
			C.bb = A.bb.Merge(F.bb)
			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.b = iG
			A.b = iF
			F.parent = iA
			A.bb = B.bb.Merge(F.bb)
			C.bb = A.bb.Merge(G.bb)
			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}
		return iC
	}

	// Rotate B up
	if balance < -1 {
		iD := B.a
		iE := B.b
		D := &tree.nodes[iD]
		E := &tree.nodes[iE]

		B.a = iA
		B.parent = A.parent
		A.parent = iB
		tree.replaceChild(B.parent, iA, iB)

		if D.height > E.height {
			B.b = iD
			A.a = iE
			E.parent = iA
			A.bb = C.bb.Merge(E.bb)
			B.bb = A.bb.Merge(D.bb)
			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.b = iE
			A.a = iD
			D.parent = iA
			A.bb = C.bb.Merge(D.bb)
			B.bb = A.bb.Merge(E.bb)
			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}
		return iB
	}

	return iA
}

func (tree *BBTree) replaceChild(parent, old, replacement int) {
	if parent == nullNode {
		tree.root = replacement
		return
	}
	if tree.nodes[parent].a == old {
		tree.nodes[parent].a = replacement
	} else {
		invariant(tree.nodes[parent].b == old, "broken parent link")
		tree.nodes[parent].b = replacement
	}
}

// Query calls f for every leaf whose fat box overlaps bb until f returns false.
func (tree *BBTree) Query(bb BB, f func(id int) bool) {
	if tree.root == nullNode {
		return
	}
	stack := make([]int, 0, 64)
	stack = append(stack, tree.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &tree.nodes[id]
		if !node.bb.Intersects(bb) {
			continue
		}
		if node.IsLeaf() {
			if !f(id) {
				return
			}
		} else {
			stack = append(stack, node.a, node.b)
		}
	}
}

// SegmentQuery casts a ray through the tree. f returns 0 to stop, a negative
// value to ignore the leaf, or the fraction to clip the ray to.
func (tree *BBTree) SegmentQuery(input RayCastInput, f func(input RayCastInput, id int) float64) {
	if tree.root == nullNode {
		return
	}
	p1 := input.P1
	p2 := input.P2
	r := p2.Sub(p1).Normalize()

	// v is perpendicular to the segment.
	v := CrossSV(1.0, r)
	absV := v.Abs()

	maxFraction := input.MaxFraction
	segmentBB := func() BB {
		t := p1.Add(p2.Sub(p1).Mult(maxFraction))
		return BB{math.Min(p1.X, t.X), math.Min(p1.Y, t.Y), math.Max(p1.X, t.X), math.Max(p1.Y, t.Y)}
	}
	bb := segmentBB()

	stack := make([]int, 0, 64)
	stack = append(stack, tree.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &tree.nodes[id]
		if !node.bb.Intersects(bb) {
			continue
		}

		// Separating axis for the segment: |dot(v, p1 - c)| > dot(|v|, h)
		c := node.bb.Center()
		h := node.bb.Extents()
		if math.Abs(v.Dot(p1.Sub(c)))-absV.Dot(h) > 0 {
			continue
		}

		if node.IsLeaf() {
			sub := RayCastInput{P1: input.P1, P2: input.P2, MaxFraction: maxFraction}
			value := f(sub, id)
			if value == 0 {
				return
			}
			if value > 0 {
				maxFraction = value
				bb = segmentBB()
			}
		} else {
			stack = append(stack, node.a, node.b)
		}
	}
}

// ShiftOrigin translates every node by -origin.
func (tree *BBTree) ShiftOrigin(origin Vector) {
	shift := origin.Neg()
	for i := range tree.nodes {
		if tree.nodes[i].height < 0 {
			continue
		}
		tree.nodes[i].bb = tree.nodes[i].bb.Offset(shift)
	}
}

func (tree *BBTree) Height() int {
	if tree.root == nullNode {
		return 0
	}
	return tree.nodes[tree.root].height
}

// MaxBalance is the largest height difference between siblings.
func (tree *BBTree) MaxBalance() int {
	maxBalance := 0
	for i := range tree.nodes {
		node := &tree.nodes[i]
		if node.height <= 1 {
			continue
		}
		balance := tree.nodes[node.b].height - tree.nodes[node.a].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = max(maxBalance, balance)
	}
	return maxBalance
}

// AreaRatio is the total perimeter of internal nodes over the root perimeter.
func (tree *BBTree) AreaRatio() float64 {
	if tree.root == nullNode {
		return 0
	}
	rootArea := tree.nodes[tree.root].bb.Perimeter()
	var total float64
	for i := range tree.nodes {
		if tree.nodes[i].height < 0 {
			continue
		}
		total += tree.nodes[i].bb.Perimeter()
	}
	return total / rootArea
}

// Validate checks structure, heights and boxes. Used by tests.
func (tree *BBTree) Validate() bool {
	if tree.root == nullNode {
		return true
	}
	if tree.nodes[tree.root].parent != nullNode {
		return false
	}
	return tree.validate(tree.root)
}

func (tree *BBTree) validate(id int) bool {
	node := &tree.nodes[id]
	if node.IsLeaf() {
		return node.b == nullNode && node.height == 0
	}
	a := &tree.nodes[node.a]
	b := &tree.nodes[node.b]
	if a.parent != id || b.parent != id {
		return false
	}
	if node.height != 1+max(a.height, b.height) {
		return false
	}
	if !node.bb.Contains(a.bb) || !node.bb.Contains(b.bb) {
		return false
	}
	return tree.validate(node.a) && tree.validate(node.b)
}
