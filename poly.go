package physics

import "fmt"

// Polygon is a convex polygon with counter-clockwise winding. Normals[i] is
// the outward normal of the edge from Vertices[i] to Vertices[i+1].
type Polygon struct {
	Centroid Vector
	Vertices []Vector
	Normals  []Vector
	R        float64
}

// NewPolygon creates a polygon from convex vertices in either winding.
// Concave, collinear or zero-area input is rejected.
func NewPolygon(verts []Vector) (*Polygon, error) {
	welded := weldVertices(verts)
	if len(welded) < 3 || len(welded) > MaxPolygonVertices {
		return nil, fmt.Errorf("polygon with %d vertices: %w", len(welded), ErrInvalidShape)
	}
	hull := ConvexHull(welded)
	if len(hull) != len(welded) {
		return nil, fmt.Errorf("polygon is not strictly convex: %w", ErrInvalidShape)
	}
	return newPolygonFromHull(hull)
}

// NewConvexHull creates the polygon enclosing a point cloud.
func NewConvexHull(points []Vector) (*Polygon, error) {
	welded := weldVertices(points)
	if len(welded) < 3 {
		return nil, fmt.Errorf("hull of %d points: %w", len(welded), ErrInvalidShape)
	}
	hull := ConvexHull(welded)
	if len(hull) < 3 || len(hull) > MaxPolygonVertices {
		return nil, fmt.Errorf("hull with %d vertices: %w", len(hull), ErrInvalidShape)
	}
	return newPolygonFromHull(hull)
}

// NewBox creates a box of the given full width and height centered on the origin.
func NewBox(w, h float64) (*Polygon, error) {
	return NewOrientedBox(w, h, Vector{}, 0)
}

func NewOrientedBox(w, h float64, center Vector, angle float64) (*Polygon, error) {
	if !(w > 0) || !(h > 0) {
		return nil, fmt.Errorf("box %vx%v: %w", w, h, ErrInvalidShape)
	}
	hw := w / 2.0
	hh := h / 2.0
	xf := NewTransformRigid(center, angle)
	return newPolygonFromHull([]Vector{
		xf.Point(Vector{-hw, -hh}),
		xf.Point(Vector{hw, -hh}),
		xf.Point(Vector{hw, hh}),
		xf.Point(Vector{-hw, hh}),
	})
}

func newPolygonFromHull(hull []Vector) (*Polygon, error) {
	count := len(hull)
	p := &Polygon{
		Vertices: hull,
		Normals:  make([]Vector, count),
		R:        PolygonRadius,
	}
	for i := 0; i < count; i++ {
		edge := hull[(i+1)%count].Sub(hull[i])
		n, length := edge.ReversePerp().Normalized()
		if length < epsilon {
			return nil, fmt.Errorf("polygon has a zero length edge: %w", ErrInvalidShape)
		}
		p.Normals[i] = n
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Centroid = centroidForPoly(hull)
	return p, nil
}

// weldVertices drops points closer than half a slop to an earlier point.
func weldVertices(verts []Vector) []Vector {
	tol := 0.5 * DefaultLinearSlop
	out := make([]Vector, 0, len(verts))
	for _, v := range verts {
		if !v.IsValid() {
			continue
		}
		unique := true
		for _, u := range out {
			if v.DistanceSq(u) < tol*tol {
				unique = false
				break
			}
		}
		if unique {
			out = append(out, v)
		}
	}
	return out
}

func areaForPoly(verts []Vector) float64 {
	var area float64
	count := len(verts)
	for i := 0; i < count; i++ {
		area += verts[i].Cross(verts[(i+1)%count])
	}
	return 0.5 * area
}

func centroidForPoly(verts []Vector) Vector {
	var sum float64
	var vsum Vector
	count := len(verts)
	for i := 0; i < count; i++ {
		v1 := verts[i]
		v2 := verts[(i+1)%count]
		cross := v1.Cross(v2)
		sum += cross
		vsum = vsum.Add(v1.Add(v2).Mult(cross))
	}
	return vsum.Mult(1.0 / (3.0 * sum))
}

func (p *Polygon) isShape() {}

func (p *Polygon) Type() ShapeType {
	return ShapePolygon
}

func (p *Polygon) Radius() float64 {
	return p.R
}

func (p *Polygon) ChildCount() int {
	return 1
}

func (p *Polygon) Clone() Shape {
	clone := *p
	clone.Vertices = append([]Vector(nil), p.Vertices...)
	clone.Normals = append([]Vector(nil), p.Normals...)
	return &clone
}

func (p *Polygon) Validate() error {
	count := len(p.Vertices)
	if count < 3 || count > MaxPolygonVertices || len(p.Normals) != count {
		return fmt.Errorf("polygon with %d vertices: %w", count, ErrInvalidShape)
	}
	if areaForPoly(p.Vertices) <= epsilon {
		return fmt.Errorf("polygon area must be positive: %w", ErrInvalidShape)
	}
	for i := 0; i < count; i++ {
		i2 := (i + 1) % count
		edge := p.Vertices[i2].Sub(p.Vertices[i])
		for j := 0; j < count; j++ {
			if j == i || j == i2 {
				continue
			}
			if edge.Cross(p.Vertices[j].Sub(p.Vertices[i])) <= 0 {
				return fmt.Errorf("polygon is not convex: %w", ErrInvalidShape)
			}
		}
	}
	return nil
}

func (p *Polygon) ComputeBB(xf Transform, child int) BB {
	lower := xf.Point(p.Vertices[0])
	upper := lower
	for _, v := range p.Vertices[1:] {
		w := xf.Point(v)
		lower = lower.Min(w)
		upper = upper.Max(w)
	}
	return BB{lower.X - p.R, lower.Y - p.R, upper.X + p.R, upper.Y + p.R}
}

// ComputeMass integrates over a triangle fan from the first vertex to keep
// precision for polygons far from the origin.
func (p *Polygon) ComputeMass(density float64) MassData {
	const inv3 = 1.0 / 3.0
	var center Vector
	var area, inertia float64
	s := p.Vertices[0]
	count := len(p.Vertices)

	for i := 0; i < count; i++ {
		e1 := p.Vertices[i].Sub(s)
		e2 := p.Vertices[(i+1)%count].Sub(s)
		d := e1.Cross(e2)
		triangleArea := 0.5 * d
		area += triangleArea
		center = center.Add(e1.Add(e2).Mult(triangleArea * inv3))

		intx2 := e1.X*e1.X + e2.X*e1.X + e2.X*e2.X
		inty2 := e1.Y*e1.Y + e2.Y*e1.Y + e2.Y*e2.Y
		inertia += (0.25 * inv3 * d) * (intx2 + inty2)
	}

	mass := density * area
	center = center.Mult(1.0 / area)
	md := MassData{Mass: mass, Center: center.Add(s)}
	md.I = density*inertia + mass*(md.Center.Dot(md.Center)-center.Dot(center))
	return md
}

func (p *Polygon) TestPoint(xf Transform, point Vector) bool {
	local := xf.InvPoint(point)
	for i, n := range p.Normals {
		if n.Dot(local.Sub(p.Vertices[i])) > 0 {
			return false
		}
	}
	return true
}

func (p *Polygon) ComputeDistance(xf Transform, point Vector, child int) (float64, Vector) {
	local := xf.InvPoint(point)
	maxDistance := -INFINITY
	var normal Vector
	for i, n := range p.Normals {
		d := n.Dot(local.Sub(p.Vertices[i]))
		if d > maxDistance {
			maxDistance = d
			normal = n
		}
	}
	if maxDistance <= 0 {
		return maxDistance, xf.Vect(normal)
	}

	// Outside: the nearest feature is an edge or a vertex.
	count := len(p.Vertices)
	best := INFINITY
	var closest Vector
	for i := 0; i < count; i++ {
		q := local.ClosestPointOnSegment(p.Vertices[i], p.Vertices[(i+1)%count])
		if d := local.DistanceSq(q); d < best {
			best = d
			closest = q
		}
	}
	n, length := local.Sub(closest).Normalized()
	return length, xf.Vect(n)
}

func (p *Polygon) RayCast(input RayCastInput, xf Transform, child int) (RayCastOutput, bool) {
	p1 := xf.InvPoint(input.P1)
	p2 := xf.InvPoint(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i, n := range p.Normals {
		numerator := n.Dot(p.Vertices[i].Sub(p1))
		denominator := n.Dot(d)

		if denominator == 0 {
			if numerator < 0 {
				return RayCastOutput{}, false
			}
		} else if denominator < 0 && numerator < lower*denominator {
			lower = numerator / denominator
			index = i
		} else if denominator > 0 && numerator < upper*denominator {
			upper = numerator / denominator
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index >= 0 {
		return RayCastOutput{Fraction: lower, Normal: xf.Vect(p.Normals[index])}, true
	}
	return RayCastOutput{}, false
}

// ConvexHull returns the counter-clockwise hull of verts using QuickHull.
// Collinear points are dropped. The input slice is not modified.
func ConvexHull(verts []Vector) []Vector {
	count := len(verts)
	if count == 0 {
		return nil
	}
	result := append([]Vector(nil), verts...)
	start, end := loopIndexes(result)
	if start == end {
		return result[:1]
	}

	result[0], result[start] = result[start], result[0]
	if end == 0 {
		end = start
	}
	result[1], result[end] = result[end], result[1]

	a := result[0]
	b := result[1]
	n := qhullReduce(0, result[2:], count-2, a, b, a, result[1:]) + 1
	return result[:n]
}

func loopIndexes(verts []Vector) (int, int) {
	start := 0
	end := 0

	min := verts[0]
	max := min

	for i, v := range verts {
		if v.X < min.X || (v.X == min.X && v.Y < min.Y) {
			min = v
			start = i
		} else if v.X > max.X || (v.X == max.X && v.Y > max.Y) {
			max = v
			end = i
		}
	}

	return start, end
}

func qhullReduce(tol float64, verts []Vector, count int, a, pivot, b Vector, result []Vector) int {
	if count < 0 {
		return 0
	}

	if count == 0 {
		result[0] = pivot
		return 1
	}

	leftCount := qhullPartition(verts, count, a, pivot, tol)
	index := qhullReduce(tol, verts[1:], leftCount-1, a, verts[0], pivot, result)

	result[index] = pivot
	index++

	rightCount := qhullPartition(verts[leftCount:], count-leftCount, pivot, b, tol)
	if rightCount == 0 {
		return index
	}

	return index + qhullReduce(tol, verts[leftCount+1:], rightCount-1, pivot, verts[leftCount], b, result[index:])
}

func qhullPartition(verts []Vector, count int, a, b Vector, tol float64) int {
	if count == 0 {
		return 0
	}

	max := 0.0
	pivot := 0

	delta := b.Sub(a)
	valueTol := tol * delta.Length()

	head := 0
	for tail := count - 1; head <= tail; {
		value := verts[head].Sub(a).Cross(delta)
		if value > valueTol {
			if value > max {
				max = value
				pivot = head
			}

			head++
		} else {
			verts[head], verts[tail] = verts[tail], verts[head]
			tail--
		}
	}

	if pivot != 0 {
		verts[0], verts[pivot] = verts[pivot], verts[0]
	}
	return head
}
