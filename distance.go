package physics

// distanceProxy is the convex core of a shape child: its vertices and the
// skin radius around them.
type distanceProxy struct {
	vertices []Vector
	radius   float64
}

func makeDistanceProxy(shape Shape, child int) distanceProxy {
	switch s := shape.(type) {
	case *Circle:
		return distanceProxy{[]Vector{s.P}, s.R}
	case *Polygon:
		return distanceProxy{s.Vertices, s.R}
	case *Edge:
		return distanceProxy{[]Vector{s.V1, s.V2}, s.R}
	case *Chain:
		return distanceProxy{[]Vector{s.Vertices[child], s.Vertices[child+1]}, s.R}
	}
	panic("unknown shape type")
}

func (p *distanceProxy) support(d Vector) int {
	best := 0
	bestValue := p.vertices[0].Dot(d)
	for i := 1; i < len(p.vertices); i++ {
		if value := p.vertices[i].Dot(d); value > bestValue {
			best = i
			bestValue = value
		}
	}
	return best
}

type simplexVertex struct {
	wA, wB Vector // support points in world space
	w      Vector // wB - wA
	a      float64
	indexA int
	indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) searchDirection() Vector {
	switch s.count {
	case 1:
		return s.v[0].w.Neg()
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		if e12.Cross(s.v[0].w.Neg()) > 0 {
			// Origin is left of e12.
			return CrossSV(1.0, e12)
		}
		return CrossVS(e12, 1.0)
	}
	return Vector{}
}

func (s *simplex) witnessPoints() (Vector, Vector) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA := s.v[0].wA.Mult(s.v[0].a).Add(s.v[1].wA.Mult(s.v[1].a))
		pB := s.v[0].wB.Mult(s.v[0].a).Add(s.v[1].wB.Mult(s.v[1].a))
		return pA, pB
	case 3:
		pA := s.v[0].wA.Mult(s.v[0].a).Add(s.v[1].wA.Mult(s.v[1].a)).Add(s.v[2].wA.Mult(s.v[2].a))
		return pA, pA
	}
	return Vector{}, Vector{}
}

// solve2 finds the closest point on a line segment to the origin using
// barycentric coordinates.
func (s *simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	// w1 region
	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}

	// w2 region
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	inv := 1.0 / (d12n1 + d12n2)
	s.v[0].a = d12n1 * inv
	s.v[1].a = d12n2 * inv
	s.count = 2
}

// solve3 checks the vertex, edge and interior regions of a triangle.
func (s *simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	n123 := e12.Cross(e13)
	d123n1 := n123 * w2.Cross(w3)
	d123n2 := n123 * w3.Cross(w1)
	d123n3 := n123 * w1.Cross(w2)

	switch {
	case d12n2 <= 0 && d13n2 <= 0:
		s.v[0].a = 1
		s.count = 1
	case d12n1 > 0 && d12n2 > 0 && d123n3 <= 0:
		inv := 1.0 / (d12n1 + d12n2)
		s.v[0].a = d12n1 * inv
		s.v[1].a = d12n2 * inv
		s.count = 2
	case d13n1 > 0 && d13n2 > 0 && d123n2 <= 0:
		inv := 1.0 / (d13n1 + d13n2)
		s.v[0].a = d13n1 * inv
		s.v[2].a = d13n2 * inv
		s.count = 2
		s.v[1] = s.v[2]
	case d12n1 <= 0 && d23n2 <= 0:
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
	case d13n1 <= 0 && d23n1 <= 0:
		s.v[2].a = 1
		s.count = 1
		s.v[0] = s.v[2]
	case d23n1 > 0 && d23n2 > 0 && d123n1 <= 0:
		inv := 1.0 / (d23n1 + d23n2)
		s.v[1].a = d23n1 * inv
		s.v[2].a = d23n2 * inv
		s.count = 2
		s.v[0] = s.v[2]
	default:
		inv := 1.0 / (d123n1 + d123n2 + d123n3)
		s.v[0].a = d123n1 * inv
		s.v[1].a = d123n2 * inv
		s.v[2].a = d123n3 * inv
		s.count = 3
	}
}

type distanceOutput struct {
	pointA, pointB Vector
	distance       float64
	iterations     int
}

// shapeDistance computes the closest points between two convex cores with
// GJK. When useRadii is set the skins are subtracted and the witness points
// moved onto the surfaces.
func shapeDistance(proxyA *distanceProxy, xfA Transform, proxyB *distanceProxy, xfB Transform, useRadii bool) distanceOutput {
	var s simplex
	s.count = 1
	s.v[0].wA = xfA.Point(proxyA.vertices[0])
	s.v[0].wB = xfB.Point(proxyB.vertices[0])
	s.v[0].w = s.v[0].wB.Sub(s.v[0].wA)
	s.v[0].a = 1

	var saveA, saveB [3]int
	iter := 0
	for iter < gjkMaxIterations {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}

		// The origin is inside the triangle: overlap.
		if s.count == 3 {
			break
		}

		d := s.searchDirection()
		if d.LengthSq() < epsilon*epsilon {
			// The origin is probably on the simplex; treat as overlap.
			break
		}

		vertex := &s.v[s.count]
		vertex.indexA = proxyA.support(xfA.InvVect(d.Neg()))
		vertex.wA = xfA.Point(proxyA.vertices[vertex.indexA])
		vertex.indexB = proxyB.support(xfB.InvVect(d))
		vertex.wB = xfB.Point(proxyB.vertices[vertex.indexB])
		vertex.w = vertex.wB.Sub(vertex.wA)

		iter++

		// A repeated support point means no progress.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.indexA == saveA[i] && vertex.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		s.count++
	}

	out := distanceOutput{iterations: iter}
	out.pointA, out.pointB = s.witnessPoints()
	out.distance = out.pointA.Distance(out.pointB)

	if useRadii {
		rA := proxyA.radius
		rB := proxyB.radius
		if out.distance > rA+rB && out.distance > epsilon {
			out.distance -= rA + rB
			normal := out.pointB.Sub(out.pointA).Normalize()
			out.pointA = out.pointA.Add(normal.Mult(rA))
			out.pointB = out.pointB.Sub(normal.Mult(rB))
		} else {
			p := out.pointA.Lerp(out.pointB, 0.5)
			out.pointA = p
			out.pointB = p
			out.distance = 0
		}
	}
	return out
}

// ShapeDistance returns the distance between the surfaces of two shape
// children and the closest points on each. Overlapping shapes report zero.
func ShapeDistance(shapeA Shape, childA int, xfA Transform, shapeB Shape, childB int, xfB Transform) (float64, Vector, Vector) {
	proxyA := makeDistanceProxy(shapeA, childA)
	proxyB := makeDistanceProxy(shapeB, childB)
	out := shapeDistance(&proxyA, xfA, &proxyB, xfB, true)
	return out.distance, out.pointA, out.pointB
}

// TestOverlap reports whether two shape children overlap.
func TestOverlap(shapeA Shape, childA int, xfA Transform, shapeB Shape, childB int, xfB Transform) bool {
	d, _, _ := ShapeDistance(shapeA, childA, xfA, shapeB, childB, xfB)
	return d < 10*epsilon
}
