package physics

// CollideEdgeAndCircle computes the manifold between an edge and a circle.
// The circle is matched against the vertex regions and the face of the
// edge. Ghost vertices suppress vertex contacts that belong to a neighbour.
func CollideEdgeAndCircle(m *Manifold, edgeA *Edge, xfA Transform, circleB *Circle, xfB Transform, margin float64) {
	m.PointCount = 0

	// Circle center in the frame of the edge.
	q := xfA.InvPoint(xfB.Point(circleB.P))

	a := edgeA.V1
	b := edgeA.V2
	e := b.Sub(a)

	// Normal points to the right looking from V1 to V2.
	n := e.ReversePerp().Normalize()
	offset := n.Dot(q.Sub(a))
	if edgeA.OneSided && offset < 0 {
		return
	}

	// Barycentric coordinates
	u := e.Dot(b.Sub(q))
	v := e.Dot(q.Sub(a))

	radius := edgeA.R + circleB.R + margin

	cf := ContactFeature{IndexB: 0, TypeB: featureVertex}

	// Region A
	if v <= 0 {
		if q.DistanceSq(a) > radius*radius {
			return
		}
		// Is there an edge connected to A that owns this region?
		if edgeA.HasV0 {
			a1 := edgeA.V0
			e1 := a.Sub(a1)
			if e1.Dot(a.Sub(q)) > 0 {
				return
			}
		}
		cf.IndexA = 0
		cf.TypeA = featureVertex
		m.PointCount = 1
		m.Type = ManifoldCircles
		m.LocalNormal = Vector{}
		m.LocalPoint = a
		m.Points[0].ID = cf
		m.Points[0].LocalPoint = circleB.P
		return
	}

	// Region B
	if u <= 0 {
		if q.DistanceSq(b) > radius*radius {
			return
		}
		if edgeA.HasV3 {
			b2 := edgeA.V3
			e2 := b2.Sub(b)
			if e2.Dot(q.Sub(b)) > 0 {
				return
			}
		}
		cf.IndexA = 1
		cf.TypeA = featureVertex
		m.PointCount = 1
		m.Type = ManifoldCircles
		m.LocalNormal = Vector{}
		m.LocalPoint = b
		m.Points[0].ID = cf
		m.Points[0].LocalPoint = circleB.P
		return
	}

	// Region AB
	den := e.Dot(e)
	invariant(den > 0, "degenerate edge")
	p := a.Mult(u).Add(b.Mult(v)).Mult(1.0 / den)
	if q.DistanceSq(p) > radius*radius {
		return
	}

	if offset < 0 {
		n = n.Neg()
	}

	cf.IndexA = 0
	cf.TypeA = featureFace
	m.PointCount = 1
	m.Type = ManifoldFaceA
	m.LocalNormal = n
	m.LocalPoint = a
	m.Points[0].ID = cf
	m.Points[0].LocalPoint = circleB.P
}

// CollideEdgeAndPolygon treats the edge as a two sided polygon with zero
// area. One-sided edges ignore polygons whose centroid is behind the edge and
// never report the back face.
func CollideEdgeAndPolygon(m *Manifold, edgeA *Edge, xfA Transform, polyB *Polygon, xfB Transform, margin float64) {
	m.PointCount = 0

	n := edgeA.Normal()
	if edgeA.OneSided {
		centroid := xfA.InvPoint(xfB.Point(polyB.Centroid))
		if n.Dot(centroid.Sub(edgeA.V1)) < 0 {
			return
		}
	}

	edge := convexHull{
		vertices: []Vector{edgeA.V1, edgeA.V2},
		normals:  []Vector{n, n.Neg()},
		radius:   edgeA.R,
	}
	b := polyB.hull()
	collideHulls(m, &edge, xfA, &b, xfB, margin)

	if edgeA.OneSided && m.PointCount > 0 && m.Type == ManifoldFaceA && m.LocalNormal.Dot(n) < 0 {
		m.PointCount = 0
	}
}
