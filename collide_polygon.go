package physics

// convexHull is the view of a polygon, or of an edge treated as a 2-gon,
// used by the clipping code.
type convexHull struct {
	vertices []Vector
	normals  []Vector
	radius   float64
}

func (p *Polygon) hull() convexHull {
	return convexHull{p.Vertices, p.Normals, p.R}
}

// findMaxSeparation finds the max separation between poly1 and poly2 using
// edge normals from poly1.
func findMaxSeparation(poly1 *convexHull, xf1 Transform, poly2 *convexHull, xf2 Transform) (int, float64) {
	xf := xf2.MultT(xf1)

	bestIndex := 0
	maxSeparation := -INFINITY
	for i := range poly1.vertices {
		// Normal and vertex of poly1 in the frame of poly2.
		n := xf.Q.Apply(poly1.normals[i])
		v1 := xf.Point(poly1.vertices[i])

		si := INFINITY
		for _, v2 := range poly2.vertices {
			if sij := n.Dot(v2.Sub(v1)); sij < si {
				si = sij
			}
		}

		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}
	return bestIndex, maxSeparation
}

func findIncidentEdge(poly1 *convexHull, xf1 Transform, edge1 int, poly2 *convexHull, xf2 Transform) [2]clipVertex {
	// Reference normal in the frame of poly2.
	normal1 := xf2.Q.ApplyT(xf1.Q.Apply(poly1.normals[edge1]))

	index := 0
	minDot := INFINITY
	for i, n := range poly2.normals {
		if dot := normal1.Dot(n); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := (i1 + 1) % len(poly2.vertices)

	return [2]clipVertex{
		{
			v:  xf2.Point(poly2.vertices[i1]),
			id: ContactFeature{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: featureFace, TypeB: featureVertex},
		},
		{
			v:  xf2.Point(poly2.vertices[i2]),
			id: ContactFeature{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: featureFace, TypeB: featureVertex},
		},
	}
}

// CollidePolygons computes the manifold between two polygons. The reference
// face is the axis of least penetration, with a small bias towards A to keep
// the choice stable between steps.
func CollidePolygons(m *Manifold, polyA *Polygon, xfA Transform, polyB *Polygon, xfB Transform, margin float64) {
	a := polyA.hull()
	b := polyB.hull()
	collideHulls(m, &a, xfA, &b, xfB, margin)
}

func collideHulls(m *Manifold, polyA *convexHull, xfA Transform, polyB *convexHull, xfB Transform, margin float64) {
	m.PointCount = 0
	totalRadius := polyA.radius + polyB.radius
	limit := totalRadius + margin

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > limit {
		return
	}

	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > limit {
		return
	}

	var poly1, poly2 *convexHull
	var xf1, xf2 Transform
	var edge1 int
	flip := false
	tol := 0.1 * margin

	if separationB > separationA+tol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		m.Type = ManifoldFaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		m.Type = ManifoldFaceA
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	count1 := len(poly1.vertices)
	iv1 := edge1
	iv2 := (edge1 + 1) % count1

	v11 := poly1.vertices[iv1]
	v12 := poly1.vertices[iv2]

	localTangent := v12.Sub(v11).Normalize()
	localNormal := CrossVS(localTangent, 1.0)
	planePoint := v11.Lerp(v12, 0.5)

	tangent := xf1.Q.Apply(localTangent)
	normal := CrossVS(tangent, 1.0)

	v11 = xf1.Point(v11)
	v12 = xf1.Point(v12)

	frontOffset := normal.Dot(v11)

	// Side offsets, extended by the skin thickness.
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	var clipPoints1, clipPoints2 [2]clipVertex
	if np := clipSegmentToLine(&clipPoints1, incidentEdge, tangent.Neg(), sideOffset1, iv1); np < 2 {
		return
	}
	if np := clipSegmentToLine(&clipPoints2, clipPoints1, tangent, sideOffset2, iv2); np < 2 {
		return
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := normal.Dot(clipPoints2[i].v) - frontOffset
		if separation > limit {
			continue
		}
		cp := &m.Points[pointCount]
		cp.LocalPoint = xf2.InvPoint(clipPoints2[i].v)
		cp.ID = clipPoints2[i].id
		if flip {
			cp.ID = cp.ID.swap()
		}
		pointCount++
	}
	m.PointCount = pointCount
}
