package physics

// Contact feature types.
const (
	featureVertex uint8 = iota
	featureFace
)

// ContactFeature identifies the pair of features that produced a contact
// point. It is used to match points across steps for warm starting.
type ContactFeature struct {
	IndexA, IndexB uint8
	TypeA, TypeB   uint8
}

func (cf ContactFeature) Key() uint32 {
	return uint32(cf.IndexA) | uint32(cf.IndexB)<<8 | uint32(cf.TypeA)<<16 | uint32(cf.TypeB)<<24
}

func (cf ContactFeature) swap() ContactFeature {
	return ContactFeature{cf.IndexB, cf.IndexA, cf.TypeB, cf.TypeA}
}

// ManifoldPoint is a contact point in the local frame of one body together
// with the impulses accumulated for it.
type ManifoldPoint struct {
	LocalPoint     Vector
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactFeature
}

type ManifoldType int

const (
	ManifoldCircles ManifoldType = iota
	ManifoldFaceA
	ManifoldFaceB
)

// Manifold describes up to two contact points between two convex shapes.
// For circles LocalPoint is the center of A and Points hold the center of B.
// For faceA LocalPoint and LocalNormal describe the reference face of A and
// Points are the clip points on B, and faceB is the mirror image.
type Manifold struct {
	Points      [MaxManifoldPoints]ManifoldPoint
	LocalNormal Vector
	LocalPoint  Vector
	Type        ManifoldType
	PointCount  int
}

// WorldManifold is a manifold expressed in world coordinates. The normal
// points from A to B and each separation is negative when overlapping.
type WorldManifold struct {
	Normal      Vector
	Points      [MaxManifoldPoints]Vector
	Separations [MaxManifoldPoints]float64
}

func (wm *WorldManifold) Initialize(m *Manifold, xfA Transform, radiusA float64, xfB Transform, radiusB float64) {
	if m.PointCount == 0 {
		return
	}

	switch m.Type {
	case ManifoldCircles:
		wm.Normal = Vector{1, 0}
		pointA := xfA.Point(m.LocalPoint)
		pointB := xfB.Point(m.Points[0].LocalPoint)
		if pointA.DistanceSq(pointB) > epsilon*epsilon {
			wm.Normal = pointB.Sub(pointA).Normalize()
		}
		cA := pointA.Add(wm.Normal.Mult(radiusA))
		cB := pointB.Sub(wm.Normal.Mult(radiusB))
		wm.Points[0] = cA.Lerp(cB, 0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.Vect(m.LocalNormal)
		planePoint := xfA.Point(m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfB.Point(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mult(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mult(radiusB))
			wm.Points[i] = cA.Lerp(cB, 0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.Vect(m.LocalNormal)
		planePoint := xfB.Point(m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfA.Point(m.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mult(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mult(radiusA))
			wm.Points[i] = cA.Lerp(cB, 0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}
		// Ensure normal points from A to B.
		wm.Normal = wm.Normal.Neg()
	}
}

type PointState int

const (
	NullState PointState = iota
	AddState
	PersistState
	RemoveState
)

// GetPointStates compares two manifolds by feature key.
func GetPointStates(m1, m2 *Manifold) (state1, state2 [MaxManifoldPoints]PointState) {
	for i := 0; i < m1.PointCount; i++ {
		key := m1.Points[i].ID.Key()
		state1[i] = RemoveState
		for j := 0; j < m2.PointCount; j++ {
			if m2.Points[j].ID.Key() == key {
				state1[i] = PersistState
				break
			}
		}
	}
	for i := 0; i < m2.PointCount; i++ {
		key := m2.Points[i].ID.Key()
		state2[i] = AddState
		for j := 0; j < m1.PointCount; j++ {
			if m1.Points[j].ID.Key() == key {
				state2[i] = PersistState
				break
			}
		}
	}
	return
}

type clipVertex struct {
	v  Vector
	id ContactFeature
}

// clipSegmentToLine keeps the part of the segment behind the plane.
func clipSegmentToLine(vOut *[2]clipVertex, vIn [2]clipVertex, normal Vector, offset float64, vertexIndexA int) int {
	numOut := 0

	distance0 := normal.Dot(vIn[0].v) - offset
	distance1 := normal.Dot(vIn[1].v) - offset

	if distance0 <= 0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if distance1 <= 0 {
		vOut[numOut] = vIn[1]
		numOut++
	}

	if distance0*distance1 < 0 {
		interp := distance0 / (distance0 - distance1)
		vOut[numOut].v = vIn[0].v.Add(vIn[1].v.Sub(vIn[0].v).Mult(interp))
		vOut[numOut].id = ContactFeature{
			IndexA: uint8(vertexIndexA),
			IndexB: vIn[0].id.IndexB,
			TypeA:  featureVertex,
			TypeB:  featureFace,
		}
		numOut++
	}
	return numOut
}

// CollideCircles computes the manifold between two circles. Circles within
// margin of touching get a point.
func CollideCircles(m *Manifold, circleA *Circle, xfA Transform, circleB *Circle, xfB Transform, margin float64) {
	m.PointCount = 0

	pA := xfA.Point(circleA.P)
	pB := xfB.Point(circleB.P)

	distSqr := pB.DistanceSq(pA)
	radius := circleA.R + circleB.R + margin
	if distSqr > radius*radius {
		return
	}

	m.Type = ManifoldCircles
	m.LocalPoint = circleA.P
	m.LocalNormal = Vector{}
	m.PointCount = 1
	m.Points[0].LocalPoint = circleB.P
	m.Points[0].ID = ContactFeature{}
}

// CollidePolygonAndCircle computes the manifold between a polygon and a circle.
func CollidePolygonAndCircle(m *Manifold, polyA *Polygon, xfA Transform, circleB *Circle, xfB Transform, margin float64) {
	m.PointCount = 0

	// Circle position in the frame of the polygon.
	c := xfB.Point(circleB.P)
	cLocal := xfA.InvPoint(c)

	normalIndex := 0
	separation := -INFINITY
	radius := polyA.R + circleB.R
	limit := radius + margin
	count := len(polyA.Vertices)

	for i := 0; i < count; i++ {
		s := polyA.Normals[i].Dot(cLocal.Sub(polyA.Vertices[i]))
		if s > limit {
			return
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	v1 := polyA.Vertices[normalIndex]
	v2 := polyA.Vertices[(normalIndex+1)%count]

	m.Type = ManifoldFaceA
	m.Points[0].LocalPoint = circleB.P
	m.Points[0].ID = ContactFeature{}

	// Center is inside the polygon.
	if separation < epsilon {
		m.PointCount = 1
		m.LocalNormal = polyA.Normals[normalIndex]
		m.LocalPoint = v1.Lerp(v2, 0.5)
		return
	}

	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))
	switch {
	case u1 <= 0:
		if cLocal.DistanceSq(v1) > limit*limit {
			return
		}
		m.PointCount = 1
		m.LocalNormal = cLocal.Sub(v1).Normalize()
		m.LocalPoint = v1
	case u2 <= 0:
		if cLocal.DistanceSq(v2) > limit*limit {
			return
		}
		m.PointCount = 1
		m.LocalNormal = cLocal.Sub(v2).Normalize()
		m.LocalPoint = v2
	default:
		faceCenter := v1.Lerp(v2, 0.5)
		if cLocal.Sub(faceCenter).Dot(polyA.Normals[normalIndex]) > limit {
			return
		}
		m.PointCount = 1
		m.LocalNormal = polyA.Normals[normalIndex]
		m.LocalPoint = faceCenter
	}
}

type collideFunc func(m *Manifold, fA *Fixture, childA int, xfA Transform, fB *Fixture, childB int, xfB Transform, margin float64)

// collideRegistry dispatches on shape types. A nil entry means the pair does
// not collide; the contact manager orders fixtures so [A][B] is populated.
var collideRegistry = [shapeTypeCount][shapeTypeCount]collideFunc{
	ShapeCircle: {
		ShapeCircle: func(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform, margin float64) {
			CollideCircles(m, fA.shape.(*Circle), xfA, fB.shape.(*Circle), xfB, margin)
		},
	},
	ShapeEdge: {
		ShapeCircle: func(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform, margin float64) {
			CollideEdgeAndCircle(m, fA.shape.(*Edge), xfA, fB.shape.(*Circle), xfB, margin)
		},
		ShapePolygon: func(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform, margin float64) {
			CollideEdgeAndPolygon(m, fA.shape.(*Edge), xfA, fB.shape.(*Polygon), xfB, margin)
		},
	},
	ShapePolygon: {
		ShapeCircle: func(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform, margin float64) {
			CollidePolygonAndCircle(m, fA.shape.(*Polygon), xfA, fB.shape.(*Circle), xfB, margin)
		},
		ShapePolygon: func(m *Manifold, fA *Fixture, _ int, xfA Transform, fB *Fixture, _ int, xfB Transform, margin float64) {
			CollidePolygons(m, fA.shape.(*Polygon), xfA, fB.shape.(*Polygon), xfB, margin)
		},
	},
	ShapeChain: {
		ShapeCircle: func(m *Manifold, fA *Fixture, childA int, xfA Transform, fB *Fixture, _ int, xfB Transform, margin float64) {
			CollideEdgeAndCircle(m, fA.shape.(*Chain).ChildEdge(childA), xfA, fB.shape.(*Circle), xfB, margin)
		},
		ShapePolygon: func(m *Manifold, fA *Fixture, childA int, xfA Transform, fB *Fixture, _ int, xfB Transform, margin float64) {
			CollideEdgeAndPolygon(m, fA.shape.(*Chain).ChildEdge(childA), xfA, fB.shape.(*Polygon), xfB, margin)
		},
	},
}

// Collide computes the manifold for any supported pair of shapes. Pairs of
// edges and chains do not collide and yield an empty manifold. Shapes closer
// than margin beyond their skins already produce points.
func Collide(m *Manifold, shapeA Shape, childA int, xfA Transform, shapeB Shape, childB int, xfB Transform, margin float64) {
	m.PointCount = 0
	fA := &Fixture{shape: shapeA}
	fB := &Fixture{shape: shapeB}
	if f := collideRegistry[shapeA.Type()][shapeB.Type()]; f != nil {
		f(m, fA, childA, xfA, fB, childB, xfB, margin)
		return
	}
	if f := collideRegistry[shapeB.Type()][shapeA.Type()]; f != nil {
		f(m, fB, childB, xfB, fA, childA, xfA, margin)
		// Express the result from A's point of view.
		flipManifold(m)
	}
}

// flipManifold turns a manifold computed as (B, A) into one for (A, B).
func flipManifold(m *Manifold) {
	if m.PointCount == 0 {
		return
	}
	switch m.Type {
	case ManifoldCircles:
		// Only one point; swap the centers.
		m.LocalPoint, m.Points[0].LocalPoint = m.Points[0].LocalPoint, m.LocalPoint
	case ManifoldFaceA:
		m.Type = ManifoldFaceB
	case ManifoldFaceB:
		m.Type = ManifoldFaceA
	}
	for i := 0; i < m.PointCount; i++ {
		m.Points[i].ID = m.Points[i].ID.swap()
	}
}
