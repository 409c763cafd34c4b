package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeCircleMass(t *testing.T) {
	circle, err := NewCircle(Vector{}, 2)
	require.NoError(t, err)

	md := circle.ComputeMass(1)
	assert.InDelta(t, 4*math.Pi, md.Mass, 1e-12)
	assert.Equal(t, Vector{}, md.Center)
	assert.InDelta(t, 0.5*md.Mass*4, md.I, 1e-12)

	// Offset circles carry the parallel axis term.
	offset, err := NewCircle(Vector{1, 0}, 1)
	require.NoError(t, err)
	md = offset.ComputeMass(1)
	assert.InDelta(t, md.Mass*(0.5+1), md.I, 1e-12)
}

func TestShapeCircleInvalid(t *testing.T) {
	_, err := NewCircle(Vector{}, 0)
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = NewCircle(Vector{math.NaN(), 0}, 1)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestShapeBoxMass(t *testing.T) {
	box, err := NewBox(2, 4)
	require.NoError(t, err)

	md := box.ComputeMass(3)
	assert.InDelta(t, 24, md.Mass, 1e-9)
	assert.InDelta(t, 0, md.Center.X, 1e-12)
	assert.InDelta(t, 0, md.Center.Y, 1e-12)
	// m (w^2 + h^2) / 12
	assert.InDelta(t, 24*(4+16)/12.0, md.I, 1e-9)

	shifted, err := NewOrientedBox(2, 4, Vector{10, 0}, 0)
	require.NoError(t, err)
	md = shifted.ComputeMass(3)
	assert.InDelta(t, 10, md.Center.X, 1e-9)
	assert.InDelta(t, 24*(4+16)/12.0+24*100, md.I, 1e-6)
}

func TestShapePolygonValidation(t *testing.T) {
	tests := []struct {
		name  string
		verts []Vector
	}{
		{"too few", []Vector{{0, 0}, {1, 0}}},
		{"collinear", []Vector{{0, 0}, {1, 0}, {2, 0}}},
		{"concave", []Vector{{0, 0}, {2, 0}, {1, 0.5}, {2, 2}, {0, 2}}},
		{"welded", []Vector{{0, 0}, {0.001, 0}, {0, 0.001}}},
		{"too many", func() []Vector {
			var verts []Vector
			for i := 0; i < MaxPolygonVertices+1; i++ {
				verts = append(verts, ForAngle(2*math.Pi*float64(i)/float64(MaxPolygonVertices+1)))
			}
			return verts
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolygon(tt.verts)
			assert.ErrorIs(t, err, ErrInvalidShape)
		})
	}
}

func TestShapePolygonWinding(t *testing.T) {
	// Clockwise input is accepted and stored counter-clockwise.
	poly, err := NewPolygon([]Vector{{0, 0}, {0, 1}, {1, 1}, {1, 0}})
	require.NoError(t, err)
	assert.Greater(t, areaForPoly(poly.Vertices), 0.0)
	for i, n := range poly.Normals {
		assert.InDelta(t, 1, n.Length(), 1e-12)
		// Every other vertex is behind each edge.
		for j, v := range poly.Vertices {
			if j == i || j == (i+1)%len(poly.Vertices) {
				continue
			}
			assert.Less(t, n.Dot(v.Sub(poly.Vertices[i])), 0.0)
		}
	}
	assert.InDelta(t, 0.5, poly.Centroid.X, 1e-12)
	assert.InDelta(t, 0.5, poly.Centroid.Y, 1e-12)
}

func TestShapeConvexHull(t *testing.T) {
	points := []Vector{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 0}}
	poly, err := NewConvexHull(points)
	require.NoError(t, err)
	assert.Len(t, poly.Vertices, 4)
}

func TestShapeTestPoint(t *testing.T) {
	box, err := NewBox(2, 2)
	require.NoError(t, err)
	xf := NewTransformRigid(Vector{5, 0}, math.Pi/4)

	assert.True(t, box.TestPoint(xf, Vector{5, 0}))
	assert.True(t, box.TestPoint(xf, Vector{5, 1.3}))
	assert.False(t, box.TestPoint(xf, Vector{6.1, 0.9}))

	circle, err := NewCircle(Vector{1, 0}, 0.5)
	require.NoError(t, err)
	assert.True(t, circle.TestPoint(xf, xf.Point(Vector{1.2, 0})))
	assert.False(t, circle.TestPoint(xf, Vector{5, 0}))

	edge, err := NewEdge(Vector{0, 0}, Vector{1, 0})
	require.NoError(t, err)
	assert.False(t, edge.TestPoint(NewTransformIdentity(), Vector{0.5, 0}))
}

func TestShapeRayCast(t *testing.T) {
	identity := NewTransformIdentity()

	circle, err := NewCircle(Vector{}, 1)
	require.NoError(t, err)
	out, hit := circle.RayCast(RayCastInput{P1: Vector{-3, 0}, P2: Vector{3, 0}, MaxFraction: 1}, identity, 0)
	require.True(t, hit)
	assert.InDelta(t, 2.0/6.0, out.Fraction, 1e-12)
	assert.InDelta(t, -1, out.Normal.X, 1e-12)

	// Too short to reach.
	_, hit = circle.RayCast(RayCastInput{P1: Vector{-3, 0}, P2: Vector{3, 0}, MaxFraction: 0.2}, identity, 0)
	assert.False(t, hit)

	box, err := NewBox(2, 2)
	require.NoError(t, err)
	out, hit = box.RayCast(RayCastInput{P1: Vector{0, 5}, P2: Vector{0, -5}, MaxFraction: 1}, identity, 0)
	require.True(t, hit)
	assert.InDelta(t, 0.4, out.Fraction, 1e-12)
	assert.InDelta(t, 1, out.Normal.Y, 1e-12)

	// Rays starting inside report nothing.
	_, hit = box.RayCast(RayCastInput{P1: Vector{0, 0}, P2: Vector{0, -5}, MaxFraction: 1}, identity, 0)
	assert.False(t, hit)

	edge, err := NewEdge(Vector{-1, 0}, Vector{1, 0})
	require.NoError(t, err)
	out, hit = edge.RayCast(RayCastInput{P1: Vector{0, 2}, P2: Vector{0, -2}, MaxFraction: 1}, identity, 0)
	require.True(t, hit)
	assert.InDelta(t, 0.5, out.Fraction, 1e-12)
	assert.InDelta(t, 1, out.Normal.Y, 1e-12)
}

func TestShapeComputeDistance(t *testing.T) {
	identity := NewTransformIdentity()
	box, err := NewBox(2, 2)
	require.NoError(t, err)

	d, n := box.ComputeDistance(identity, Vector{3, 0}, 0)
	assert.InDelta(t, 2, d, 1e-12)
	assert.InDelta(t, 1, n.X, 1e-12)

	d, n = box.ComputeDistance(identity, Vector{0, 0.5}, 0)
	assert.InDelta(t, -0.5, d, 1e-12)
	assert.InDelta(t, 1, n.Y, 1e-12)

	// Beyond a corner the nearest feature is the vertex.
	d, _ = box.ComputeDistance(identity, Vector{2, 2}, 0)
	assert.InDelta(t, math.Sqrt2, d, 1e-12)

	circle, err := NewCircle(Vector{}, 1)
	require.NoError(t, err)
	d, n = circle.ComputeDistance(identity, Vector{0, 3}, 0)
	assert.InDelta(t, 2, d, 1e-12)
	assert.InDelta(t, 1, n.Y, 1e-12)
}

func TestShapeChain(t *testing.T) {
	chain, err := NewChain([]Vector{{0, 0}, {1, 0}, {2, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, chain.ChildCount())

	e0 := chain.ChildEdge(0)
	assert.False(t, e0.HasV0)
	assert.True(t, e0.HasV3)
	assert.Equal(t, Vector{2, 1}, e0.V3)

	loop, err := NewLoop([]Vector{{0, 0}, {1, 0}, {1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, loop.ChildCount())
	last := loop.ChildEdge(2)
	assert.True(t, last.HasV0)
	assert.True(t, last.HasV3)
	assert.Equal(t, Vector{1, 0}, last.V3)

	assert.Equal(t, MassData{}, loop.ComputeMass(1))

	_, err = NewChain([]Vector{{0, 0}, {0, 0.001}})
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = NewLoop([]Vector{{0, 0}, {1, 0}})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestShapeClone(t *testing.T) {
	box, err := NewBox(1, 1)
	require.NoError(t, err)
	clone := box.Clone().(*Polygon)
	clone.Vertices[0] = Vector{9, 9}
	assert.NotEqual(t, clone.Vertices[0], box.Vertices[0])
}
