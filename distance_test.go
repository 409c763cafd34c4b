package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeDistance(t *testing.T) {
	a, err := NewBox(2, 2)
	require.NoError(t, err)
	b, err := NewCircle(Vector{}, 0.5)
	require.NoError(t, err)

	xfA := NewTransformIdentity()
	xfB := NewTransformRigid(Vector{4, 0}, 0)

	d, pA, pB := ShapeDistance(a, 0, xfA, b, 0, xfB)
	assert.InDelta(t, 4-1-0.5-a.R, d, 1e-9)
	assert.InDelta(t, 1+a.R, pA.X, 1e-9)
	assert.InDelta(t, 3.5, pB.X, 1e-9)
	assert.False(t, TestOverlap(a, 0, xfA, b, 0, xfB))

	xfB = NewTransformRigid(Vector{1.2, 0}, 0)
	d, _, _ = ShapeDistance(a, 0, xfA, b, 0, xfB)
	assert.Equal(t, 0.0, d)
	assert.True(t, TestOverlap(a, 0, xfA, b, 0, xfB))
}

func TestShapeDistanceRotated(t *testing.T) {
	a, err := NewBox(2, 2)
	require.NoError(t, err)
	b, err := NewBox(2, 2)
	require.NoError(t, err)

	// A diamond whose corner points at the other box's face.
	xfA := NewTransformIdentity()
	xfB := NewTransformRigid(Vector{4, 0}, math.Pi/4)

	d, _, _ := ShapeDistance(a, 0, xfA, b, 0, xfB)
	assert.InDelta(t, 4-1-math.Sqrt2-2*a.R, d, 1e-9)
}

func TestTimeOfImpact(t *testing.T) {
	box, err := NewBox(2, 2)
	require.NoError(t, err)
	bullet, err := NewCircle(Vector{}, 0.1)
	require.NoError(t, err)

	input := toiInput{
		proxyA: makeDistanceProxy(box, 0),
		proxyB: makeDistanceProxy(bullet, 0),
		sweepA: Sweep{C0: Vector{}, C: Vector{}},
		// The bullet passes straight through the box in one step.
		sweepB: Sweep{C0: Vector{-10, 0}, C: Vector{10, 0}},
		tMax:   1,
	}
	out := timeOfImpact(&input, DefaultLinearSlop, 20)
	require.Equal(t, toiTouching, out.state)

	// The cores stop one slop short of touching skins.
	xfB := input.sweepB.Transform(out.t)
	target := box.R + bullet.R - DefaultLinearSlop
	assert.InDelta(t, -1-target, xfB.P.X, 0.25*DefaultLinearSlop)

	// Moving away never hits.
	input.sweepB = Sweep{C0: Vector{-3, 0}, C: Vector{-10, 0}}
	out = timeOfImpact(&input, DefaultLinearSlop, 20)
	assert.Equal(t, toiSeparated, out.state)
	assert.Equal(t, 1.0, out.t)

	// Starting in overlap reports it at t = 0.
	input.sweepB = Sweep{C0: Vector{0, 0}, C: Vector{10, 0}}
	out = timeOfImpact(&input, DefaultLinearSlop, 20)
	assert.Equal(t, toiOverlapped, out.state)
	assert.Equal(t, 0.0, out.t)
}

func TestTimeOfImpactRotating(t *testing.T) {
	ground, err := NewBox(20, 1)
	require.NoError(t, err)
	stick, err := NewBox(4, 0.2)
	require.NoError(t, err)

	input := toiInput{
		proxyA: makeDistanceProxy(ground, 0),
		proxyB: makeDistanceProxy(stick, 0),
		sweepA: Sweep{},
		// The stick spins half a turn while falling onto the ground.
		sweepB: Sweep{C0: Vector{0, 3}, C: Vector{0, 1}, A0: 0, A: math.Pi / 2},
		tMax:   1,
	}
	out := timeOfImpact(&input, DefaultLinearSlop, 50)
	require.Equal(t, toiTouching, out.state)
	assert.Greater(t, out.t, 0.0)
	assert.Less(t, out.t, 1.0)

	core := shapeDistance(&input.proxyA, NewTransformIdentity(), &input.proxyB, input.sweepB.Transform(out.t), false)
	assert.Greater(t, core.distance, 0.0)
	assert.Less(t, core.distance, 2*DefaultLinearSlop)
}
