package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDrawer struct {
	flags      int
	circles    int
	segments   int
	polygons   int
	dots       int
	transforms int
	fills      []FColor
}

func (d *recordingDrawer) DrawCircle(center Vector, angle, radius float64, outline, fill FColor) {
	d.circles++
	d.fills = append(d.fills, fill)
}

func (d *recordingDrawer) DrawSegment(a, b Vector, color FColor) {
	d.segments++
}

func (d *recordingDrawer) DrawPolygon(verts []Vector, radius float64, outline, fill FColor) {
	d.polygons++
	d.fills = append(d.fills, fill)
}

func (d *recordingDrawer) DrawDot(size float64, pos Vector, color FColor) {
	d.dots++
}

func (d *recordingDrawer) DrawTransform(xf Transform) {
	d.transforms++
}

func (d *recordingDrawer) Flags() int {
	return d.flags
}

func TestDrawWorld(t *testing.T) {
	w := newTestWorld(t)
	ground := addGround(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{0, 0.5}, 0.5, 1)
	createJoint(t, w, NewDistanceJointDef(ground, ball, Vector{0, 3}, Vector{0, 0.5}))
	// The jointed ball does not collide with the ground; this one does.
	addCircle(t, w, DynamicBody, Vector{3, 0.5}, 0.5, 1)
	_, err := w.ParticleSystem().CreateParticle(ParticleDef{Position: Vector{5, 5}})
	require.NoError(t, err)
	stepN(t, w, 1)

	d := &recordingDrawer{flags: DrawShapes}
	DrawWorld(w, d)
	assert.Equal(t, 1, d.polygons)
	assert.Equal(t, 2, d.circles)
	assert.Equal(t, []FColor{colorStatic, colorAwake, colorAwake}, d.fills)

	d = &recordingDrawer{flags: DrawJoints}
	DrawWorld(w, d)
	assert.Equal(t, 1, d.segments)

	d = &recordingDrawer{flags: DrawContactPoints}
	DrawWorld(w, d)
	assert.Equal(t, 1, d.dots)

	d = &recordingDrawer{flags: DrawBBs | DrawCenterOfMass | DrawParticles}
	DrawWorld(w, d)
	assert.Equal(t, 3, d.polygons)
	assert.Equal(t, 3, d.transforms)
	assert.Equal(t, 1, d.circles)

	d = &recordingDrawer{}
	DrawWorld(w, d)
	assert.Zero(t, d.circles+d.segments+d.polygons+d.dots+d.transforms)
}

func TestDrawChainAndJoints(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	chain, err := NewChain([]Vector{{-2, 0}, {0, 0}, {2, 1}})
	require.NoError(t, err)
	_, err = ground.CreateFixture(NewFixtureDef(chain, 0))
	require.NoError(t, err)
	box := addBox(t, w, DynamicBody, Vector{0, 3}, 1, 1, 1)

	d := &recordingDrawer{flags: DrawShapes}
	DrawWorld(w, d)
	assert.Equal(t, 2, d.segments)

	createJoint(t, w, NewMouseJointDef(ground, box, Vector{0, 3}, 100))
	createJoint(t, w, NewRevoluteJointDef(ground, box, Vector{0, 2}))
	d = &recordingDrawer{flags: DrawJoints}
	DrawWorld(w, d)
	assert.Equal(t, 1, d.dots)
	assert.Equal(t, 1+3, d.segments)
}
