package physics

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParticleWorld(t *testing.T) (*World, *ParticleSystem) {
	t.Helper()
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	return w, w.ParticleSystem()
}

func createParticle(t *testing.T, ps *ParticleSystem, def ParticleDef) int {
	t.Helper()
	i, err := ps.CreateParticle(def)
	require.NoError(t, err)
	return i
}

func TestCreateParticle(t *testing.T) {
	_, ps := newParticleWorld(t)

	i := createParticle(t, ps, ParticleDef{Position: Vector{1, 2}, Velocity: Vector{3, 0}, UserData: "drop"})
	j := createParticle(t, ps, ParticleDef{Flags: WallParticle, Position: Vector{5, 5}})
	assert.Equal(t, 0, i)
	assert.Equal(t, 1, j)
	assert.Equal(t, 2, ps.Count())
	assert.Equal(t, Vector{1, 2}, ps.Position(i))
	assert.Equal(t, Vector{3, 0}, ps.Velocity(i))
	assert.Equal(t, "drop", ps.UserData(i))
	assert.Equal(t, WallParticle, ps.ParticleFlags(j))
	assert.Nil(t, ps.Group(i))
	assert.InDelta(t, 0.0225, ps.ParticleMass(), 1e-12)

	_, err := ps.CreateParticle(ParticleDef{Position: Vector{math.NaN(), 0}})
	assert.ErrorIs(t, err, ErrInvalidParticle)
	assert.ErrorIs(t, ps.DestroyParticle(7, false), ErrNotInWorld)
}

func TestParticleLimit(t *testing.T) {
	_, ps := newParticleWorld(t)
	require.NoError(t, ps.SetMaxCount(2))

	createParticle(t, ps, ParticleDef{Position: Vector{0, 0}})
	createParticle(t, ps, ParticleDef{Position: Vector{1, 0}})
	_, err := ps.CreateParticle(ParticleDef{Position: Vector{2, 0}})
	assert.ErrorIs(t, err, ErrParticleLimit)
	assert.Equal(t, 2, ps.Count())

	assert.ErrorIs(t, ps.SetMaxCount(-1), ErrInvalidSettings)
	assert.ErrorIs(t, ps.SetRadius(0), ErrInvalidSettings)
	assert.ErrorIs(t, ps.SetDensity(-1), ErrInvalidSettings)
}

func TestParticleFreeFall(t *testing.T) {
	w := newTestWorld(t)
	ps := w.ParticleSystem()
	i := createParticle(t, ps, ParticleDef{Position: Vector{0, 10}})

	stepN(t, w, 30)
	assert.InDelta(t, -5, ps.Velocity(i).Y, 1e-9)
	assert.Less(t, ps.Position(i).Y, 10.0)
	assert.Equal(t, 1, w.Profile().Particles)

	ps.SetGravityScale(0)
	v := ps.Velocity(i)
	stepN(t, w, 1)
	assert.Equal(t, v, ps.Velocity(i))
}

func TestParticleWall(t *testing.T) {
	w := newTestWorld(t)
	ps := w.ParticleSystem()
	wall := createParticle(t, ps, ParticleDef{Flags: WallParticle, Position: Vector{0, 0}})
	// A falling particle lands on the wall particle and is pushed aside or held.
	drop := createParticle(t, ps, ParticleDef{Position: Vector{0, 1}})

	stepN(t, w, 60)
	assert.Equal(t, Vector{0, 0}, ps.Position(wall))
	assert.Equal(t, Vector{}, ps.Velocity(wall))
	assert.Less(t, ps.Position(drop).Y, 1.0)
}

func TestParticleRestsOnGround(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ps := w.ParticleSystem()
	i := createParticle(t, ps, ParticleDef{Position: Vector{0, 1}})

	touching := 0
	for s := 0; s < 120; s++ {
		require.NoError(t, w.StepDefault(dt))
		touching += w.Profile().ParticleBodyContacts
		require.Greater(t, ps.Position(i).Y, -0.01, "step %d", s)
	}
	assert.Less(t, ps.Position(i).Y, 0.3)
	assert.Greater(t, touching, 0)
	assert.Equal(t, 1, w.Profile().ParticleBodyContacts)
}

func TestParticleFastDoesNotTunnel(t *testing.T) {
	w, ps := newParticleWorld(t)
	// A wall thinner than one step of travel.
	addBox(t, w, StaticBody, Vector{1, 0}, 0.05, 4, 0)
	i := createParticle(t, ps, ParticleDef{Position: Vector{0, 0}, Velocity: Vector{11, 0}})

	stepN(t, w, 10)
	assert.Less(t, ps.Position(i).X, 1.0)
}

func TestParticlePressureSeparates(t *testing.T) {
	w, ps := newParticleWorld(t)
	a := createParticle(t, ps, ParticleDef{Position: Vector{0, 0}})
	b := createParticle(t, ps, ParticleDef{Position: Vector{0.05, 0}})

	stepN(t, w, 1)
	assert.Equal(t, 1, w.Profile().ParticleContacts)

	stepN(t, w, 9)
	assert.Greater(t, ps.Position(b).X-ps.Position(a).X, 0.05)
	// Momentum is shared evenly.
	assert.InDelta(t, 0, ps.Velocity(a).X+ps.Velocity(b).X, 1e-9)

	// The pair ends up at least a lattice spacing apart.
	stepN(t, w, 20)
	assert.Greater(t, ps.Position(b).X-ps.Position(a).X, particleStride*2*ps.Radius())
	assert.Equal(t, 0, w.Profile().ParticleContacts)
}

func TestParticleTensileConservesMomentum(t *testing.T) {
	w, ps := newParticleWorld(t)
	d := 2 * ps.Radius()
	for i := 0; i < 3; i++ {
		createParticle(t, ps, ParticleDef{Flags: TensileParticle, Position: Vector{float64(i) * 0.6 * d, 0}})
	}
	stepN(t, w, 3)
	assert.Equal(t, 3, len(ps.weights))

	// The weight buffer grows with the system.
	createParticle(t, ps, ParticleDef{Flags: TensileParticle, Position: Vector{0.3 * d, 0.5 * d}})
	stepN(t, w, 3)
	assert.GreaterOrEqual(t, cap(ps.weights), 4)

	var momentum Vector
	for i := 0; i < ps.Count(); i++ {
		require.True(t, ps.Position(i).IsValid())
		momentum = momentum.Add(ps.Velocity(i))
	}
	assert.InDelta(t, 0, momentum.X, 1e-9)
	assert.InDelta(t, 0, momentum.Y, 1e-9)
}

func TestParticleColorMixing(t *testing.T) {
	w, ps := newParticleWorld(t)
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	a := createParticle(t, ps, ParticleDef{Flags: ColorMixingParticle, Position: Vector{0, 0}, Color: red})
	b := createParticle(t, ps, ParticleDef{Flags: ColorMixingParticle, Position: Vector{0.1, 0}, Color: blue})
	c := createParticle(t, ps, ParticleDef{Position: Vector{5, 0}, Color: red})

	stepN(t, w, 1)
	colors := ps.Colors()
	assert.Greater(t, colors[a].B, uint8(0))
	assert.Greater(t, colors[b].R, uint8(0))
	assert.Less(t, colors[a].R, uint8(255))
	assert.Equal(t, red, colors[c])
}

func TestParticleGroupLattice(t *testing.T) {
	_, ps := newParticleWorld(t)
	box, err := NewBox(1, 1)
	require.NoError(t, err)

	def := NewParticleGroupDef(box, Vector{0, 5})
	def.LinearVelocity = Vector{1, 0}
	def.Color = color.RGBA{G: 255, A: 255}
	g, err := ps.CreateParticleGroup(def)
	require.NoError(t, err)

	// Spacing 0.75 diameters: seven columns and rows inside a unit box.
	assert.Equal(t, 49, g.ParticleCount())
	assert.Equal(t, 49, ps.Count())
	assert.Equal(t, 1, ps.GroupCount())
	for k, i := range g.Indices() {
		assert.Equal(t, k, i)
		assert.Same(t, g, ps.Group(i))
		assert.Equal(t, Vector{1, 0}, ps.Velocity(i))
		assert.InDelta(t, 0, ps.Position(i).X, 0.5)
		assert.InDelta(t, 5, ps.Position(i).Y, 0.5)
	}
	assert.InDelta(t, 49*ps.ParticleMass(), g.Mass(), 1e-12)
	assert.InDelta(t, 0, g.Center().X, 1e-9)
	assert.InDelta(t, 5, g.Center().Y, 1e-9)
	assert.InDelta(t, 1, g.LinearVelocity().X, 1e-12)
}

func TestParticleGroupInvalid(t *testing.T) {
	_, ps := newParticleWorld(t)
	edge, err := NewEdge(Vector{}, Vector{1, 0})
	require.NoError(t, err)

	_, err = ps.CreateParticleGroup(NewParticleGroupDef(edge, Vector{}))
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = ps.CreateParticleGroup(NewParticleGroupDef(nil, Vector{}))
	assert.ErrorIs(t, err, ErrInvalidShape)
	assert.Equal(t, 0, ps.GroupCount())
}

func TestParticleGroupTruncatedAtLimit(t *testing.T) {
	_, ps := newParticleWorld(t)
	require.NoError(t, ps.SetMaxCount(10))
	box, err := NewBox(1, 1)
	require.NoError(t, err)

	g, err := ps.CreateParticleGroup(NewParticleGroupDef(box, Vector{}))
	require.NoError(t, err)
	assert.Equal(t, 10, g.ParticleCount())
}

func TestRigidParticleGroup(t *testing.T) {
	w, ps := newParticleWorld(t)
	box, err := NewBox(1, 1)
	require.NoError(t, err)

	def := NewParticleGroupDef(box, Vector{})
	def.GroupFlags = RigidParticleGroup
	def.LinearVelocity = Vector{1, 0}
	def.AngularVelocity = 1
	g, err := ps.CreateParticleGroup(def)
	require.NoError(t, err)

	first, last := g.Indices()[0], g.Indices()[g.ParticleCount()-1]
	span := ps.Position(first).Distance(ps.Position(last))

	stepN(t, w, 60)
	assert.InDelta(t, span, ps.Position(first).Distance(ps.Position(last)), 1e-6)
	assert.InDelta(t, 1, g.Center().X, 1e-3)
	assert.InDelta(t, 1, g.Angle(), 0.01)
	assert.InDelta(t, 1, g.AngularVelocity(), 0.01)
}

func TestDestroyParticles(t *testing.T) {
	rec := &goodbyeRecorder{}
	w, ps := newParticleWorld(t)
	w.SetDestructionListener(rec)
	for k := 0; k < 5; k++ {
		createParticle(t, ps, ParticleDef{Position: Vector{float64(k), 0}, UserData: k})
	}

	require.NoError(t, ps.DestroyParticle(1, true))
	require.NoError(t, ps.DestroyParticle(3, false))
	// Marked particles stay until the step ends.
	assert.Equal(t, 5, ps.Count())
	assert.NotZero(t, ps.ParticleFlags(1)&ZombieParticle)

	stepN(t, w, 1)
	assert.Equal(t, 3, ps.Count())
	assert.Equal(t, []int{1}, rec.particles)
	for k, want := range []int{0, 2, 4} {
		assert.Equal(t, want, ps.UserData(k))
		assert.Equal(t, Vector{float64(want), 0}, ps.Position(k))
	}
}

func TestDestroyParticlesInShape(t *testing.T) {
	w, ps := newParticleWorld(t)
	box, err := NewBox(1, 1)
	require.NoError(t, err)
	g, err := ps.CreateParticleGroup(NewParticleGroupDef(box, Vector{}))
	require.NoError(t, err)
	before := ps.Count()

	// The three lattice columns right of x = 0.
	cut, err := NewOrientedBox(1, 2, Vector{0.575, 0}, 0)
	require.NoError(t, err)
	n, err := ps.DestroyParticlesInShape(cut, NewTransformIdentity(), false)
	require.NoError(t, err)
	assert.Equal(t, 21, n)

	stepN(t, w, 1)
	assert.Equal(t, before-n, ps.Count())
	assert.Equal(t, ps.Count(), g.ParticleCount())
	for _, i := range g.Indices() {
		assert.LessOrEqual(t, ps.Position(i).X, 0.01)
	}
}

func TestDestroyParticleGroup(t *testing.T) {
	rec := &goodbyeRecorder{}
	w, ps := newParticleWorld(t)
	w.SetDestructionListener(rec)
	circle, err := NewCircle(Vector{}, 0.5)
	require.NoError(t, err)

	g, err := ps.CreateParticleGroup(NewParticleGroupDef(circle, Vector{}))
	require.NoError(t, err)
	n := g.ParticleCount()
	require.Greater(t, n, 0)

	require.NoError(t, ps.DestroyParticleGroup(g, true))
	stepN(t, w, 1)
	assert.Equal(t, 0, ps.Count())
	assert.Equal(t, 0, ps.GroupCount())
	assert.Len(t, rec.particles, n)
	assert.Equal(t, 1, rec.groups)
	assert.ErrorIs(t, ps.DestroyParticleGroup(g, false), ErrNotInWorld)
}

func TestJoinParticleGroups(t *testing.T) {
	rec := &goodbyeRecorder{}
	w, ps := newParticleWorld(t)
	w.SetDestructionListener(rec)
	box, err := NewBox(0.5, 0.5)
	require.NoError(t, err)

	defA := NewParticleGroupDef(box, Vector{0, 0})
	defA.Flags = SpringParticle
	a, err := ps.CreateParticleGroup(defA)
	require.NoError(t, err)
	defB := NewParticleGroupDef(box, Vector{0.45, 0})
	defB.Flags = SpringParticle
	b, err := ps.CreateParticleGroup(defB)
	require.NoError(t, err)
	total := a.ParticleCount() + b.ParticleCount()
	bonds := len(ps.pairs)

	require.NoError(t, ps.JoinParticleGroups(a, b))
	assert.Equal(t, 1, ps.GroupCount())
	assert.Equal(t, total, a.ParticleCount())
	assert.Equal(t, 1, rec.groups)
	for _, i := range a.Indices() {
		assert.Same(t, a, ps.Group(i))
	}
	// The seam is bonded.
	assert.Greater(t, len(ps.pairs), bonds)

	assert.ErrorIs(t, ps.JoinParticleGroups(a, b), ErrNotInWorld)
	assert.ErrorIs(t, ps.JoinParticleGroups(a, a), ErrInvalidParticle)

	stepN(t, w, 10)
	assert.Equal(t, total, ps.Count())
}

func TestSpringGroupHoldsTogether(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ps := w.ParticleSystem()
	box, err := NewBox(0.5, 0.5)
	require.NoError(t, err)

	def := NewParticleGroupDef(box, Vector{0, 1})
	def.Flags = ElasticParticle | SpringParticle
	g, err := ps.CreateParticleGroup(def)
	require.NoError(t, err)

	stepN(t, w, 120)
	for _, i := range g.Indices() {
		p := ps.Position(i)
		assert.Greater(t, p.Y, -0.01)
		assert.InDelta(t, 0, p.X, 1)
	}
}

func TestParticleQueries(t *testing.T) {
	_, ps := newParticleWorld(t)
	for k := 0; k < 3; k++ {
		createParticle(t, ps, ParticleDef{Position: Vector{float64(k), 0}})
	}

	var found []int
	ps.QueryAABB(NewBB(0.5, -0.5, 2.5, 0.5), func(i int) bool {
		found = append(found, i)
		return true
	})
	assert.ElementsMatch(t, []int{1, 2}, found)

	var hits []int
	var fractions []float64
	ps.RayCast(Vector{-1, 0}, Vector{3, 0}, func(i int, point, normal Vector, fraction float64) float64 {
		hits = append(hits, i)
		fractions = append(fractions, fraction)
		return 1
	})
	require.Len(t, hits, 3)
	for k, i := range hits {
		if i == 0 {
			assert.InDelta(t, 0.9/4, fractions[k], 1e-9)
		}
	}

	// Clipping to the first hit drops everything beyond it.
	closest := -1
	ps.RayCast(Vector{-1, 0}, Vector{3, 0}, func(i int, point, normal Vector, fraction float64) float64 {
		closest = i
		return fraction
	})
	assert.Equal(t, 0, closest)
}

func TestParticleShiftOrigin(t *testing.T) {
	w, ps := newParticleWorld(t)
	i := createParticle(t, ps, ParticleDef{Position: Vector{10, 10}})

	require.NoError(t, w.ShiftOrigin(Vector{10, 0}))
	assert.Equal(t, Vector{0, 10}, ps.Position(i))

	found := 0
	ps.QueryAABB(NewBB(-1, 9, 1, 11), func(int) bool {
		found++
		return true
	})
	assert.Equal(t, 1, found)
}
