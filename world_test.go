package physics

import (
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const levelForTests = slog.LevelWarn

// testWriter routes world logs into the test output.
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

const dt = 1.0 / 60.0

func stepN(t *testing.T, w *World, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, w.StepDefault(dt))
	}
}

func addGround(t *testing.T, w *World) *Body {
	t.Helper()
	// Top surface at y = 0.
	return addBox(t, w, StaticBody, Vector{0, -1}, 100, 2, 0)
}

func TestWorldCircleComesToRest(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{0, 5}, 1, 1)

	stepN(t, w, 120)

	assert.InDelta(t, 1.0, ball.Position().Y, DefaultLinearSlop)
	assert.InDelta(t, 0.0, ball.Position().X, 1e-9)
	assert.LessOrEqual(t, ball.LinearVelocity().Length(), 0.01)
}

func TestWorldFreeFall(t *testing.T) {
	w := newTestWorld(t)
	ball := addCircle(t, w, DynamicBody, Vector{0, 100}, 0.5, 1)

	stepN(t, w, 60)

	// Semi-implicit Euler: v = g t and y drops by g dt^2 n(n+1)/2.
	assert.InDelta(t, -10, ball.LinearVelocity().Y, 1e-9)
	assert.InDelta(t, 100-10*dt*dt*60*61/2, ball.Position().Y, 1e-9)
}

func TestWorldGravityScaleAndDamping(t *testing.T) {
	w := newTestWorld(t)
	floating := addCircle(t, w, DynamicBody, Vector{0, 10}, 0.5, 1)
	floating.SetGravityScale(0)
	damped := addCircle(t, w, DynamicBody, Vector{5, 10}, 0.5, 1)
	damped.SetGravityScale(0)
	damped.SetLinearDamping(1)
	damped.SetLinearVelocity(Vector{1, 0})

	stepN(t, w, 60)
	assert.Equal(t, Vector{0, 10}, floating.Position())
	assert.Less(t, damped.LinearVelocity().X, 0.5)
	assert.Greater(t, damped.LinearVelocity().X, 0.3)
}

func TestWorldStackSettlesAndSleeps(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	var boxes []*Body
	for i := 0; i < 5; i++ {
		boxes = append(boxes, addBox(t, w, DynamicBody, Vector{0, 0.5 + float64(i)*1.0}, 1, 1, 1))
	}

	stepN(t, w, 300)

	for i, b := range boxes {
		assert.InDelta(t, 0.5+float64(i), b.Position().Y, 0.05, "box %d", i)
		assert.InDelta(t, 0, b.Position().X, 0.05, "box %d", i)
		assert.False(t, b.IsAwake(), "box %d", i)
	}
	assert.Equal(t, 5, w.Profile().SleepingBodies)

	// Waking one box of the stack wakes the island on the next step.
	boxes[4].ApplyLinearImpulse(Vector{0, 1}, boxes[4].WorldCenter(), true)
	require.NoError(t, w.StepDefault(dt))
	for _, b := range boxes {
		assert.True(t, b.IsAwake())
	}
}

func TestWorldNoSleeping(t *testing.T) {
	w := newTestWorld(t)
	w.SetAllowSleeping(false)
	addGround(t, w)
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)

	stepN(t, w, 120)
	assert.True(t, box.IsAwake())
}

func TestWorldRestingBoxDoesNotDrift(t *testing.T) {
	w := newTestWorld(t)
	w.SetAllowSleeping(false)
	addGround(t, w)
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)

	stepN(t, w, 60)
	settled := box.Position()
	stepN(t, w, 600)

	assert.InDelta(t, settled.X, box.Position().X, DefaultLinearSlop)
	assert.InDelta(t, settled.Y, box.Position().Y, DefaultLinearSlop)
	assert.InDelta(t, 0, box.Angle(), DefaultAngularSlop)
}

func TestWorldRestitution(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	ball, err := w.CreateBody(NewBodyDef(DynamicBody, Vector{0, 5}))
	require.NoError(t, err)
	circle, err := NewCircle(Vector{}, 0.5)
	require.NoError(t, err)
	def := NewFixtureDef(circle, 1)
	def.Restitution = 1
	_, err = ball.CreateFixture(def)
	require.NoError(t, err)

	maxUp := 0.0
	for i := 0; i < 90; i++ {
		require.NoError(t, w.StepDefault(dt))
		maxUp = math.Max(maxUp, ball.LinearVelocity().Y)
	}
	// A perfectly elastic ball leaves the ground with most of its impact speed.
	assert.Greater(t, maxUp, 8.0)
}

func TestWorldBulletDoesNotTunnel(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	// A thin wall at x = 10.
	addBox(t, w, StaticBody, Vector{10, 0}, 0.1, 10, 0)

	def := NewBodyDef(DynamicBody, Vector{0, 0})
	def.LinearVelocity = Vector{300, 0}
	bullet, err := w.CreateBody(def)
	require.NoError(t, err)
	circle, err := NewCircle(Vector{}, 0.1)
	require.NoError(t, err)
	_, err = bullet.CreateFixture(NewFixtureDef(circle, 1))
	require.NoError(t, err)

	toi := 0
	for i := 0; i < 10; i++ {
		require.NoError(t, w.StepDefault(dt))
		toi += w.Profile().TOIEvents
		require.Less(t, bullet.Position().X, 10.0, "step %d", i)
	}
	assert.Greater(t, toi, 0)
}

func TestWorldWithoutContinuousPhysicsTunnels(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	w.SetContinuousPhysics(false)
	// Between two discrete positions of the bullet.
	addBox(t, w, StaticBody, Vector{12.5, 0}, 0.1, 10, 0)

	def := NewBodyDef(DynamicBody, Vector{0, 0})
	def.LinearVelocity = Vector{300, 0}
	bullet, err := w.CreateBody(def)
	require.NoError(t, err)
	circle, err := NewCircle(Vector{}, 0.1)
	require.NoError(t, err)
	_, err = bullet.CreateFixture(NewFixtureDef(circle, 1))
	require.NoError(t, err)

	stepN(t, w, 10)
	assert.Greater(t, bullet.Position().X, 12.5)
}

type recordingListener struct {
	ContactHandler
	begins, ends, pre, post int
}

func newRecordingListener() *recordingListener {
	l := &recordingListener{}
	l.BeginFunc = func(*Contact) { l.begins++ }
	l.EndFunc = func(*Contact) { l.ends++ }
	l.PreSolveFunc = func(*Contact, *Manifold) { l.pre++ }
	l.PostSolveFunc = func(*Contact, *ContactImpulse) { l.post++ }
	return l
}

func TestWorldContactEvents(t *testing.T) {
	l := newRecordingListener()
	w := newTestWorld(t)
	w.SetContactListener(l)
	addGround(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{0, 2}, 0.5, 1)

	stepN(t, w, 60)
	assert.Equal(t, 1, l.begins)
	assert.Equal(t, 0, l.ends)
	assert.Greater(t, l.pre, 0)
	assert.Greater(t, l.post, 0)
	require.Len(t, w.Contacts(), 1)
	assert.True(t, w.Contacts()[0].IsTouching())

	// Destroying a touching body reports the end.
	require.NoError(t, w.DestroyBody(ball))
	assert.Equal(t, 1, l.ends)
	assert.Equal(t, 0, w.ContactCount())
}

func TestWorldPreSolveDisablesContact(t *testing.T) {
	w := newTestWorld(t)
	w.SetContactListener(&ContactHandler{
		PreSolveFunc: func(c *Contact, _ *Manifold) {
			c.SetEnabled(false)
		},
	})
	addGround(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{0, 1}, 0.5, 1)
	w.SetContinuousPhysics(false)

	stepN(t, w, 60)
	// One-way behavior: the ball falls through.
	assert.Less(t, ball.Position().Y, -1.0)
}

func TestWorldSensor(t *testing.T) {
	l := newRecordingListener()
	w := newTestWorld(t)
	w.SetContactListener(l)

	sensorBody, err := w.CreateBody(NewBodyDef(StaticBody, Vector{0, 0}))
	require.NoError(t, err)
	box, err := NewBox(4, 1)
	require.NoError(t, err)
	def := NewFixtureDef(box, 0)
	def.IsSensor = true
	_, err = sensorBody.CreateFixture(def)
	require.NoError(t, err)

	ball := addCircle(t, w, DynamicBody, Vector{0, 3}, 0.25, 1)
	stepN(t, w, 90)

	// The ball passed through the sensor and was reported on the way.
	assert.Less(t, ball.Position().Y, -1.0)
	assert.Equal(t, 1, l.begins)
	assert.Equal(t, 1, l.ends)
	assert.Equal(t, 0, l.pre)
}

func TestWorldFilterGroups(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)

	newMember := func(pos Vector) *Body {
		b, err := w.CreateBody(NewBodyDef(DynamicBody, pos))
		require.NoError(t, err)
		box, err := NewBox(1, 1)
		require.NoError(t, err)
		def := NewFixtureDef(box, 1)
		def.Filter.GroupIndex = -1
		_, err = b.CreateFixture(def)
		require.NoError(t, err)
		return b
	}
	lower := newMember(Vector{0, 0.5})
	upper := newMember(Vector{0, 1.5})

	stepN(t, w, 60)
	// Same negative group: the upper box sinks into the lower one.
	assert.InDelta(t, 0.5, lower.Position().Y, 0.05)
	assert.InDelta(t, 0.5, upper.Position().Y, 0.05)

	assert.Equal(t, 2, w.ContactCount())

	// Leaving the group lets the pair collide again.
	f := upper.Fixtures()[0]
	filter := f.Filter()
	filter.GroupIndex = 0
	f.SetFilter(filter)
	require.NoError(t, w.StepDefault(dt))
	assert.Equal(t, 3, w.ContactCount())
}

func TestWorldContactFilter(t *testing.T) {
	w := newTestWorld(t)
	rejected := 0
	w.SetContactFilter(contactFilterFunc(func(a, b *Fixture) bool {
		rejected++
		return false
	}))
	addGround(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{0, 1}, 0.5, 1)
	w.SetContinuousPhysics(false)

	stepN(t, w, 60)
	assert.Greater(t, rejected, 0)
	assert.Less(t, ball.Position().Y, 0.0)
}

type contactFilterFunc func(a, b *Fixture) bool

func (f contactFilterFunc) ShouldCollide(a, b *Fixture) bool {
	return f(a, b)
}

func TestWorldLocked(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	addCircle(t, w, DynamicBody, Vector{0, 0.5}, 0.5, 1)

	var lockedErr error
	var created *Body
	w.SetContactListener(&ContactHandler{
		BeginFunc: func(c *Contact) {
			assert.True(t, w.IsLocked())
			_, lockedErr = w.CreateBody(NewBodyDef(DynamicBody, Vector{}))
			w.Enqueue(func(w *World) error {
				var err error
				created, err = w.CreateBody(NewBodyDef(DynamicBody, Vector{0, 10}))
				return err
			})
		},
	})

	require.NoError(t, w.StepDefault(dt))
	assert.ErrorIs(t, lockedErr, ErrWorldLocked)
	assert.Nil(t, created)
	assert.Equal(t, 2, w.BodyCount())

	require.NoError(t, w.StepDefault(dt))
	require.NotNil(t, created)
	assert.Equal(t, 3, w.BodyCount())
	assert.False(t, w.IsLocked())
}

func TestWorldEnqueueConcurrent(t *testing.T) {
	w := newTestWorld(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Enqueue(func(w *World) error {
				_, err := w.CreateBody(NewBodyDef(DynamicBody, Vector{float64(i), 0}))
				return err
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, w.StepDefault(dt))
	assert.Equal(t, 8, w.BodyCount())
}

func TestWorldStepValidation(t *testing.T) {
	w := newTestWorld(t)
	assert.ErrorIs(t, w.Step(-1, 8, 3), ErrInvalidStep)
	assert.ErrorIs(t, w.Step(math.NaN(), 8, 3), ErrInvalidStep)
	assert.ErrorIs(t, w.Step(dt, 0, 3), ErrInvalidStep)

	// A zero step only updates contacts.
	ball := addCircle(t, w, DynamicBody, Vector{0, 5}, 0.5, 1)
	require.NoError(t, w.Step(0, 8, 3))
	assert.Equal(t, Vector{0, 5}, ball.Position())
}

func TestWorldQueries(t *testing.T) {
	w := newTestWorld(t)
	near := addBox(t, w, StaticBody, Vector{5, 0}, 1, 1, 0)
	far := addCircle(t, w, StaticBody, Vector{10, 0}, 0.5, 0)

	hit, ok := w.RayCast(Vector{0, 0}, Vector{20, 0})
	require.True(t, ok)
	assert.Same(t, near.Fixtures()[0], hit.Fixture)
	assert.InDelta(t, 4.5, hit.Point.X, 1e-9)
	assert.InDelta(t, -1, hit.Normal.X, 1e-9)

	hits := w.RayCastAll(Vector{0, 0}, Vector{20, 0})
	require.Len(t, hits, 2)
	assert.Same(t, near.Fixtures()[0], hits[0].Fixture)
	assert.Same(t, far.Fixtures()[0], hits[1].Fixture)
	assert.InDelta(t, 9.5, hits[1].Point.X, 1e-9)

	_, ok = w.RayCast(Vector{0, 5}, Vector{20, 5})
	assert.False(t, ok)

	// Returning -1 filters, 0 stops.
	var seen int
	w.RayCastFunc(Vector{0, 0}, Vector{20, 0}, func(f *Fixture, point, normal Vector, fraction float64) float64 {
		seen++
		return -1
	})
	assert.Equal(t, 2, seen)

	fixtures := w.QueryAABB(NewBB(4, -1, 11, 1))
	assert.Len(t, fixtures, 2)
	fixtures = w.QueryAABB(NewBB(9, -1, 11, 1))
	require.Len(t, fixtures, 1)
	assert.Same(t, far.Fixtures()[0], fixtures[0])

	count := 0
	w.QueryAABBFunc(NewBB(-100, -100, 100, 100), func(*Fixture) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

type goodbyeRecorder struct {
	fixtures  int
	joints    []Joint
	groups    int
	particles []int
}

func (g *goodbyeRecorder) SayGoodbyeFixture(*Fixture)             { g.fixtures++ }
func (g *goodbyeRecorder) SayGoodbyeJoint(j Joint)                { g.joints = append(g.joints, j) }
func (g *goodbyeRecorder) SayGoodbyeParticleGroup(*ParticleGroup) { g.groups++ }
func (g *goodbyeRecorder) SayGoodbyeParticle(index int)           { g.particles = append(g.particles, index) }

func TestWorldDestroyBody(t *testing.T) {
	rec := &goodbyeRecorder{}
	w := newTestWorld(t)
	w.SetDestructionListener(rec)
	ground := addGround(t, w)
	a := addBox(t, w, DynamicBody, Vector{0, 3}, 1, 1, 1)

	j, err := w.CreateJoint(NewRevoluteJointDef(ground, a, Vector{0, 4}))
	require.NoError(t, err)
	assert.Equal(t, 1, w.JointCount())

	require.NoError(t, w.DestroyBody(a))
	assert.Equal(t, 1, rec.fixtures)
	require.Len(t, rec.joints, 1)
	assert.Same(t, j, rec.joints[0])
	assert.Equal(t, 0, w.JointCount())
	assert.Empty(t, ground.Joints())
	assert.Equal(t, 1, w.BodyCount())

	assert.ErrorIs(t, w.DestroyBody(a), ErrNotInWorld)
	assert.ErrorIs(t, w.DestroyJoint(j), ErrNotInWorld)

	other := NewWorld(Vector{})
	b, err := other.CreateBody(NewBodyDef(DynamicBody, Vector{}))
	require.NoError(t, err)
	assert.ErrorIs(t, w.DestroyBody(b), ErrNotInWorld)
}

func TestWorldDestroyFixture(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)
	stepN(t, w, 2)
	require.Equal(t, 1, w.ContactCount())

	f := box.Fixtures()[0]
	require.NoError(t, box.DestroyFixture(f))
	assert.Equal(t, 0, w.ContactCount())
	assert.Nil(t, f.Body())
	assert.Equal(t, 1.0, box.Mass())
	assert.ErrorIs(t, w.DestroyFixture(f), ErrNotInWorld)
}

func TestWorldShiftOrigin(t *testing.T) {
	w := newTestWorld(t)
	ground := addGround(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{3, 0.5}, 0.5, 1)
	stepN(t, w, 2)

	require.NoError(t, w.ShiftOrigin(Vector{3, 0}))
	assert.InDelta(t, 0, ball.Position().X, 1e-12)
	assert.InDelta(t, -3, ground.Position().X, 1e-12)

	// The broad-phase moved with the bodies.
	fixtures := w.QueryAABB(NewBB(-0.1, 0.4, 0.1, 0.6))
	assert.Contains(t, fixtures, ball.Fixtures()[0])

	stepN(t, w, 30)
	assert.InDelta(t, 0.5, ball.Position().Y, 2*DefaultLinearSlop)
}

func TestWorldKinematicBody(t *testing.T) {
	w := newTestWorld(t)
	def := NewBodyDef(KinematicBody, Vector{})
	def.LinearVelocity = Vector{1, 0}
	def.AngularVelocity = 1
	platform, err := w.CreateBody(def)
	require.NoError(t, err)
	box, err := NewBox(2, 0.2)
	require.NoError(t, err)
	_, err = platform.CreateFixture(NewFixtureDef(box, 1))
	require.NoError(t, err)

	stepN(t, w, 60)
	// Gravity does not act on kinematic bodies.
	assert.InDelta(t, 1, platform.Position().X, 1e-9)
	assert.InDelta(t, 0, platform.Position().Y, 1e-9)
	assert.InDelta(t, 1, platform.Angle(), 1e-9)
}

func TestWorldEnergyDecaysWithFriction(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)
	box.SetLinearVelocity(Vector{5, 0})

	e0 := w.Energy()
	stepN(t, w, 60)
	assert.Less(t, w.Energy(), e0)
	// mu g = 2 m/s^2 stops a 5 m/s box in 2.5 s; after 1 s it still slides.
	assert.InDelta(t, 3, box.LinearVelocity().X, 0.3)
}

func TestWorldTangentSpeed(t *testing.T) {
	w := newTestWorld(t)
	w.SetContactListener(&ContactHandler{
		PreSolveFunc: func(c *Contact, _ *Manifold) {
			c.SetTangentSpeed(5)
		},
	})
	addGround(t, w)
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)
	stepN(t, w, 60)
	assert.NotEqual(t, 0.0, box.LinearVelocity().X)
}

func TestWorldKinematicPlatformSplitsIslands(t *testing.T) {
	w := newTestWorld(t)
	w.SetAllowSleeping(false)
	platform := addBox(t, w, KinematicBody, Vector{0, -0.5}, 30, 1, 1)
	left := addBox(t, w, DynamicBody, Vector{-5, 0.5}, 1, 1, 1)
	right := addBox(t, w, DynamicBody, Vector{5, 0.5}, 1, 1, 1)

	stepN(t, w, 30)

	// Both boxes touch the platform but the platform does not join them.
	p := w.Profile()
	assert.Equal(t, 2, p.Islands)
	assert.Equal(t, 4, p.Bodies)
	assert.Equal(t, 2, p.Contacts)
	assert.InDelta(t, 0, platform.Position().X, 1e-12)
	assert.InDelta(t, -0.5, platform.Position().Y, 1e-12)
	assert.InDelta(t, 0.5, left.Position().Y, DefaultLinearSlop)
	assert.InDelta(t, 0.5, right.Position().Y, DefaultLinearSlop)
}

func TestWorldKinematicPlatformCarriesBox(t *testing.T) {
	w := newTestWorld(t)
	platform := addBox(t, w, KinematicBody, Vector{0, -0.5}, 30, 1, 1)
	platform.SetLinearVelocity(Vector{0.5, 0})
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)

	stepN(t, w, 120)

	// The platform moves once per step however many islands it bounds.
	assert.InDelta(t, 1, platform.Position().X, 1e-9)
	assert.True(t, platform.IsAwake())
	assert.Greater(t, box.Position().X, 0.8)
	assert.InDelta(t, 0.5, box.LinearVelocity().X, 0.01)
}

func TestWorldStillKinematicBodyDoesNotKeepNeighboursAwake(t *testing.T) {
	w := newTestWorld(t)
	platform := addBox(t, w, KinematicBody, Vector{0, -0.5}, 30, 1, 1)
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)

	stepN(t, w, 300)
	assert.False(t, box.IsAwake())
	assert.False(t, platform.IsAwake())
	assert.Equal(t, 2, w.Profile().SleepingBodies)
}

func TestWorldSleepingBodiesAreSkipped(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	box := addBox(t, w, DynamicBody, Vector{0, 0.5}, 1, 1, 1)

	stepN(t, w, 300)
	require.False(t, box.IsAwake())

	stepN(t, w, 1)
	p := w.Profile()
	assert.Zero(t, p.Islands)
	assert.Zero(t, p.Bodies)
	assert.Zero(t, p.Contacts)
	assert.Equal(t, 1, p.SleepingBodies)

	// A new body landing on the sleeper wakes it through their contact.
	ball := addCircle(t, w, DynamicBody, Vector{0, 2}, 0.5, 1)
	for i := 0; i < 120 && !box.IsAwake(); i++ {
		require.NoError(t, w.StepDefault(dt))
		require.Less(t, ball.Position().Y, 2.0)
	}
	assert.True(t, box.IsAwake())
	assert.Greater(t, w.Profile().Islands, 0)
}

func TestWorldFastBodyDoesNotTunnelThroughDynamicBody(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	plank := addBox(t, w, DynamicBody, Vector{10, 0}, 0.05, 2, 1)
	ball := addCircle(t, w, DynamicBody, Vector{0, 0}, 0.1, 1)
	ball.SetLinearVelocity(Vector{400, 0})
	require.False(t, ball.IsBullet())

	toi := 0
	for i := 0; i < 10; i++ {
		require.NoError(t, w.StepDefault(dt))
		toi += w.Profile().TOIEvents
		require.Less(t, ball.Position().X, plank.Position().X, "step %d", i)
	}
	assert.Greater(t, toi, 0)
	// The plank was struck and carried off.
	assert.Greater(t, plank.LinearVelocity().X, 0.0)
}

func TestWorldContactMarginFollowsLinearSlop(t *testing.T) {
	gap := 0.008
	for _, tc := range []struct {
		slop     float64
		touching bool
	}{
		{DefaultLinearSlop, false},
		{0.01, true},
	} {
		s := DefaultSettings()
		s.Gravity = Vector{}
		s.LinearSlop = tc.slop
		w, err := NewWorldWithSettings(s, WithLogger(newLogger(testWriter{t}, levelForTests)))
		require.NoError(t, err)
		addCircle(t, w, DynamicBody, Vector{0, 0}, 0.5, 1)
		addCircle(t, w, DynamicBody, Vector{1 + gap, 0}, 0.5, 1)

		stepN(t, w, 2)
		contacts := w.Contacts()
		require.Len(t, contacts, 1)
		assert.Equal(t, tc.touching, contacts[0].IsTouching(), "slop %v", tc.slop)
	}
}
