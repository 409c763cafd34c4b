package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroundBody(t *testing.T, w *World) *Body {
	t.Helper()
	b, err := w.CreateBody(NewBodyDef(StaticBody, Vector{}))
	require.NoError(t, err)
	return b
}

func createJoint(t *testing.T, w *World, def JointDef) Joint {
	t.Helper()
	j, err := w.CreateJoint(def)
	require.NoError(t, err)
	return j
}

func TestRevoluteJointPendulum(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	bob := addBox(t, w, DynamicBody, Vector{2, 5}, 0.5, 0.5, 1)

	j := createJoint(t, w, NewRevoluteJointDef(ground, bob, Vector{0, 5})).(*RevoluteJoint)
	assert.Equal(t, RevoluteJointType, j.Type())
	assert.Equal(t, "revolute", j.Type().String())

	for i := 0; i < 180; i++ {
		require.NoError(t, w.StepDefault(dt))
		assert.Less(t, j.AnchorA().Distance(j.AnchorB()), 0.01, "step %d", i)
	}
	assert.InDelta(t, 2, bob.Position().Distance(Vector{0, 5}), 0.01)
	// Free swing: never above the pivot.
	assert.Less(t, bob.Position().Y, 5.01)
}

func TestRevoluteJointLimit(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	arm := addBox(t, w, DynamicBody, Vector{2, 0}, 4, 0.2, 1)

	def := NewRevoluteJointDef(ground, arm, Vector{})
	def.EnableLimit = true
	def.LowerAngle = -math.Pi / 4
	def.UpperAngle = math.Pi / 4
	j := createJoint(t, w, def).(*RevoluteJoint)

	stepN(t, w, 120)
	assert.InDelta(t, -math.Pi/4, j.JointAngle(), 0.05)

	require.ErrorIs(t, j.SetLimits(1, -1), ErrInvalidJoint)
	lower, upper := j.Limits()
	assert.Equal(t, -math.Pi/4, lower)
	assert.Equal(t, math.Pi/4, upper)
}

func TestRevoluteJointMotor(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	ground := newGroundBody(t, w)
	wheel := addCircle(t, w, DynamicBody, Vector{}, 1, 1)

	def := NewRevoluteJointDef(ground, wheel, Vector{})
	def.EnableMotor = true
	def.MotorSpeed = 2
	def.MaxMotorTorque = 1000
	j := createJoint(t, w, def).(*RevoluteJoint)

	stepN(t, w, 30)
	assert.InDelta(t, 2, j.JointSpeed(), 1e-6)
	assert.InDelta(t, 2, wheel.AngularVelocity(), 1e-6)

	// A weak motor cannot hold its speed against a braking torque.
	j.SetMaxMotorTorque(0.1)
	j.SetMotorSpeed(0)
	stepN(t, w, 1)
	assert.Greater(t, wheel.AngularVelocity(), 1.5)
	assert.InDelta(t, 0.1, math.Abs(j.MotorTorque(1/dt)), 1e-9)
}

func TestJointDoesNotCollideConnected(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	a := addBox(t, w, DynamicBody, Vector{}, 1, 1, 1)
	b := addBox(t, w, DynamicBody, Vector{0.5, 0}, 1, 1, 1)
	stepN(t, w, 1)
	require.Equal(t, 1, w.ContactCount())

	createJoint(t, w, NewRevoluteJointDef(a, b, Vector{0.25, 0}))
	stepN(t, w, 1)
	assert.Equal(t, 0, w.ContactCount())
	assert.Len(t, a.Joints(), 1)
	assert.Len(t, b.Joints(), 1)
}

func TestPrismaticJointLimit(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	slider := addBox(t, w, DynamicBody, Vector{0, 5}, 1, 1, 1)

	def := NewPrismaticJointDef(ground, slider, Vector{0, 5}, Vector{0, 1})
	def.EnableLimit = true
	def.LowerTranslation = -1
	def.UpperTranslation = 1
	j := createJoint(t, w, def).(*PrismaticJoint)

	stepN(t, w, 120)
	assert.InDelta(t, -1, j.JointTranslation(), 0.02)
	assert.InDelta(t, 0, slider.Position().X, 1e-6)
	assert.InDelta(t, 0, slider.Angle(), 1e-6)
}

func TestPrismaticJointMotor(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	slider := addBox(t, w, DynamicBody, Vector{}, 1, 1, 1)

	def := NewPrismaticJointDef(ground, slider, Vector{}, Vector{1, 0})
	def.EnableMotor = true
	def.MotorSpeed = 3
	def.MaxMotorForce = 1000
	j := createJoint(t, w, def).(*PrismaticJoint)

	stepN(t, w, 60)
	assert.InDelta(t, 3, j.JointSpeed(), 1e-6)
	assert.InDelta(t, 3, j.JointTranslation(), 0.1)
	// Gravity is fully resisted across the axis.
	assert.InDelta(t, 0, slider.Position().Y, 1e-3)
}

func TestDistanceJoint(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{3, 0}, 0.25, 1)

	j := createJoint(t, w, NewDistanceJointDef(ground, ball, Vector{}, Vector{3, 0})).(*DistanceJoint)
	assert.InDelta(t, 3, j.Length(), 1e-12)

	stepN(t, w, 120)
	assert.InDelta(t, 3, j.CurrentLength(), 0.02)
	assert.Less(t, ball.Position().X, 2.5)
}

func TestDistanceJointSpring(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{0, -2}, 0.25, 1)

	def := NewDistanceJointDef(ground, ball, Vector{}, Vector{0, -2})
	def.FrequencyHz = 1
	def.DampingRatio = 0.5
	j := createJoint(t, w, def).(*DistanceJoint)

	stepN(t, w, 300)
	// A soft joint stretches under load and settles.
	assert.Greater(t, j.CurrentLength(), 2.1)
	assert.InDelta(t, 0, ball.LinearVelocity().Length(), 0.05)
}

func TestRopeJoint(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	ball := addCircle(t, w, DynamicBody, Vector{0, -1}, 0.25, 1)

	j := createJoint(t, w, NewRopeJointDef(ground, ball, Vector{}, Vector{0, -1}, 2)).(*RopeJoint)
	assert.Equal(t, 2.0, j.MaxLength())

	// Slack until the rope pulls tight.
	stepN(t, w, 5)
	assert.Equal(t, InactiveLimit, j.LimitState())

	stepN(t, w, 120)
	assert.InDelta(t, 2, ball.Position().Distance(Vector{}), 0.02)
	assert.Equal(t, AtUpperLimit, j.LimitState())
}

func TestWeldJoint(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	beam := addBox(t, w, DynamicBody, Vector{1, 0}, 2, 0.2, 1)

	j := createJoint(t, w, NewWeldJointDef(ground, beam, Vector{})).(*WeldJoint)
	assert.Equal(t, 0.0, j.ReferenceAngle())

	stepN(t, w, 120)
	assert.InDelta(t, 1, beam.Position().X, 0.01)
	assert.InDelta(t, 0, beam.Position().Y, 0.01)
	assert.InDelta(t, 0, beam.Angle(), 0.01)
}

func TestGearJoint(t *testing.T) {
	rec := &goodbyeRecorder{}
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	w.SetDestructionListener(rec)
	ground := newGroundBody(t, w)
	wheel1 := addCircle(t, w, DynamicBody, Vector{0, 0}, 1, 1)
	wheel2 := addCircle(t, w, DynamicBody, Vector{3, 0}, 1, 1)

	j1 := createJoint(t, w, NewRevoluteJointDef(ground, wheel1, Vector{0, 0})).(*RevoluteJoint)
	j2 := createJoint(t, w, NewRevoluteJointDef(ground, wheel2, Vector{3, 0})).(*RevoluteJoint)
	gear := createJoint(t, w, NewGearJointDef(j1, j2, 2)).(*GearJoint)
	assert.Same(t, wheel1, gear.BodyA())
	assert.Same(t, wheel2, gear.BodyB())

	wheel1.SetAngularVelocity(4)
	stepN(t, w, 60)
	assert.NotZero(t, j1.JointAngle())
	assert.InDelta(t, 0, j1.JointAngle()+2*j2.JointAngle(), 0.01)
	assert.InDelta(t, -0.5*wheel1.AngularVelocity(), wheel2.AngularVelocity(), 1e-3)

	require.ErrorIs(t, gear.SetRatio(0), ErrInvalidJoint)
	assert.Equal(t, 2.0, gear.Ratio())

	// The gear goes with either of its joints.
	require.NoError(t, w.DestroyJoint(j1))
	assert.Equal(t, 1, w.JointCount())
	require.Len(t, rec.joints, 1)
	assert.Same(t, gear, rec.joints[0])
}

func TestGearJointPositionError(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	ground := newGroundBody(t, w)
	wheel1 := addCircle(t, w, DynamicBody, Vector{0, 0}, 1, 1)
	wheel2 := addCircle(t, w, DynamicBody, Vector{3, 0}, 1, 1)

	j1 := createJoint(t, w, NewRevoluteJointDef(ground, wheel1, Vector{0, 0})).(*RevoluteJoint)
	j2 := createJoint(t, w, NewRevoluteJointDef(ground, wheel2, Vector{3, 0})).(*RevoluteJoint)
	createJoint(t, w, NewGearJointDef(j1, j2, 2))

	// Turning one wheel by hand breaks the gear relation; the first position
	// iteration repairs it and the second confirms it.
	require.NoError(t, wheel2.SetTransform(Vector{3, 0}, 0.3))
	require.NoError(t, w.StepDefault(dt))
	assert.Equal(t, 2, w.Profile().PositionIterations)
	assert.InDelta(t, 0, j1.JointAngle()+2*j2.JointAngle(), DefaultAngularSlop)

	require.NoError(t, w.StepDefault(dt))
	assert.Equal(t, 1, w.Profile().PositionIterations)
}

func TestPrismaticGear(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	ground := newGroundBody(t, w)
	wheel := addCircle(t, w, DynamicBody, Vector{0, 0}, 1, 1)
	rack := addBox(t, w, DynamicBody, Vector{0, 2}, 4, 0.5, 1)

	j1 := createJoint(t, w, NewRevoluteJointDef(ground, wheel, Vector{0, 0})).(*RevoluteJoint)
	j2 := createJoint(t, w, NewPrismaticJointDef(ground, rack, Vector{0, 2}, Vector{1, 0})).(*PrismaticJoint)
	createJoint(t, w, NewGearJointDef(j1, j2, 1))

	rack.SetLinearVelocity(Vector{1, 0})
	stepN(t, w, 60)
	assert.NotZero(t, j2.JointTranslation())
	assert.InDelta(t, 0, j1.JointAngle()+j2.JointTranslation(), 0.01)
}

func TestPulleyJoint(t *testing.T) {
	w := newTestWorld(t)
	heavy := addBox(t, w, DynamicBody, Vector{-2, 5}, 1, 1, 2)
	light := addBox(t, w, DynamicBody, Vector{2, 5}, 1, 1, 1)

	def := NewPulleyJointDef(heavy, light,
		Vector{-2, 10}, Vector{2, 10},
		Vector{-2, 5}, Vector{2, 5}, 1)
	j := createJoint(t, w, def).(*PulleyJoint)
	assert.InDelta(t, 5, j.LengthA(), 1e-12)
	assert.Equal(t, Vector{-2, 10}, j.GroundAnchorA())

	stepN(t, w, 60)
	assert.Less(t, heavy.Position().Y, 5.0)
	assert.Greater(t, light.Position().Y, 5.0)
	assert.InDelta(t, 10, j.CurrentLengthA()+j.Ratio()*j.CurrentLengthB(), 0.02)
}

func TestMouseJoint(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	ground := newGroundBody(t, w)
	box := addBox(t, w, DynamicBody, Vector{}, 1, 1, 1)

	j := createJoint(t, w, NewMouseJointDef(ground, box, box.WorldCenter(), 1000*box.Mass())).(*MouseJoint)
	j.SetTarget(Vector{5, 5})
	assert.Equal(t, Vector{5, 5}, j.Target())

	stepN(t, w, 120)
	assert.InDelta(t, 5, box.Position().X, 0.05)
	assert.InDelta(t, 5, box.Position().Y, 0.05)

	require.NoError(t, w.ShiftOrigin(Vector{5, 5}))
	assert.Equal(t, Vector{}, j.Target())
}

func TestMotorJoint(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	ground := newGroundBody(t, w)
	box := addBox(t, w, DynamicBody, Vector{}, 1, 1, 1)

	def := NewMotorJointDef(ground, box)
	def.MaxForce = 1000
	def.MaxTorque = 1000
	j := createJoint(t, w, def).(*MotorJoint)
	j.SetLinearOffset(Vector{3, 0})
	j.SetAngularOffset(1)

	stepN(t, w, 120)
	assert.InDelta(t, 3, box.Position().X, 0.01)
	assert.InDelta(t, 0, box.Position().Y, 0.01)
	assert.InDelta(t, 1, box.Angle(), 0.01)

	j.SetCorrectionFactor(2)
	assert.Equal(t, 1.0, j.CorrectionFactor())
}

func TestFrictionJoint(t *testing.T) {
	w := newTestWorld(t)
	w.SetGravity(Vector{})
	ground := newGroundBody(t, w)
	puck := addCircle(t, w, DynamicBody, Vector{}, 0.5, 1)

	def := NewFrictionJointDef(ground, puck, Vector{})
	def.MaxForce = 2 * puck.Mass()
	def.MaxTorque = 1
	createJoint(t, w, def)

	puck.SetLinearVelocity(Vector{5, 0})
	stepN(t, w, 60)
	// Top-down friction decelerates at MaxForce/m.
	assert.InDelta(t, 3, puck.LinearVelocity().X, 0.05)

	stepN(t, w, 120)
	assert.InDelta(t, 0, puck.LinearVelocity().X, 1e-9)
}

func TestWheelJoint(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	wheel := addCircle(t, w, DynamicBody, Vector{0, 0}, 0.5, 1)

	def := NewWheelJointDef(ground, wheel, Vector{}, Vector{0, 1})
	def.EnableMotor = true
	def.MotorSpeed = -5
	def.MaxMotorTorque = 100
	j := createJoint(t, w, def).(*WheelJoint)

	stepN(t, w, 180)
	// The suspension sags under gravity but stays on its axis.
	assert.Less(t, j.JointTranslation(), -0.01)
	assert.InDelta(t, 0, wheel.Position().X, 1e-6)
	assert.InDelta(t, -5, j.JointSpeed(), 1e-6)
}

func TestJointValidation(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	a := addBox(t, w, DynamicBody, Vector{}, 1, 1, 1)
	rev := createJoint(t, w, NewRevoluteJointDef(ground, a, Vector{}))
	dist := createJoint(t, w, NewDistanceJointDef(ground, a, Vector{}, Vector{1, 0}))

	tests := []struct {
		name string
		def  func() JointDef
	}{
		{"same body", func() JointDef { return NewRevoluteJointDef(a, a, Vector{}) }},
		{"missing body", func() JointDef { return &WeldJointDef{JointDefBase: JointDefBase{BodyB: a}} }},
		{"revolute limits", func() JointDef {
			d := NewRevoluteJointDef(ground, a, Vector{})
			d.LowerAngle, d.UpperAngle = 1, -1
			return d
		}},
		{"prismatic axis", func() JointDef { return NewPrismaticJointDef(ground, a, Vector{}, Vector{}) }},
		{"distance length", func() JointDef {
			d := NewDistanceJointDef(ground, a, Vector{}, Vector{1, 0})
			d.Length = -1
			return d
		}},
		{"pulley ratio", func() JointDef {
			return NewPulleyJointDef(ground, a, Vector{0, 1}, Vector{1, 1}, Vector{}, Vector{1, 0}, 0)
		}},
		{"mouse target", func() JointDef { return NewMouseJointDef(ground, a, Vector{math.NaN(), 0}, 1) }},
		{"motor correction", func() JointDef {
			d := NewMotorJointDef(ground, a)
			d.CorrectionFactor = 2
			return d
		}},
		{"gear with distance", func() JointDef { return NewGearJointDef(rev, dist, 1) }},
		{"gear ratio", func() JointDef { return NewGearJointDef(rev, rev, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.CreateJoint(tt.def())
			assert.ErrorIs(t, err, ErrInvalidJoint)
		})
	}
	assert.Equal(t, 2, w.JointCount())

	_, err := w.CreateJoint(nil)
	assert.ErrorIs(t, err, ErrInvalidJoint)

	other := NewWorld(Vector{})
	stranger, err := other.CreateBody(NewBodyDef(DynamicBody, Vector{}))
	require.NoError(t, err)
	_, err = w.CreateJoint(NewRevoluteJointDef(ground, stranger, Vector{}))
	assert.ErrorIs(t, err, ErrNotInWorld)
}

func TestJointIndexReuse(t *testing.T) {
	w := newTestWorld(t)
	ground := newGroundBody(t, w)
	a := addBox(t, w, DynamicBody, Vector{}, 1, 1, 1)

	j1 := createJoint(t, w, NewRevoluteJointDef(ground, a, Vector{}))
	j2 := createJoint(t, w, NewWeldJointDef(ground, a, Vector{}))
	require.NoError(t, w.DestroyJoint(j1))
	j3 := createJoint(t, w, NewFrictionJointDef(ground, a, Vector{}))

	assert.Equal(t, 2, w.JointCount())
	assert.ElementsMatch(t, []Joint{j2, j3}, w.Joints())
	assert.ElementsMatch(t, []Joint{j2, j3}, a.Joints())
}

func TestJointIslandSplit(t *testing.T) {
	w := newTestWorld(t)
	a := addCircle(t, w, DynamicBody, Vector{0, 10}, 0.5, 1)
	b := addCircle(t, w, DynamicBody, Vector{3, 10}, 0.5, 1)
	j := createJoint(t, w, NewDistanceJointDef(a, b, a.Position(), b.Position()))

	require.NoError(t, w.StepDefault(dt))
	assert.Equal(t, 1, w.Profile().Islands)
	assert.Equal(t, 2, w.Profile().Bodies)

	require.NoError(t, w.DestroyJoint(j))
	require.NoError(t, w.StepDefault(dt))
	assert.Equal(t, 2, w.Profile().Islands)
}
