package physics

import "fmt"

// MouseJointDef drags a point on body B towards a world target with a soft
// spring. Body A is only a placeholder, usually a static ground body.
type MouseJointDef struct {
	JointDefBase
	// Target is the initial world target; it also picks the anchor on B.
	Target       Vector
	MaxForce     float64
	FrequencyHz  float64
	DampingRatio float64
}

func NewMouseJointDef(ground, b *Body, target Vector, maxForce float64) *MouseJointDef {
	return &MouseJointDef{
		JointDefBase: JointDefBase{BodyA: ground, BodyB: b},
		Target:       target,
		MaxForce:     maxForce,
		FrequencyHz:  5.0,
		DampingRatio: 0.7,
	}
}

func (d *MouseJointDef) Type() JointType {
	return MouseJointType
}

func (d *MouseJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if !d.Target.IsValid() {
		return fmt.Errorf("mouse target %v: %w", d.Target, ErrInvalidJoint)
	}
	if d.MaxForce < 0 || d.FrequencyHz < 0 || d.DampingRatio < 0 {
		return fmt.Errorf("negative mouse parameters: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *MouseJointDef) create() Joint {
	return &MouseJoint{
		jointBase:    d.newBase(MouseJointType),
		targetA:      d.Target,
		localAnchorB: d.BodyB.LocalPoint(d.Target),
		maxForce:     d.MaxForce,
		frequencyHz:  d.FrequencyHz,
		dampingRatio: d.DampingRatio,
	}
}

type MouseJoint struct {
	jointBase

	localAnchorB Vector
	targetA      Vector
	frequencyHz  float64
	dampingRatio float64
	beta         float64

	impulse  Vector
	maxForce float64
	gamma    float64

	rB   Vector
	mass Mat22
	c    Vector
}

func (j *MouseJoint) AnchorA() Vector {
	return j.targetA
}

func (j *MouseJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *MouseJoint) ReactionForce(invDt float64) Vector {
	return j.impulse.Mult(invDt)
}

func (j *MouseJoint) ReactionTorque(invDt float64) float64 {
	return 0
}

func (j *MouseJoint) Target() Vector {
	return j.targetA
}

// SetTarget moves the drag point and wakes body B.
func (j *MouseJoint) SetTarget(target Vector) {
	if target != j.targetA {
		j.bodyB.SetAwake(true)
		j.targetA = target
	}
}

func (j *MouseJoint) MaxForce() float64 {
	return j.maxForce
}

func (j *MouseJoint) SetMaxForce(force float64) {
	j.maxForce = force
}

func (j *MouseJoint) Frequency() float64 {
	return j.frequencyHz
}

func (j *MouseJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *MouseJoint) DampingRatio() float64 {
	return j.dampingRatio
}

func (j *MouseJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}

func (j *MouseJoint) shiftOrigin(newOrigin Vector) {
	j.targetA = j.targetA.Sub(newOrigin)
}

func (j *MouseJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	qB := NewRot(aB)

	mass := j.bodyB.Mass()
	j.gamma, j.beta = softConstraint(mass, j.frequencyHz, j.dampingRatio, data.step.dt)

	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	mB, iB := j.invMassB, j.invIB

	var K Mat22
	K.Ex.X = mB + iB*j.rB.Y*j.rB.Y + j.gamma
	K.Ex.Y = -iB * j.rB.X * j.rB.Y
	K.Ey.X = K.Ex.Y
	K.Ey.Y = mB + iB*j.rB.X*j.rB.X + j.gamma

	j.mass = K.Inverse()

	j.c = cB.Add(j.rB).Sub(j.targetA).Mult(j.beta)

	// Cheat with some damping
	wB *= 0.98

	if data.step.warmStarting {
		j.impulse = j.impulse.Mult(data.step.dtRatio)
		vB = vB.Add(j.impulse.Mult(mB))
		wB += iB * j.rB.Cross(j.impulse)
	} else {
		j.impulse = Vector{}
	}

	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *MouseJoint) solveVelocityConstraints(data *solverData) {
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	Cdot := vB.Add(CrossSV(wB, j.rB))
	impulse := j.mass.MulV(Cdot.Add(j.c).Add(j.impulse.Mult(j.gamma)).Neg())

	oldImpulse := j.impulse
	j.impulse = j.impulse.Add(impulse).Clamp(data.step.dt * j.maxForce)
	impulse = j.impulse.Sub(oldImpulse)

	vB = vB.Add(impulse.Mult(j.invMassB))
	wB += j.invIB * j.rB.Cross(impulse)

	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *MouseJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
