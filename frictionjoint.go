package physics

import "fmt"

// FrictionJointDef applies top-down friction: relative translation and
// rotation are resisted up to a maximum force and torque.
type FrictionJointDef struct {
	JointDefBase
	LocalAnchorA Vector
	LocalAnchorB Vector
	MaxForce     float64
	MaxTorque    float64
}

func NewFrictionJointDef(a, b *Body, anchor Vector) *FrictionJointDef {
	return &FrictionJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA: a.LocalPoint(anchor),
		LocalAnchorB: b.LocalPoint(anchor),
	}
}

func (d *FrictionJointDef) Type() JointType {
	return FrictionJointType
}

func (d *FrictionJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.MaxForce < 0 || d.MaxTorque < 0 {
		return fmt.Errorf("negative friction limits: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *FrictionJointDef) create() Joint {
	return &FrictionJoint{
		jointBase:    d.newBase(FrictionJointType),
		localAnchorA: d.LocalAnchorA,
		localAnchorB: d.LocalAnchorB,
		maxForce:     d.MaxForce,
		maxTorque:    d.MaxTorque,
	}
}

type FrictionJoint struct {
	jointBase

	localAnchorA, localAnchorB Vector

	linearImpulse  Vector
	angularImpulse float64
	maxForce       float64
	maxTorque      float64

	rA, rB      Vector
	linearMass  Mat22
	angularMass float64
}

func (j *FrictionJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *FrictionJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *FrictionJoint) ReactionForce(invDt float64) Vector {
	return j.linearImpulse.Mult(invDt)
}

func (j *FrictionJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *FrictionJoint) MaxForce() float64 {
	return j.maxForce
}

func (j *FrictionJoint) SetMaxForce(force float64) {
	j.maxForce = force
}

func (j *FrictionJoint) MaxTorque() float64 {
	return j.maxTorque
}

func (j *FrictionJoint) SetMaxTorque(torque float64) {
	j.maxTorque = torque
}

func (j *FrictionJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	aA := data.positions[j.indexA].a
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w

	aB := data.positions[j.indexB].a
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	qA, qB := NewRot(aA), NewRot(aB)

	j.rA = qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	j.linearMass = pointMass(mA, mB, iA, iB, j.rA, j.rB).Inverse()

	j.angularMass = iA + iB
	if j.angularMass > 0 {
		j.angularMass = 1.0 / j.angularMass
	}

	if data.step.warmStarting {
		j.linearImpulse = j.linearImpulse.Mult(data.step.dtRatio)
		j.angularImpulse *= data.step.dtRatio

		P := j.linearImpulse
		vA = vA.Sub(P.Mult(mA))
		wA -= iA * (j.rA.Cross(P) + j.angularImpulse)
		vB = vB.Add(P.Mult(mB))
		wB += iB * (j.rB.Cross(P) + j.angularImpulse)
	} else {
		j.linearImpulse = Vector{}
		j.angularImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *FrictionJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	h := data.step.dt

	// Angular friction
	{
		Cdot := wB - wA
		impulse := -j.angularMass * Cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = Clamp(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Linear friction
	{
		Cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))

		impulse := j.linearMass.MulV(Cdot).Neg()
		oldImpulse := j.linearImpulse
		j.linearImpulse = j.linearImpulse.Add(impulse).Clamp(h * j.maxForce)
		impulse = j.linearImpulse.Sub(oldImpulse)

		vA = vA.Sub(impulse.Mult(mA))
		wA -= iA * j.rA.Cross(impulse)
		vB = vB.Add(impulse.Mult(mB))
		wB += iB * j.rB.Cross(impulse)
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *FrictionJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
