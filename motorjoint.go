package physics

import "fmt"

// MotorJointDef drives body B towards a target offset and angle relative to
// body A with limited force and torque.
type MotorJointDef struct {
	JointDefBase
	// LinearOffset is the target position of B in A's frame.
	LinearOffset     Vector
	AngularOffset    float64
	MaxForce         float64
	MaxTorque        float64
	CorrectionFactor float64
}

// NewMotorJointDef uses the current relative pose as the target.
func NewMotorJointDef(a, b *Body) *MotorJointDef {
	return &MotorJointDef{
		JointDefBase:     JointDefBase{BodyA: a, BodyB: b},
		LinearOffset:     a.LocalPoint(b.Position()),
		AngularOffset:    b.Angle() - a.Angle(),
		MaxForce:         1.0,
		MaxTorque:        1.0,
		CorrectionFactor: 0.3,
	}
}

func (d *MotorJointDef) Type() JointType {
	return MotorJointType
}

func (d *MotorJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.MaxForce < 0 || d.MaxTorque < 0 {
		return fmt.Errorf("negative motor limits: %w", ErrInvalidJoint)
	}
	if d.CorrectionFactor < 0 || d.CorrectionFactor > 1 {
		return fmt.Errorf("correction factor %v outside [0,1]: %w", d.CorrectionFactor, ErrInvalidJoint)
	}
	return nil
}

func (d *MotorJointDef) create() Joint {
	return &MotorJoint{
		jointBase:        d.newBase(MotorJointType),
		linearOffset:     d.LinearOffset,
		angularOffset:    d.AngularOffset,
		maxForce:         d.MaxForce,
		maxTorque:        d.MaxTorque,
		correctionFactor: d.CorrectionFactor,
	}
}

type MotorJoint struct {
	jointBase

	linearOffset     Vector
	angularOffset    float64
	linearImpulse    Vector
	angularImpulse   float64
	maxForce         float64
	maxTorque        float64
	correctionFactor float64

	rA, rB       Vector
	linearError  Vector
	angularError float64
	linearMass   Mat22
	angularMass  float64
}

func (j *MotorJoint) AnchorA() Vector {
	return j.bodyA.Position()
}

func (j *MotorJoint) AnchorB() Vector {
	return j.bodyB.Position()
}

func (j *MotorJoint) ReactionForce(invDt float64) Vector {
	return j.linearImpulse.Mult(invDt)
}

func (j *MotorJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *MotorJoint) LinearOffset() Vector {
	return j.linearOffset
}

func (j *MotorJoint) SetLinearOffset(offset Vector) {
	if offset != j.linearOffset {
		j.wakeBodies()
		j.linearOffset = offset
	}
}

func (j *MotorJoint) AngularOffset() float64 {
	return j.angularOffset
}

func (j *MotorJoint) SetAngularOffset(offset float64) {
	if offset != j.angularOffset {
		j.wakeBodies()
		j.angularOffset = offset
	}
}

func (j *MotorJoint) MaxForce() float64 {
	return j.maxForce
}

func (j *MotorJoint) SetMaxForce(force float64) {
	j.maxForce = force
}

func (j *MotorJoint) MaxTorque() float64 {
	return j.maxTorque
}

func (j *MotorJoint) SetMaxTorque(torque float64) {
	j.maxTorque = torque
}

func (j *MotorJoint) CorrectionFactor() float64 {
	return j.correctionFactor
}

func (j *MotorJoint) SetCorrectionFactor(factor float64) {
	j.correctionFactor = Clamp01(factor)
}

func (j *MotorJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w

	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	qA, qB := NewRot(aA), NewRot(aB)

	j.rA = qA.Apply(j.linearOffset.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localCenterB.Neg())

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	j.linearMass = pointMass(mA, mB, iA, iB, j.rA, j.rB).Inverse()

	j.angularMass = iA + iB
	if j.angularMass > 0 {
		j.angularMass = 1.0 / j.angularMass
	}

	j.linearError = cB.Add(j.rB).Sub(cA).Sub(j.rA)
	j.angularError = aB - aA - j.angularOffset

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

func (j *MotorJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	h := data.step.dt
	invH := data.step.invDt

	// Angular
	{
		Cdot := wB - wA + invH*j.correctionFactor*j.angularError
		impulse := -j.angularMass * Cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = Clamp(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Linear
	{
		Cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA)).
			Add(j.linearError.Mult(invH * j.correctionFactor))

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

func (j *MotorJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
