package physics

import (
	"fmt"
	"math"
)

// RevoluteJointDef pins two bodies together at an anchor and lets them
// rotate about it, optionally with an angle limit and a motor.
type RevoluteJointDef struct {
	JointDefBase
	LocalAnchorA   Vector
	LocalAnchorB   Vector
	ReferenceAngle float64

	EnableLimit bool
	LowerAngle  float64
	UpperAngle  float64

	EnableMotor    bool
	MotorSpeed     float64
	MaxMotorTorque float64
}

// NewRevoluteJointDef builds a definition from a world anchor using the
// current body poses.
func NewRevoluteJointDef(a, b *Body, anchor Vector) *RevoluteJointDef {
	return &RevoluteJointDef{
		JointDefBase:   JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA:   a.LocalPoint(anchor),
		LocalAnchorB:   b.LocalPoint(anchor),
		ReferenceAngle: b.Angle() - a.Angle(),
	}
}

func (d *RevoluteJointDef) Type() JointType {
	return RevoluteJointType
}

func (d *RevoluteJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.LowerAngle > d.UpperAngle {
		return fmt.Errorf("revolute lower angle %v above upper %v: %w", d.LowerAngle, d.UpperAngle, ErrInvalidJoint)
	}
	if d.MaxMotorTorque < 0 {
		return fmt.Errorf("negative motor torque: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *RevoluteJointDef) create() Joint {
	return &RevoluteJoint{
		jointBase:      d.newBase(RevoluteJointType),
		localAnchorA:   d.LocalAnchorA,
		localAnchorB:   d.LocalAnchorB,
		referenceAngle: d.ReferenceAngle,
		enableLimit:    d.EnableLimit,
		lowerAngle:     d.LowerAngle,
		upperAngle:     d.UpperAngle,
		enableMotor:    d.EnableMotor,
		motorSpeed:     d.MotorSpeed,
		maxMotorTorque: d.MaxMotorTorque,
	}
}

type RevoluteJoint struct {
	jointBase

	localAnchorA, localAnchorB Vector
	referenceAngle             float64

	// point, motor and limit impulses
	impulse      Vector
	motorImpulse float64
	lowerImpulse float64
	upperImpulse float64

	enableMotor    bool
	maxMotorTorque float64
	motorSpeed     float64

	enableLimit bool
	lowerAngle  float64
	upperAngle  float64

	rA, rB    Vector
	k         Mat22
	angle     float64
	axialMass float64
}

func (j *RevoluteJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *RevoluteJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *RevoluteJoint) LocalAnchorA() Vector {
	return j.localAnchorA
}

func (j *RevoluteJoint) LocalAnchorB() Vector {
	return j.localAnchorB
}

func (j *RevoluteJoint) ReferenceAngle() float64 {
	return j.referenceAngle
}

func (j *RevoluteJoint) ReactionForce(invDt float64) Vector {
	return j.impulse.Mult(invDt)
}

func (j *RevoluteJoint) ReactionTorque(invDt float64) float64 {
	return invDt * (j.motorImpulse + j.lowerImpulse - j.upperImpulse)
}

// JointAngle is the current angle of B relative to A minus the reference.
func (j *RevoluteJoint) JointAngle() float64 {
	return j.bodyB.sweep.A - j.bodyA.sweep.A - j.referenceAngle
}

func (j *RevoluteJoint) JointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *RevoluteJoint) IsLimitEnabled() bool {
	return j.enableLimit
}

func (j *RevoluteJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wakeBodies()
		j.enableLimit = flag
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
}

func (j *RevoluteJoint) Limits() (lower, upper float64) {
	return j.lowerAngle, j.upperAngle
}

func (j *RevoluteJoint) SetLimits(lower, upper float64) error {
	if lower > upper {
		return fmt.Errorf("lower %v above upper %v: %w", lower, upper, ErrInvalidJoint)
	}
	if lower != j.lowerAngle || upper != j.upperAngle {
		j.wakeBodies()
		j.lowerImpulse = 0
		j.upperImpulse = 0
		j.lowerAngle = lower
		j.upperAngle = upper
	}
	return nil
}

func (j *RevoluteJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *RevoluteJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wakeBodies()
		j.enableMotor = flag
	}
}

func (j *RevoluteJoint) MotorSpeed() float64 {
	return j.motorSpeed
}

func (j *RevoluteJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wakeBodies()
		j.motorSpeed = speed
	}
}

func (j *RevoluteJoint) MaxMotorTorque() float64 {
	return j.maxMotorTorque
}

func (j *RevoluteJoint) SetMaxMotorTorque(torque float64) {
	if torque != j.maxMotorTorque {
		j.wakeBodies()
		j.maxMotorTorque = torque
	}
}

// MotorTorque is the torque applied by the motor during the last step.
func (j *RevoluteJoint) MotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

// pointMass is the effective mass of the point-to-point constraint.
func pointMass(mA, mB, iA, iB float64, rA, rB Vector) Mat22 {
	var k Mat22
	k.Ex.X = mA + mB + rA.Y*rA.Y*iA + rB.Y*rB.Y*iB
	k.Ey.X = -rA.Y*rA.X*iA - rB.Y*rB.X*iB
	k.Ex.Y = k.Ey.X
	k.Ey.Y = mA + mB + rA.X*rA.X*iA + rB.X*rB.X*iB
	return k
}

func (j *RevoluteJoint) initVelocityConstraints(data *solverData) {
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

	j.k = pointMass(mA, mB, iA, iB, j.rA, j.rB)

	j.axialMass = iA + iB
	fixedRotation := j.axialMass == 0
	if j.axialMass > 0 {
		j.axialMass = 1.0 / j.axialMass
	}

	j.angle = aB - aA - j.referenceAngle
	if !j.enableLimit || fixedRotation {
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
	if !j.enableMotor || fixedRotation {
		j.motorImpulse = 0
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mult(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio
		j.lowerImpulse *= data.step.dtRatio
		j.upperImpulse *= data.step.dtRatio

		axialImpulse := j.motorImpulse + j.lowerImpulse - j.upperImpulse
		P := j.impulse

		vA = vA.Sub(P.Mult(mA))
		wA -= iA * (j.rA.Cross(P) + axialImpulse)
		vB = vB.Add(P.Mult(mB))
		wB += iB * (j.rB.Cross(P) + axialImpulse)
	} else {
		j.impulse = Vector{}
		j.motorImpulse = 0
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RevoluteJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB
	fixedRotation := iA+iB == 0

	if j.enableMotor && !fixedRotation {
		Cdot := wB - wA - j.motorSpeed
		impulse := -j.axialMass * Cdot
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = Clamp(oldImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	if j.enableLimit && !fixedRotation {
		// Lower limit
		{
			C := j.angle - j.lowerAngle
			Cdot := wB - wA
			impulse := -j.axialMass * (Cdot + math.Max(C, 0)*data.step.invDt)
			oldImpulse := j.lowerImpulse
			j.lowerImpulse = math.Max(j.lowerImpulse+impulse, 0)
			impulse = j.lowerImpulse - oldImpulse

			wA -= iA * impulse
			wB += iB * impulse
		}

		// Upper limit. The sign is flipped so the accumulated impulse stays positive.
		{
			C := j.upperAngle - j.angle
			Cdot := wA - wB
			impulse := -j.axialMass * (Cdot + math.Max(C, 0)*data.step.invDt)
			oldImpulse := j.upperImpulse
			j.upperImpulse = math.Max(j.upperImpulse+impulse, 0)
			impulse = j.upperImpulse - oldImpulse

			wA += iA * impulse
			wB -= iB * impulse
		}
	}

	// Point to point
	Cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))
	impulse := j.k.Solve(Cdot.Neg())

	j.impulse = j.impulse.Add(impulse)

	vA = vA.Sub(impulse.Mult(mA))
	wA -= iA * j.rA.Cross(impulse)
	vB = vB.Add(impulse.Mult(mB))
	wB += iB * j.rB.Cross(impulse)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RevoluteJoint) solvePositionConstraints(data *solverData) bool {
	s := data.settings
	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a

	angularError := 0.0
	positionError := 0.0

	fixedRotation := j.invIA+j.invIB == 0

	if j.enableLimit && !fixedRotation {
		angle := aB - aA - j.referenceAngle
		C := 0.0

		switch {
		case math.Abs(j.upperAngle-j.lowerAngle) < 2.0*s.AngularSlop:
			// Prevent large angular corrections
			C = Clamp(angle-j.lowerAngle, -s.MaxAngularCorrection, s.MaxAngularCorrection)
		case angle <= j.lowerAngle:
			C = Clamp(angle-j.lowerAngle+s.AngularSlop, -s.MaxAngularCorrection, 0)
		case angle >= j.upperAngle:
			C = Clamp(angle-j.upperAngle-s.AngularSlop, 0, s.MaxAngularCorrection)
		}

		limitImpulse := -j.axialMass * C
		aA -= j.invIA * limitImpulse
		aB += j.invIB * limitImpulse
		angularError = math.Abs(C)
	}

	// Solve point to point constraint.
	{
		qA, qB := NewRot(aA), NewRot(aB)
		rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
		rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))

		C := cB.Add(rB).Sub(cA).Sub(rA)
		positionError = C.Length()

		mA, mB := j.invMassA, j.invMassB
		iA, iB := j.invIA, j.invIB

		K := pointMass(mA, mB, iA, iB, rA, rB)
		impulse := K.Solve(C).Neg()

		cA = cA.Sub(impulse.Mult(mA))
		aA -= iA * rA.Cross(impulse)
		cB = cB.Add(impulse.Mult(mB))
		aB += iB * rB.Cross(impulse)
	}

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return positionError <= s.LinearSlop && angularError <= s.AngularSlop
}
