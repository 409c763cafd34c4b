package physics

import (
	"fmt"
	"math"
)

// WheelJointDef attaches a wheel (body B) to a chassis (body A). The wheel
// slides on a suspension axis fixed in A with a spring and rotates freely,
// optionally driven by a motor.
type WheelJointDef struct {
	JointDefBase
	LocalAnchorA Vector
	LocalAnchorB Vector
	LocalAxisA   Vector

	EnableMotor    bool
	MaxMotorTorque float64
	MotorSpeed     float64

	// Suspension spring; zero frequency makes the axis rigid.
	FrequencyHz  float64
	DampingRatio float64
}

func NewWheelJointDef(a, b *Body, anchor, axis Vector) *WheelJointDef {
	return &WheelJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA: a.LocalPoint(anchor),
		LocalAnchorB: b.LocalPoint(anchor),
		LocalAxisA:   a.LocalVector(axis),
		FrequencyHz:  2.0,
		DampingRatio: 0.7,
	}
}

func (d *WheelJointDef) Type() JointType {
	return WheelJointType
}

func (d *WheelJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.LocalAxisA.LengthSq() < epsilon*epsilon {
		return fmt.Errorf("wheel axis is zero: %w", ErrInvalidJoint)
	}
	if d.FrequencyHz < 0 || d.DampingRatio < 0 || d.MaxMotorTorque < 0 {
		return fmt.Errorf("negative wheel parameters: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *WheelJointDef) create() Joint {
	axis := d.LocalAxisA.Normalize()
	return &WheelJoint{
		jointBase:      d.newBase(WheelJointType),
		localAnchorA:   d.LocalAnchorA,
		localAnchorB:   d.LocalAnchorB,
		localXAxisA:    axis,
		localYAxisA:    CrossSV(1.0, axis),
		enableMotor:    d.EnableMotor,
		maxMotorTorque: d.MaxMotorTorque,
		motorSpeed:     d.MotorSpeed,
		frequencyHz:    d.FrequencyHz,
		dampingRatio:   d.DampingRatio,
	}
}

type WheelJoint struct {
	jointBase

	localAnchorA, localAnchorB Vector
	localXAxisA, localYAxisA   Vector

	frequencyHz  float64
	dampingRatio float64

	impulse       float64
	motorImpulse  float64
	springImpulse float64

	maxMotorTorque float64
	motorSpeed     float64
	enableMotor    bool

	ax, ay   Vector
	sAx, sBx float64
	sAy, sBy float64

	mass       float64
	motorMass  float64
	springMass float64

	bias  float64
	gamma float64
}

func (j *WheelJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *WheelJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *WheelJoint) LocalAxisA() Vector {
	return j.localXAxisA
}

func (j *WheelJoint) ReactionForce(invDt float64) Vector {
	return j.ay.Mult(j.impulse).Add(j.ax.Mult(j.springImpulse)).Mult(invDt)
}

func (j *WheelJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

// JointTranslation is the suspension travel along the axis.
func (j *WheelJoint) JointTranslation() float64 {
	pA := j.bodyA.WorldPoint(j.localAnchorA)
	pB := j.bodyB.WorldPoint(j.localAnchorB)
	axis := j.bodyA.WorldVector(j.localXAxisA)
	return pB.Sub(pA).Dot(axis)
}

// JointSpeed is the relative angular speed of the wheel.
func (j *WheelJoint) JointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *WheelJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *WheelJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wakeBodies()
		j.enableMotor = flag
	}
}

func (j *WheelJoint) MotorSpeed() float64 {
	return j.motorSpeed
}

func (j *WheelJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wakeBodies()
		j.motorSpeed = speed
	}
}

func (j *WheelJoint) MaxMotorTorque() float64 {
	return j.maxMotorTorque
}

func (j *WheelJoint) SetMaxMotorTorque(torque float64) {
	if torque != j.maxMotorTorque {
		j.wakeBodies()
		j.maxMotorTorque = torque
	}
}

func (j *WheelJoint) MotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *WheelJoint) SpringFrequency() float64 {
	return j.frequencyHz
}

func (j *WheelJoint) SetSpringFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *WheelJoint) SpringDampingRatio() float64 {
	return j.dampingRatio
}

func (j *WheelJoint) SetSpringDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}

func (j *WheelJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w

	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	// Point to line constraint
	j.ay = qA.Apply(j.localYAxisA)
	j.sAy = d.Add(rA).Cross(j.ay)
	j.sBy = rB.Cross(j.ay)

	j.mass = mA + mB + iA*j.sAy*j.sAy + iB*j.sBy*j.sBy
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	}

	// Spring constraint
	j.springMass = 0
	j.bias = 0
	j.gamma = 0
	if j.frequencyHz > 0 {
		j.ax = qA.Apply(j.localXAxisA)
		j.sAx = d.Add(rA).Cross(j.ax)
		j.sBx = rB.Cross(j.ax)

		invMass := mA + mB + iA*j.sAx*j.sAx + iB*j.sBx*j.sBx
		if invMass > 0 {
			j.springMass = 1.0 / invMass

			C := d.Dot(j.ax)
			var biasCoef float64
			j.gamma, biasCoef = softConstraint(j.springMass, j.frequencyHz, j.dampingRatio, data.step.dt)
			j.bias = C * biasCoef

			j.springMass = invMass + j.gamma
			if j.springMass > 0 {
				j.springMass = 1.0 / j.springMass
			}
		}
	} else {
		j.springImpulse = 0
	}

	// Rotational motor
	if j.enableMotor {
		j.motorMass = iA + iB
		if j.motorMass > 0 {
			j.motorMass = 1.0 / j.motorMass
		}
	} else {
		j.motorMass = 0
		j.motorImpulse = 0
	}

	if data.step.warmStarting {
		j.impulse *= data.step.dtRatio
		j.springImpulse *= data.step.dtRatio
		j.motorImpulse *= data.step.dtRatio

		P := j.ay.Mult(j.impulse).Add(j.ax.Mult(j.springImpulse))
		LA := j.impulse*j.sAy + j.springImpulse*j.sAx + j.motorImpulse
		LB := j.impulse*j.sBy + j.springImpulse*j.sBx + j.motorImpulse

		vA = vA.Sub(P.Mult(mA))
		wA -= iA * LA
		vB = vB.Add(P.Mult(mB))
		wB += iB * LB
	} else {
		j.impulse = 0
		j.springImpulse = 0
		j.motorImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WheelJoint) solveVelocityConstraints(data *solverData) {
	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	// Solve spring constraint
	{
		Cdot := j.ax.Dot(vB.Sub(vA)) + j.sBx*wB - j.sAx*wA
		impulse := -j.springMass * (Cdot + j.bias + j.gamma*j.springImpulse)
		j.springImpulse += impulse

		P := j.ax.Mult(impulse)
		vA = vA.Sub(P.Mult(mA))
		wA -= iA * impulse * j.sAx
		vB = vB.Add(P.Mult(mB))
		wB += iB * impulse * j.sBx
	}

	// Solve rotational motor constraint
	{
		Cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * Cdot

		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve point to line constraint
	{
		Cdot := j.ay.Dot(vB.Sub(vA)) + j.sBy*wB - j.sAy*wA
		impulse := -j.mass * Cdot
		j.impulse += impulse

		P := j.ay.Mult(impulse)
		vA = vA.Sub(P.Mult(mA))
		wA -= iA * impulse * j.sAy
		vB = vB.Add(P.Mult(mB))
		wB += iB * impulse * j.sBy
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WheelJoint) solvePositionConstraints(data *solverData) bool {
	s := data.settings

	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	ay := qA.Apply(j.localYAxisA)

	sAy := d.Add(rA).Cross(ay)
	sBy := rB.Cross(ay)

	C := d.Dot(ay)

	k := j.invMassA + j.invMassB + j.invIA*sAy*sAy + j.invIB*sBy*sBy

	impulse := 0.0
	if k != 0 {
		impulse = -C / k
	}

	P := ay.Mult(impulse)
	LA := impulse * sAy
	LB := impulse * sBy

	cA = cA.Sub(P.Mult(j.invMassA))
	aA -= j.invIA * LA
	cB = cB.Add(P.Mult(j.invMassB))
	aB += j.invIB * LB

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return math.Abs(C) <= s.LinearSlop
}
