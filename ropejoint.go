package physics

import (
	"fmt"
	"math"
)

// RopeJointDef caps the distance between two anchors. The rope can go slack.
type RopeJointDef struct {
	JointDefBase
	LocalAnchorA Vector
	LocalAnchorB Vector
	MaxLength    float64
}

func NewRopeJointDef(a, b *Body, anchorA, anchorB Vector, maxLength float64) *RopeJointDef {
	return &RopeJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA: a.LocalPoint(anchorA),
		LocalAnchorB: b.LocalPoint(anchorB),
		MaxLength:    maxLength,
	}
}

func (d *RopeJointDef) Type() JointType {
	return RopeJointType
}

func (d *RopeJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.MaxLength < 0 || !isValidFloat(d.MaxLength) {
		return fmt.Errorf("rope max length %v: %w", d.MaxLength, ErrInvalidJoint)
	}
	return nil
}

func (d *RopeJointDef) create() Joint {
	return &RopeJoint{
		jointBase:    d.newBase(RopeJointType),
		localAnchorA: d.LocalAnchorA,
		localAnchorB: d.LocalAnchorB,
		maxLength:    d.MaxLength,
	}
}

type RopeJoint struct {
	jointBase

	localAnchorA, localAnchorB Vector
	maxLength                  float64

	length  float64
	impulse float64

	u      Vector
	rA, rB Vector
	mass   float64
	state  LimitState
}

func (j *RopeJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *RopeJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *RopeJoint) ReactionForce(invDt float64) Vector {
	return j.u.Mult(invDt * j.impulse)
}

func (j *RopeJoint) ReactionTorque(invDt float64) float64 {
	return 0
}

func (j *RopeJoint) MaxLength() float64 {
	return j.maxLength
}

func (j *RopeJoint) SetMaxLength(length float64) {
	j.wakeBodies()
	j.maxLength = math.Max(length, 0)
}

// LimitState reports AtUpperLimit while the rope is taut.
func (j *RopeJoint) LimitState() LimitState {
	return j.state
}

func (j *RopeJoint) initVelocityConstraints(data *solverData) {
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

	j.rA = qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	j.length = j.u.Length()

	// The position pass leaves a taut rope at or just under its length.
	C := j.length - j.maxLength
	if C > -data.settings.LinearSlop {
		j.state = AtUpperLimit
	} else {
		j.state = InactiveLimit
	}

	if j.length > data.settings.LinearSlop {
		j.u = j.u.Mult(1.0 / j.length)
	} else {
		j.u = Vector{}
		j.mass = 0
		j.impulse = 0
		return
	}

	crA := j.rA.Cross(j.u)
	crB := j.rB.Cross(j.u)
	invMass := j.invMassA + j.invIA*crA*crA + j.invMassB + j.invIB*crB*crB
	if invMass != 0 {
		j.mass = 1.0 / invMass
	} else {
		j.mass = 0
	}

	if data.step.warmStarting {
		j.impulse *= data.step.dtRatio

		P := j.u.Mult(j.impulse)
		vA = vA.Sub(P.Mult(j.invMassA))
		wA -= j.invIA * j.rA.Cross(P)
		vB = vB.Add(P.Mult(j.invMassB))
		wB += j.invIB * j.rB.Cross(P)
	} else {
		j.impulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RopeJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))
	C := j.length - j.maxLength
	Cdot := j.u.Dot(vpB.Sub(vpA))

	// Predictive constraint.
	if C < 0 {
		Cdot += data.step.invDt * C
	}

	impulse := -j.mass * Cdot
	oldImpulse := j.impulse
	j.impulse = math.Min(0, j.impulse+impulse)
	impulse = j.impulse - oldImpulse

	P := j.u.Mult(impulse)
	vA = vA.Sub(P.Mult(j.invMassA))
	wA -= j.invIA * j.rA.Cross(P)
	vB = vB.Add(P.Mult(j.invMassB))
	wB += j.invIB * j.rB.Cross(P)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RopeJoint) solvePositionConstraints(data *solverData) bool {
	s := data.settings

	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	u, length := cB.Add(rB).Sub(cA).Sub(rA).Normalized()

	C := Clamp(length-j.maxLength, 0, s.MaxLinearCorrection)

	impulse := -j.mass * C
	P := u.Mult(impulse)

	cA = cA.Sub(P.Mult(j.invMassA))
	aA -= j.invIA * rA.Cross(P)
	cB = cB.Add(P.Mult(j.invMassB))
	aB += j.invIB * rB.Cross(P)

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return length-j.maxLength < s.LinearSlop
}
