package physics

import (
	"fmt"
	"math"
)

// PulleyJointDef connects two bodies through two fixed ground points so that
// lengthA + ratio*lengthB stays constant.
type PulleyJointDef struct {
	JointDefBase
	GroundAnchorA Vector
	GroundAnchorB Vector
	LocalAnchorA  Vector
	LocalAnchorB  Vector
	LengthA       float64
	LengthB       float64
	Ratio         float64
}

func NewPulleyJointDef(a, b *Body, groundA, groundB, anchorA, anchorB Vector, ratio float64) *PulleyJointDef {
	return &PulleyJointDef{
		JointDefBase:  JointDefBase{BodyA: a, BodyB: b, CollideConnected: true},
		GroundAnchorA: groundA,
		GroundAnchorB: groundB,
		LocalAnchorA:  a.LocalPoint(anchorA),
		LocalAnchorB:  b.LocalPoint(anchorB),
		LengthA:       anchorA.Distance(groundA),
		LengthB:       anchorB.Distance(groundB),
		Ratio:         ratio,
	}
}

func (d *PulleyJointDef) Type() JointType {
	return PulleyJointType
}

func (d *PulleyJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if !(d.Ratio > epsilon) {
		return fmt.Errorf("pulley ratio %v: %w", d.Ratio, ErrInvalidJoint)
	}
	if d.LengthA < 0 || d.LengthB < 0 {
		return fmt.Errorf("negative pulley length: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *PulleyJointDef) create() Joint {
	return &PulleyJoint{
		jointBase:     d.newBase(PulleyJointType),
		groundAnchorA: d.GroundAnchorA,
		groundAnchorB: d.GroundAnchorB,
		localAnchorA:  d.LocalAnchorA,
		localAnchorB:  d.LocalAnchorB,
		lengthA:       d.LengthA,
		lengthB:       d.LengthB,
		ratio:         d.Ratio,
		constant:      d.LengthA + d.Ratio*d.LengthB,
	}
}

type PulleyJoint struct {
	jointBase

	groundAnchorA, groundAnchorB Vector
	localAnchorA, localAnchorB   Vector
	lengthA, lengthB             float64
	constant                     float64
	ratio                        float64
	impulse                      float64

	uA, uB Vector
	rA, rB Vector
	mass   float64
}

func (j *PulleyJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *PulleyJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *PulleyJoint) GroundAnchorA() Vector {
	return j.groundAnchorA
}

func (j *PulleyJoint) GroundAnchorB() Vector {
	return j.groundAnchorB
}

// LengthA is the rest length of segment A.
func (j *PulleyJoint) LengthA() float64 {
	return j.lengthA
}

func (j *PulleyJoint) LengthB() float64 {
	return j.lengthB
}

func (j *PulleyJoint) Ratio() float64 {
	return j.ratio
}

// CurrentLengthA is the present distance from anchor A to its ground point.
func (j *PulleyJoint) CurrentLengthA() float64 {
	return j.AnchorA().Distance(j.groundAnchorA)
}

func (j *PulleyJoint) CurrentLengthB() float64 {
	return j.AnchorB().Distance(j.groundAnchorB)
}

func (j *PulleyJoint) ReactionForce(invDt float64) Vector {
	return j.uB.Mult(invDt * j.impulse)
}

func (j *PulleyJoint) ReactionTorque(invDt float64) float64 {
	return 0
}

func (j *PulleyJoint) shiftOrigin(newOrigin Vector) {
	j.groundAnchorA = j.groundAnchorA.Sub(newOrigin)
	j.groundAnchorB = j.groundAnchorB.Sub(newOrigin)
}

func (j *PulleyJoint) initVelocityConstraints(data *solverData) {
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

	// Get the pulley axes.
	j.uA = cA.Add(j.rA).Sub(j.groundAnchorA)
	j.uB = cB.Add(j.rB).Sub(j.groundAnchorB)

	slop := data.settings.LinearSlop
	if lengthA := j.uA.Length(); lengthA > 10.0*slop {
		j.uA = j.uA.Mult(1.0 / lengthA)
	} else {
		j.uA = Vector{}
	}
	if lengthB := j.uB.Length(); lengthB > 10.0*slop {
		j.uB = j.uB.Mult(1.0 / lengthB)
	} else {
		j.uB = Vector{}
	}

	ruA := j.rA.Cross(j.uA)
	ruB := j.rB.Cross(j.uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	j.mass = mA + j.ratio*j.ratio*mB
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	}

	if data.step.warmStarting {
		j.impulse *= data.step.dtRatio

		PA := j.uA.Mult(-j.impulse)
		PB := j.uB.Mult(-j.ratio * j.impulse)

		vA = vA.Add(PA.Mult(j.invMassA))
		wA += j.invIA * j.rA.Cross(PA)
		vB = vB.Add(PB.Mult(j.invMassB))
		wB += j.invIB * j.rB.Cross(PB)
	} else {
		j.impulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *PulleyJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))

	Cdot := -j.uA.Dot(vpA) - j.ratio*j.uB.Dot(vpB)
	impulse := -j.mass * Cdot
	j.impulse += impulse

	PA := j.uA.Mult(-impulse)
	PB := j.uB.Mult(-j.ratio * impulse)
	vA = vA.Add(PA.Mult(j.invMassA))
	wA += j.invIA * j.rA.Cross(PA)
	vB = vB.Add(PB.Mult(j.invMassB))
	wB += j.invIB * j.rB.Cross(PB)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *PulleyJoint) solvePositionConstraints(data *solverData) bool {
	s := data.settings

	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	uA := cA.Add(rA).Sub(j.groundAnchorA)
	uB := cB.Add(rB).Sub(j.groundAnchorB)

	lengthA := uA.Length()
	lengthB := uB.Length()

	if lengthA > 10.0*s.LinearSlop {
		uA = uA.Mult(1.0 / lengthA)
	} else {
		uA = Vector{}
	}
	if lengthB > 10.0*s.LinearSlop {
		uB = uB.Mult(1.0 / lengthB)
	} else {
		uB = Vector{}
	}

	ruA := rA.Cross(uA)
	ruB := rB.Cross(uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	mass := mA + j.ratio*j.ratio*mB
	if mass > 0 {
		mass = 1.0 / mass
	}

	C := j.constant - lengthA - j.ratio*lengthB
	linearError := math.Abs(C)

	impulse := -mass * C

	PA := uA.Mult(-impulse)
	PB := uB.Mult(-j.ratio * impulse)

	cA = cA.Add(PA.Mult(j.invMassA))
	aA += j.invIA * rA.Cross(PA)
	cB = cB.Add(PB.Mult(j.invMassB))
	aB += j.invIB * rB.Cross(PB)

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return linearError < s.LinearSlop
}
