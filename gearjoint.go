package physics

import (
	"fmt"
	"math"
)

// GearJointDef couples two revolute or prismatic joints so that
// coordinate1 + ratio*coordinate2 stays constant. Both joints must have a
// static or otherwise fixed body A; the gear's bodies are their B bodies.
type GearJointDef struct {
	JointDefBase
	Joint1 Joint
	Joint2 Joint
	Ratio  float64
}

func NewGearJointDef(joint1, joint2 Joint, ratio float64) *GearJointDef {
	d := &GearJointDef{Joint1: joint1, Joint2: joint2, Ratio: ratio}
	if joint1 != nil {
		d.BodyA = joint1.BodyB()
	}
	if joint2 != nil {
		d.BodyB = joint2.BodyB()
	}
	return d
}

func (d *GearJointDef) Type() JointType {
	return GearJointType
}

func (d *GearJointDef) bodies() (*Body, *Body) {
	return d.Joint1.BodyB(), d.Joint2.BodyB()
}

func isGearable(j Joint) bool {
	switch j.(type) {
	case *RevoluteJoint, *PrismaticJoint:
		return true
	}
	return false
}

func (d *GearJointDef) validate() error {
	if d.Joint1 == nil || d.Joint2 == nil {
		return fmt.Errorf("gear needs two joints: %w", ErrInvalidJoint)
	}
	if !isGearable(d.Joint1) || !isGearable(d.Joint2) {
		return fmt.Errorf("gear couples %v and %v, want revolute or prismatic: %w", d.Joint1.Type(), d.Joint2.Type(), ErrInvalidJoint)
	}
	if d.Joint1.base().index < 0 || d.Joint2.base().index < 0 {
		return fmt.Errorf("gear joint was destroyed: %w", ErrInvalidJoint)
	}
	if d.Joint1.BodyB() == d.Joint2.BodyB() {
		return fmt.Errorf("gear joints share body B: %w", ErrInvalidJoint)
	}
	if d.Ratio == 0 || !isValidFloat(d.Ratio) {
		return fmt.Errorf("gear ratio %v: %w", d.Ratio, ErrInvalidJoint)
	}
	return nil
}

// gearSide is the frame and coordinate of one coupled joint.
type gearSide struct {
	typ            JointType
	localAnchor    Vector // on the fixed body
	localAnchorOwn Vector // on the geared body
	localAxis      Vector
	referenceAngle float64
}

func newGearSide(j Joint) (gearSide, float64) {
	fixed := j.BodyA()
	own := j.BodyB()

	var side gearSide
	side.typ = j.Type()

	switch jt := j.(type) {
	case *RevoluteJoint:
		side.localAnchor = jt.localAnchorA
		side.localAnchorOwn = jt.localAnchorB
		side.referenceAngle = jt.referenceAngle
		return side, own.sweep.A - fixed.sweep.A - side.referenceAngle
	case *PrismaticJoint:
		side.localAnchor = jt.localAnchorA
		side.localAnchorOwn = jt.localAnchorB
		side.referenceAngle = jt.referenceAngle
		side.localAxis = jt.localXAxisA

		xfF, xfO := fixed.xf, own.xf
		pF := side.localAnchor
		pO := xfF.Q.ApplyT(xfO.Q.Apply(side.localAnchorOwn).Add(xfO.P.Sub(xfF.P)))
		return side, pO.Sub(pF).Dot(side.localAxis)
	}
	return side, 0
}

func (d *GearJointDef) create() Joint {
	sideA, coordinateA := newGearSide(d.Joint1)
	sideB, coordinateB := newGearSide(d.Joint2)

	bodyA, bodyB := d.bodies()
	base := d.newBase(GearJointType)
	base.bodyA = bodyA
	base.bodyB = bodyB

	return &GearJoint{
		jointBase: base,
		joint1:    d.Joint1,
		joint2:    d.Joint2,
		bodyC:     d.Joint1.BodyA(),
		bodyD:     d.Joint2.BodyA(),
		sideA:     sideA,
		sideB:     sideB,
		ratio:     d.Ratio,
		constant:  coordinateA + d.Ratio*coordinateB,
	}
}

type GearJoint struct {
	jointBase

	joint1, joint2 Joint

	// bodyC and bodyD are the fixed bodies of joint1 and joint2.
	bodyC, bodyD *Body
	sideA, sideB gearSide

	ratio    float64
	constant float64
	impulse  float64

	indexC, indexD int
	lcC, lcD       Vector
	mC, mD         float64
	iC, iD         float64

	jvAC, jvBD Vector
	jwA, jwB   float64
	jwC, jwD   float64
	mass       float64
}

func (j *GearJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.sideA.localAnchorOwn)
}

func (j *GearJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.sideB.localAnchorOwn)
}

func (j *GearJoint) ReactionForce(invDt float64) Vector {
	return j.jvAC.Mult(invDt * j.impulse)
}

func (j *GearJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse * j.jwA
}

func (j *GearJoint) Joint1() Joint {
	return j.joint1
}

func (j *GearJoint) Joint2() Joint {
	return j.joint2
}

func (j *GearJoint) Ratio() float64 {
	return j.ratio
}

func (j *GearJoint) SetRatio(ratio float64) error {
	if ratio == 0 || !isValidFloat(ratio) {
		return fmt.Errorf("gear ratio %v: %w", ratio, ErrInvalidJoint)
	}
	j.ratio = ratio
	return nil
}

// jacobian fills one side of the constraint Jacobian and returns its
// contribution to the effective mass. own and fixed are the geared and the
// fixed body poses.
func (s *gearSide) jacobian(qOwn, qFixed Rot, lcOwn, lcFixed Vector, mOwn, mFixed, iOwn, iFixed, ratio float64) (jv Vector, jwOwn, jwFixed, mass float64) {
	if s.typ == RevoluteJointType {
		return Vector{}, ratio, ratio, ratio * ratio * (iOwn + iFixed)
	}
	u := qFixed.Apply(s.localAxis)
	rF := qFixed.Apply(s.localAnchor.Sub(lcFixed))
	rO := qOwn.Apply(s.localAnchorOwn.Sub(lcOwn))
	jv = u.Mult(ratio)
	jwFixed = ratio * rF.Cross(u)
	jwOwn = ratio * rO.Cross(u)
	mass = ratio*ratio*(mFixed+mOwn) + iFixed*jwFixed*jwFixed + iOwn*jwOwn*jwOwn
	return jv, jwOwn, jwFixed, mass
}

// coordinate is the joint coordinate of one side from solver positions.
func (s *gearSide) coordinate(cOwn, cFixed Vector, aOwn, aFixed float64, lcOwn, lcFixed Vector) float64 {
	if s.typ == RevoluteJointType {
		return aOwn - aFixed - s.referenceAngle
	}
	qFixed, qOwn := NewRot(aFixed), NewRot(aOwn)
	rO := qOwn.Apply(s.localAnchorOwn.Sub(lcOwn))
	pF := s.localAnchor.Sub(lcFixed)
	pO := qFixed.ApplyT(rO.Add(cOwn.Sub(cFixed)))
	return pO.Sub(pF).Dot(s.localAxis)
}

func (j *GearJoint) initVelocityConstraints(data *solverData) {
	j.prepare()
	j.indexC = j.bodyC.islandIndex
	j.indexD = j.bodyD.islandIndex
	j.lcC = j.bodyC.sweep.LocalCenter
	j.lcD = j.bodyD.sweep.LocalCenter
	j.mC = j.bodyC.invMass
	j.mD = j.bodyD.invMass
	j.iC = j.bodyC.invI
	j.iD = j.bodyD.invI

	qA := NewRot(data.positions[j.indexA].a)
	qB := NewRot(data.positions[j.indexB].a)
	qC := NewRot(data.positions[j.indexC].a)
	qD := NewRot(data.positions[j.indexD].a)

	var massA, massB float64
	j.jvAC, j.jwA, j.jwC, massA = j.sideA.jacobian(qA, qC, j.localCenterA, j.lcC, j.invMassA, j.mC, j.invIA, j.iC, 1.0)
	j.jvBD, j.jwB, j.jwD, massB = j.sideB.jacobian(qB, qD, j.localCenterB, j.lcD, j.invMassB, j.mD, j.invIB, j.iD, j.ratio)

	j.mass = massA + massB
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	}

	if data.step.warmStarting {
		j.applyImpulse(data, j.impulse)
	} else {
		j.impulse = 0
	}
}

func (j *GearJoint) applyImpulse(data *solverData, impulse float64) {
	vel := data.velocities

	vel[j.indexA].v = vel[j.indexA].v.Add(j.jvAC.Mult(j.invMassA * impulse))
	vel[j.indexA].w += j.invIA * impulse * j.jwA
	vel[j.indexB].v = vel[j.indexB].v.Add(j.jvBD.Mult(j.invMassB * impulse))
	vel[j.indexB].w += j.invIB * impulse * j.jwB
	vel[j.indexC].v = vel[j.indexC].v.Sub(j.jvAC.Mult(j.mC * impulse))
	vel[j.indexC].w -= j.iC * impulse * j.jwC
	vel[j.indexD].v = vel[j.indexD].v.Sub(j.jvBD.Mult(j.mD * impulse))
	vel[j.indexD].w -= j.iD * impulse * j.jwD
}

func (j *GearJoint) solveVelocityConstraints(data *solverData) {
	vel := data.velocities
	vA, wA := vel[j.indexA].v, vel[j.indexA].w
	vB, wB := vel[j.indexB].v, vel[j.indexB].w
	vC, wC := vel[j.indexC].v, vel[j.indexC].w
	vD, wD := vel[j.indexD].v, vel[j.indexD].w

	Cdot := j.jvAC.Dot(vA.Sub(vC)) + j.jvBD.Dot(vB.Sub(vD))
	Cdot += (j.jwA*wA - j.jwC*wC) + (j.jwB*wB - j.jwD*wD)

	impulse := -j.mass * Cdot
	j.impulse += impulse

	j.applyImpulse(data, impulse)
}

func (j *GearJoint) solvePositionConstraints(data *solverData) bool {
	pos := data.positions
	cA, aA := pos[j.indexA].c, pos[j.indexA].a
	cB, aB := pos[j.indexB].c, pos[j.indexB].a
	cC, aC := pos[j.indexC].c, pos[j.indexC].a
	cD, aD := pos[j.indexD].c, pos[j.indexD].a

	qA, qB, qC, qD := NewRot(aA), NewRot(aB), NewRot(aC), NewRot(aD)

	jvAC, jwA, jwC, massA := j.sideA.jacobian(qA, qC, j.localCenterA, j.lcC, j.invMassA, j.mC, j.invIA, j.iC, 1.0)
	jvBD, jwB, jwD, massB := j.sideB.jacobian(qB, qD, j.localCenterB, j.lcD, j.invMassB, j.mD, j.invIB, j.iD, j.ratio)
	mass := massA + massB

	coordinateA := j.sideA.coordinate(cA, cC, aA, aC, j.localCenterA, j.lcC)
	coordinateB := j.sideB.coordinate(cB, cD, aB, aD, j.localCenterB, j.lcD)

	C := coordinateA + j.ratio*coordinateB - j.constant

	impulse := 0.0
	if mass > 0 {
		impulse = -C / mass
	}

	pos[j.indexA] = position{cA.Add(jvAC.Mult(j.invMassA * impulse)), aA + j.invIA*impulse*jwA}
	pos[j.indexB] = position{cB.Add(jvBD.Mult(j.invMassB * impulse)), aB + j.invIB*impulse*jwB}
	pos[j.indexC] = position{cC.Sub(jvAC.Mult(j.mC * impulse)), aC - j.iC*impulse*jwC}
	pos[j.indexD] = position{cD.Sub(jvBD.Mult(j.mD * impulse)), aD - j.iD*impulse*jwD}

	return math.Abs(C) < data.settings.LinearSlop
}
