package physics

import (
	"fmt"
	"math"
)

// DistanceJointDef keeps two anchor points a fixed distance apart. With a
// positive frequency the link behaves like a damped spring.
type DistanceJointDef struct {
	JointDefBase
	LocalAnchorA Vector
	LocalAnchorB Vector
	Length       float64
	FrequencyHz  float64
	DampingRatio float64
}

// NewDistanceJointDef uses the current distance between the world anchors
// as the rest length.
func NewDistanceJointDef(a, b *Body, anchorA, anchorB Vector) *DistanceJointDef {
	return &DistanceJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA: a.LocalPoint(anchorA),
		LocalAnchorB: b.LocalPoint(anchorB),
		Length:       anchorB.Distance(anchorA),
	}
}

func (d *DistanceJointDef) Type() JointType {
	return DistanceJointType
}

func (d *DistanceJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.Length < 0 || !isValidFloat(d.Length) {
		return fmt.Errorf("distance length %v: %w", d.Length, ErrInvalidJoint)
	}
	if d.FrequencyHz < 0 || d.DampingRatio < 0 {
		return fmt.Errorf("negative spring parameters: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *DistanceJointDef) create() Joint {
	return &DistanceJoint{
		jointBase:    d.newBase(DistanceJointType),
		localAnchorA: d.LocalAnchorA,
		localAnchorB: d.LocalAnchorB,
		length:       d.Length,
		frequencyHz:  d.FrequencyHz,
		dampingRatio: d.DampingRatio,
	}
}

type DistanceJoint struct {
	jointBase

	localAnchorA, localAnchorB Vector
	length                     float64
	frequencyHz                float64
	dampingRatio               float64

	impulse float64
	gamma   float64
	bias    float64

	u      Vector
	rA, rB Vector
	mass   float64
}

func (j *DistanceJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *DistanceJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *DistanceJoint) LocalAnchorA() Vector {
	return j.localAnchorA
}

func (j *DistanceJoint) LocalAnchorB() Vector {
	return j.localAnchorB
}

func (j *DistanceJoint) ReactionForce(invDt float64) Vector {
	return j.u.Mult(invDt * j.impulse)
}

func (j *DistanceJoint) ReactionTorque(invDt float64) float64 {
	return 0
}

func (j *DistanceJoint) Length() float64 {
	return j.length
}

func (j *DistanceJoint) SetLength(length float64) {
	j.wakeBodies()
	j.length = math.Max(length, 0)
}

func (j *DistanceJoint) Frequency() float64 {
	return j.frequencyHz
}

func (j *DistanceJoint) SetFrequency(hz float64) {
	j.wakeBodies()
	j.frequencyHz = hz
}

func (j *DistanceJoint) DampingRatio() float64 {
	return j.dampingRatio
}

func (j *DistanceJoint) SetDampingRatio(ratio float64) {
	j.wakeBodies()
	j.dampingRatio = ratio
}

// CurrentLength is the present distance between the anchors.
func (j *DistanceJoint) CurrentLength() float64 {
	return j.AnchorB().Distance(j.AnchorA())
}

func (j *DistanceJoint) initVelocityConstraints(data *solverData) {
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

	// Handle singularity.
	length := j.u.Length()
	if length > data.settings.LinearSlop {
		j.u = j.u.Mult(1.0 / length)
	} else {
		j.u = Vector{}
	}

	crAu := j.rA.Cross(j.u)
	crBu := j.rB.Cross(j.u)
	invMass := j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu

	if invMass != 0 {
		j.mass = 1.0 / invMass
	} else {
		j.mass = 0
	}

	if j.frequencyHz > 0 {
		C := length - j.length
		var biasCoef float64
		j.gamma, biasCoef = softConstraint(j.mass, j.frequencyHz, j.dampingRatio, data.step.dt)
		j.bias = C * biasCoef

		invMass += j.gamma
		if invMass != 0 {
			j.mass = 1.0 / invMass
		} else {
			j.mass = 0
		}
	} else {
		j.gamma = 0
		j.bias = 0
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

func (j *DistanceJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))
	Cdot := j.u.Dot(vpB.Sub(vpA))

	impulse := -j.mass * (Cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	P := j.u.Mult(impulse)
	vA = vA.Sub(P.Mult(j.invMassA))
	wA -= j.invIA * j.rA.Cross(P)
	vB = vB.Add(P.Mult(j.invMassB))
	wB += j.invIB * j.rB.Cross(P)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *DistanceJoint) solvePositionConstraints(data *solverData) bool {
	// Springs are soft; there is no position error to fix.
	if j.frequencyHz > 0 {
		return true
	}
	s := data.settings

	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a

	qA, qB := NewRot(aA), NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	u := cB.Add(rB).Sub(cA).Sub(rA)

	u, length := u.Normalized()
	C := Clamp(length-j.length, -s.MaxLinearCorrection, s.MaxLinearCorrection)

	impulse := -j.mass * C
	P := u.Mult(impulse)

	cA = cA.Sub(P.Mult(j.invMassA))
	aA -= j.invIA * rA.Cross(P)
	cB = cB.Add(P.Mult(j.invMassB))
	aB += j.invIB * rB.Cross(P)

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return math.Abs(C) < s.LinearSlop
}
