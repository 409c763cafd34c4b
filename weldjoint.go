package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// WeldJointDef glues two bodies together. A positive frequency softens the
// angular part.
type WeldJointDef struct {
	JointDefBase
	LocalAnchorA   Vector
	LocalAnchorB   Vector
	ReferenceAngle float64
	FrequencyHz    float64
	DampingRatio   float64
}

func NewWeldJointDef(a, b *Body, anchor Vector) *WeldJointDef {
	return &WeldJointDef{
		JointDefBase:   JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA:   a.LocalPoint(anchor),
		LocalAnchorB:   b.LocalPoint(anchor),
		ReferenceAngle: b.Angle() - a.Angle(),
	}
}

func (d *WeldJointDef) Type() JointType {
	return WeldJointType
}

func (d *WeldJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.FrequencyHz < 0 || d.DampingRatio < 0 {
		return fmt.Errorf("negative weld spring parameters: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *WeldJointDef) create() Joint {
	return &WeldJoint{
		jointBase:      d.newBase(WeldJointType),
		localAnchorA:   d.LocalAnchorA,
		localAnchorB:   d.LocalAnchorB,
		referenceAngle: d.ReferenceAngle,
		frequencyHz:    d.FrequencyHz,
		dampingRatio:   d.DampingRatio,
	}
}

type WeldJoint struct {
	jointBase

	localAnchorA, localAnchorB Vector
	referenceAngle             float64
	frequencyHz                float64
	dampingRatio               float64

	bias    float64
	gamma   float64
	impulse mgl64.Vec3

	rA, rB Vector
	mass   Mat33
}

func (j *WeldJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *WeldJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *WeldJoint) ReferenceAngle() float64 {
	return j.referenceAngle
}

func (j *WeldJoint) ReactionForce(invDt float64) Vector {
	return Vector{j.impulse[0], j.impulse[1]}.Mult(invDt)
}

func (j *WeldJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[2]
}

func (j *WeldJoint) Frequency() float64 {
	return j.frequencyHz
}

func (j *WeldJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *WeldJoint) DampingRatio() float64 {
	return j.dampingRatio
}

func (j *WeldJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}

// weldMass is the effective mass of the point and angle constraints.
func weldMass(mA, mB, iA, iB float64, rA, rB Vector) Mat33 {
	ex := mgl64.Vec3{
		mA + mB + rA.Y*rA.Y*iA + rB.Y*rB.Y*iB,
		-rA.Y*rA.X*iA - rB.Y*rB.X*iB,
		-rA.Y*iA - rB.Y*iB,
	}
	ey := mgl64.Vec3{
		ex[1],
		mA + mB + rA.X*rA.X*iA + rB.X*rB.X*iB,
		rA.X*iA + rB.X*iB,
	}
	ez := mgl64.Vec3{ex[2], ey[2], iA + iB}
	return NewMat33(ex, ey, ez)
}

func (j *WeldJoint) initVelocityConstraints(data *solverData) {
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

	K := weldMass(mA, mB, iA, iB, j.rA, j.rB)

	switch {
	case j.frequencyHz > 0:
		j.mass = K.Inverse22()

		invM := iA + iB
		m := 0.0
		if invM > 0 {
			m = 1.0 / invM
		}

		C := aB - aA - j.referenceAngle
		var biasCoef float64
		j.gamma, biasCoef = softConstraint(m, j.frequencyHz, j.dampingRatio, data.step.dt)
		j.bias = C * biasCoef

		invM += j.gamma
		if invM != 0 {
			j.mass.Set(2, 2, 1.0/invM)
		} else {
			j.mass.Set(2, 2, 0)
		}
	case K.At(2, 2) == 0:
		j.mass = K.Inverse22()
		j.gamma = 0
		j.bias = 0
	default:
		j.mass = K.SymInverse33()
		j.gamma = 0
		j.bias = 0
	}

	if data.step.warmStarting {
		j.impulse = j.impulse.Mul(data.step.dtRatio)

		P := Vector{j.impulse[0], j.impulse[1]}

		vA = vA.Sub(P.Mult(mA))
		wA -= iA * (j.rA.Cross(P) + j.impulse[2])
		vB = vB.Add(P.Mult(mB))
		wB += iB * (j.rB.Cross(P) + j.impulse[2])
	} else {
		j.impulse = mgl64.Vec3{}
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WeldJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	if j.frequencyHz > 0 {
		Cdot2 := wB - wA

		impulse2 := -j.mass.At(2, 2) * (Cdot2 + j.bias + j.gamma*j.impulse[2])
		j.impulse[2] += impulse2

		wA -= iA * impulse2
		wB += iB * impulse2

		Cdot1 := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))

		impulse1 := j.mass.Mul22(Cdot1).Neg()
		j.impulse[0] += impulse1.X
		j.impulse[1] += impulse1.Y

		P := impulse1

		vA = vA.Sub(P.Mult(mA))
		wA -= iA * j.rA.Cross(P)
		vB = vB.Add(P.Mult(mB))
		wB += iB * j.rB.Cross(P)
	} else {
		Cdot1 := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))
		Cdot2 := wB - wA
		Cdot := mgl64.Vec3{Cdot1.X, Cdot1.Y, Cdot2}

		impulse := j.mass.Mul(Cdot).Mul(-1)
		j.impulse = j.impulse.Add(impulse)

		P := Vector{impulse[0], impulse[1]}

		vA = vA.Sub(P.Mult(mA))
		wA -= iA * (j.rA.Cross(P) + impulse[2])
		vB = vB.Add(P.Mult(mB))
		wB += iB * (j.rB.Cross(P) + impulse[2])
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WeldJoint) solvePositionConstraints(data *solverData) bool {
	s := data.settings

	cA := data.positions[j.indexA].c
	aA := data.positions[j.indexA].a
	cB := data.positions[j.indexB].c
	aB := data.positions[j.indexB].a

	qA, qB := NewRot(aA), NewRot(aB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	var positionError, angularError float64

	K := weldMass(mA, mB, iA, iB, rA, rB)

	if j.frequencyHz > 0 {
		C1 := cB.Add(rB).Sub(cA).Sub(rA)

		positionError = C1.Length()
		angularError = 0

		P := K.Solve22(C1).Neg()

		cA = cA.Sub(P.Mult(mA))
		aA -= iA * rA.Cross(P)
		cB = cB.Add(P.Mult(mB))
		aB += iB * rB.Cross(P)
	} else {
		C1 := cB.Add(rB).Sub(cA).Sub(rA)
		C2 := aB - aA - j.referenceAngle

		positionError = C1.Length()
		angularError = math.Abs(C2)

		var impulse mgl64.Vec3
		if K.At(2, 2) > 0 {
			impulse = K.Solve33(mgl64.Vec3{C1.X, C1.Y, C2}).Mul(-1)
		} else {
			impulse2 := K.Solve22(C1).Neg()
			impulse = mgl64.Vec3{impulse2.X, impulse2.Y, 0}
		}

		P := Vector{impulse[0], impulse[1]}

		cA = cA.Sub(P.Mult(mA))
		aA -= iA * (rA.Cross(P) + impulse[2])
		cB = cB.Add(P.Mult(mB))
		aB += iB * (rB.Cross(P) + impulse[2])
	}

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return positionError <= s.LinearSlop && angularError <= s.AngularSlop
}
