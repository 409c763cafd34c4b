package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PrismaticJointDef lets body B slide along an axis fixed in body A with no
// relative rotation.
type PrismaticJointDef struct {
	JointDefBase
	LocalAnchorA Vector
	LocalAnchorB Vector
	// LocalAxisA is normalized on creation.
	LocalAxisA     Vector
	ReferenceAngle float64

	EnableLimit      bool
	LowerTranslation float64
	UpperTranslation float64

	EnableMotor   bool
	MaxMotorForce float64
	MotorSpeed    float64
}

// NewPrismaticJointDef builds a definition from a world anchor and a world
// axis using the current body poses.
func NewPrismaticJointDef(a, b *Body, anchor, axis Vector) *PrismaticJointDef {
	return &PrismaticJointDef{
		JointDefBase:   JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA:   a.LocalPoint(anchor),
		LocalAnchorB:   b.LocalPoint(anchor),
		LocalAxisA:     a.LocalVector(axis),
		ReferenceAngle: b.Angle() - a.Angle(),
	}
}

func (d *PrismaticJointDef) Type() JointType {
	return PrismaticJointType
}

func (d *PrismaticJointDef) validate() error {
	if err := d.validateBodies(); err != nil {
		return err
	}
	if d.LocalAxisA.LengthSq() < epsilon*epsilon {
		return fmt.Errorf("prismatic axis is zero: %w", ErrInvalidJoint)
	}
	if d.LowerTranslation > d.UpperTranslation {
		return fmt.Errorf("prismatic lower translation %v above upper %v: %w", d.LowerTranslation, d.UpperTranslation, ErrInvalidJoint)
	}
	if d.MaxMotorForce < 0 {
		return fmt.Errorf("negative motor force: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *PrismaticJointDef) create() Joint {
	axis := d.LocalAxisA.Normalize()
	return &PrismaticJoint{
		jointBase:        d.newBase(PrismaticJointType),
		localAnchorA:     d.LocalAnchorA,
		localAnchorB:     d.LocalAnchorB,
		localXAxisA:      axis,
		localYAxisA:      CrossSV(1.0, axis),
		referenceAngle:   d.ReferenceAngle,
		enableLimit:      d.EnableLimit,
		lowerTranslation: d.LowerTranslation,
		upperTranslation: d.UpperTranslation,
		enableMotor:      d.EnableMotor,
		maxMotorForce:    d.MaxMotorForce,
		motorSpeed:       d.MotorSpeed,
	}
}

type PrismaticJoint struct {
	jointBase

	localAnchorA, localAnchorB Vector
	localXAxisA, localYAxisA   Vector
	referenceAngle             float64

	// X is the perpendicular impulse, Y the angular one.
	impulse      Vector
	motorImpulse float64
	lowerImpulse float64
	upperImpulse float64

	lowerTranslation float64
	upperTranslation float64
	maxMotorForce    float64
	motorSpeed       float64
	enableLimit      bool
	enableMotor      bool

	axis, perp  Vector
	s1, s2      float64
	a1, a2      float64
	k           Mat22
	translation float64
	axialMass   float64
}

func (j *PrismaticJoint) AnchorA() Vector {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *PrismaticJoint) AnchorB() Vector {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *PrismaticJoint) LocalAnchorA() Vector {
	return j.localAnchorA
}

func (j *PrismaticJoint) LocalAnchorB() Vector {
	return j.localAnchorB
}

func (j *PrismaticJoint) LocalAxisA() Vector {
	return j.localXAxisA
}

func (j *PrismaticJoint) ReferenceAngle() float64 {
	return j.referenceAngle
}

func (j *PrismaticJoint) ReactionForce(invDt float64) Vector {
	axial := j.motorImpulse + j.lowerImpulse - j.upperImpulse
	return j.perp.Mult(j.impulse.X).Add(j.axis.Mult(axial)).Mult(invDt)
}

func (j *PrismaticJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse.Y
}

// JointTranslation is the displacement of the anchors along the axis.
func (j *PrismaticJoint) JointTranslation() float64 {
	pA := j.bodyA.WorldPoint(j.localAnchorA)
	pB := j.bodyB.WorldPoint(j.localAnchorB)
	axis := j.bodyA.WorldVector(j.localXAxisA)
	return pB.Sub(pA).Dot(axis)
}

func (j *PrismaticJoint) JointSpeed() float64 {
	bA, bB := j.bodyA, j.bodyB

	rA := bA.xf.Q.Apply(j.localAnchorA.Sub(bA.sweep.LocalCenter))
	rB := bB.xf.Q.Apply(j.localAnchorB.Sub(bB.sweep.LocalCenter))
	p1 := bA.sweep.C.Add(rA)
	p2 := bB.sweep.C.Add(rB)
	d := p2.Sub(p1)
	axis := bA.xf.Q.Apply(j.localXAxisA)

	vA, vB := bA.linearVelocity, bB.linearVelocity
	wA, wB := bA.angularVelocity, bB.angularVelocity

	rel := vB.Add(CrossSV(wB, rB)).Sub(vA).Sub(CrossSV(wA, rA))
	return d.Dot(CrossSV(wA, axis)) + axis.Dot(rel)
}

func (j *PrismaticJoint) IsLimitEnabled() bool {
	return j.enableLimit
}

func (j *PrismaticJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wakeBodies()
		j.enableLimit = flag
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
}

func (j *PrismaticJoint) Limits() (lower, upper float64) {
	return j.lowerTranslation, j.upperTranslation
}

func (j *PrismaticJoint) SetLimits(lower, upper float64) error {
	if lower > upper {
		return fmt.Errorf("lower %v above upper %v: %w", lower, upper, ErrInvalidJoint)
	}
	if lower != j.lowerTranslation || upper != j.upperTranslation {
		j.wakeBodies()
		j.lowerTranslation = lower
		j.upperTranslation = upper
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
	return nil
}

func (j *PrismaticJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *PrismaticJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wakeBodies()
		j.enableMotor = flag
	}
}

func (j *PrismaticJoint) MotorSpeed() float64 {
	return j.motorSpeed
}

func (j *PrismaticJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wakeBodies()
		j.motorSpeed = speed
	}
}

func (j *PrismaticJoint) MaxMotorForce() float64 {
	return j.maxMotorForce
}

func (j *PrismaticJoint) SetMaxMotorForce(force float64) {
	if force != j.maxMotorForce {
		j.wakeBodies()
		j.maxMotorForce = force
	}
}

func (j *PrismaticJoint) MotorForce(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *PrismaticJoint) initVelocityConstraints(data *solverData) {
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

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	j.axis = qA.Apply(j.localXAxisA)
	j.a1 = d.Add(rA).Cross(j.axis)
	j.a2 = rB.Cross(j.axis)

	j.axialMass = mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2
	if j.axialMass > 0 {
		j.axialMass = 1.0 / j.axialMass
	}

	j.perp = qA.Apply(j.localYAxisA)
	j.s1 = d.Add(rA).Cross(j.perp)
	j.s2 = rB.Cross(j.perp)

	k11 := mA + mB + iA*j.s1*j.s1 + iB*j.s2*j.s2
	k12 := iA*j.s1 + iB*j.s2
	k22 := iA + iB
	if k22 == 0 {
		// For bodies with fixed rotation.
		k22 = 1
	}
	j.k = Mat22{Vector{k11, k12}, Vector{k12, k22}}

	if j.enableLimit {
		j.translation = j.axis.Dot(d)
	} else {
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
	if !j.enableMotor {
		j.motorImpulse = 0
	}

	if data.step.warmStarting {
		j.impulse = j.impulse.Mult(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio
		j.lowerImpulse *= data.step.dtRatio
		j.upperImpulse *= data.step.dtRatio

		axialImpulse := j.motorImpulse + j.lowerImpulse - j.upperImpulse
		P := j.perp.Mult(j.impulse.X).Add(j.axis.Mult(axialImpulse))
		LA := j.impulse.X*j.s1 + j.impulse.Y + axialImpulse*j.a1
		LB := j.impulse.X*j.s2 + j.impulse.Y + axialImpulse*j.a2

		vA = vA.Sub(P.Mult(mA))
		wA -= iA * LA
		vB = vB.Add(P.Mult(mB))
		wB += iB * LB
	} else {
		j.impulse = Vector{}
		j.motorImpulse = 0
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

// applyAxial pushes body B along the axis by impulse and A the other way.
func (j *PrismaticJoint) applyAxial(impulse float64, vA *Vector, wA *float64, vB *Vector, wB *float64) {
	P := j.axis.Mult(impulse)
	*vA = vA.Sub(P.Mult(j.invMassA))
	*wA -= j.invIA * impulse * j.a1
	*vB = vB.Add(P.Mult(j.invMassB))
	*wB += j.invIB * impulse * j.a2
}

func (j *PrismaticJoint) solveVelocityConstraints(data *solverData) {
	vA := data.velocities[j.indexA].v
	wA := data.velocities[j.indexA].w
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	if j.enableMotor {
		Cdot := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		impulse := j.axialMass * (j.motorSpeed - Cdot)
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorForce
		j.motorImpulse = Clamp(oldImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		j.applyAxial(impulse, &vA, &wA, &vB, &wB)
	}

	if j.enableLimit {
		// Lower limit
		{
			C := j.translation - j.lowerTranslation
			Cdot := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
			impulse := -j.axialMass * (Cdot + math.Max(C, 0)*data.step.invDt)
			oldImpulse := j.lowerImpulse
			j.lowerImpulse = math.Max(oldImpulse+impulse, 0)
			impulse = j.lowerImpulse - oldImpulse

			j.applyAxial(impulse, &vA, &wA, &vB, &wB)
		}

		// Upper limit, solved with the sign flipped.
		{
			C := j.upperTranslation - j.translation
			Cdot := j.axis.Dot(vA.Sub(vB)) + j.a1*wA - j.a2*wB
			impulse := -j.axialMass * (Cdot + math.Max(C, 0)*data.step.invDt)
			oldImpulse := j.upperImpulse
			j.upperImpulse = math.Max(oldImpulse+impulse, 0)
			impulse = j.upperImpulse - oldImpulse

			j.applyAxial(-impulse, &vA, &wA, &vB, &wB)
		}
	}

	// Perpendicular and angular constraints.
	{
		Cdot := Vector{
			j.perp.Dot(vB.Sub(vA)) + j.s2*wB - j.s1*wA,
			wB - wA,
		}

		df := j.k.Solve(Cdot.Neg())
		j.impulse = j.impulse.Add(df)

		P := j.perp.Mult(df.X)
		LA := df.X*j.s1 + df.Y
		LB := df.X*j.s2 + df.Y

		vA = vA.Sub(P.Mult(mA))
		wA -= iA * LA
		vB = vB.Add(P.Mult(mB))
		wB += iB * LB
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *PrismaticJoint) solvePositionConstraints(data *solverData) bool {
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
	d := cB.Add(rB).Sub(cA).Sub(rA)

	axis := qA.Apply(j.localXAxisA)
	a1 := d.Add(rA).Cross(axis)
	a2 := rB.Cross(axis)
	perp := qA.Apply(j.localYAxisA)
	s1 := d.Add(rA).Cross(perp)
	s2 := rB.Cross(perp)

	C1 := Vector{perp.Dot(d), aB - aA - j.referenceAngle}

	linearError := math.Abs(C1.X)
	angularError := math.Abs(C1.Y)

	active := false
	C2 := 0.0
	if j.enableLimit {
		translation := axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*s.LinearSlop:
			C2 = Clamp(translation-j.lowerTranslation, -s.MaxLinearCorrection, s.MaxLinearCorrection)
			linearError = math.Max(linearError, math.Abs(translation-j.lowerTranslation))
			active = true
		case translation <= j.lowerTranslation:
			C2 = Clamp(translation-j.lowerTranslation+s.LinearSlop, -s.MaxLinearCorrection, 0)
			linearError = math.Max(linearError, j.lowerTranslation-translation)
			active = true
		case translation >= j.upperTranslation:
			C2 = Clamp(translation-j.upperTranslation-s.LinearSlop, 0, s.MaxLinearCorrection)
			linearError = math.Max(linearError, translation-j.upperTranslation)
			active = true
		}
	}

	var impulse mgl64.Vec3
	k11 := mA + mB + iA*s1*s1 + iB*s2*s2
	k12 := iA*s1 + iB*s2
	k22 := iA + iB
	if k22 == 0 {
		k22 = 1
	}
	if active {
		k13 := iA*s1*a1 + iB*s2*a2
		k23 := iA*a1 + iB*a2
		k33 := mA + mB + iA*a1*a1 + iB*a2*a2

		K := NewMat33(
			mgl64.Vec3{k11, k12, k13},
			mgl64.Vec3{k12, k22, k23},
			mgl64.Vec3{k13, k23, k33},
		)
		impulse = K.Solve33(mgl64.Vec3{-C1.X, -C1.Y, -C2})
	} else {
		K := Mat22{Vector{k11, k12}, Vector{k12, k22}}
		impulse1 := K.Solve(C1.Neg())
		impulse = mgl64.Vec3{impulse1.X, impulse1.Y, 0}
	}

	P := perp.Mult(impulse[0]).Add(axis.Mult(impulse[2]))
	LA := impulse[0]*s1 + impulse[1] + impulse[2]*a1
	LB := impulse[0]*s2 + impulse[1] + impulse[2]*a2

	cA = cA.Sub(P.Mult(mA))
	aA -= iA * LA
	cB = cB.Add(P.Mult(mB))
	aB += iB * LB

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return linearError <= s.LinearSlop && angularError <= s.AngularSlop
}
