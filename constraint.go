package physics

import (
	"fmt"
	"math"
)

type JointType int

const (
	RevoluteJointType JointType = iota
	PrismaticJointType
	DistanceJointType
	PulleyJointType
	MouseJointType
	GearJointType
	WheelJointType
	WeldJointType
	FrictionJointType
	RopeJointType
	MotorJointType
)

var jointTypeNames = [...]string{
	RevoluteJointType:  "revolute",
	PrismaticJointType: "prismatic",
	DistanceJointType:  "distance",
	PulleyJointType:    "pulley",
	MouseJointType:     "mouse",
	GearJointType:      "gear",
	WheelJointType:     "wheel",
	WeldJointType:      "weld",
	FrictionJointType:  "friction",
	RopeJointType:      "rope",
	MotorJointType:     "motor",
}

func (t JointType) String() string {
	if t < 0 || int(t) >= len(jointTypeNames) {
		return fmt.Sprintf("JointType(%d)", int(t))
	}
	return jointTypeNames[t]
}

// LimitState tracks which side of a joint limit is active.
type LimitState int

const (
	InactiveLimit LimitState = iota
	AtLowerLimit
	AtUpperLimit
	EqualLimits
)

// Joint constrains the relative motion of two bodies. The set of joint types
// is closed; every implementation embeds jointBase.
type Joint interface {
	Type() JointType
	BodyA() *Body
	BodyB() *Body
	// AnchorA and AnchorB are in world coordinates.
	AnchorA() Vector
	AnchorB() Vector
	// ReactionForce is the force on body B at the anchor.
	ReactionForce(invDt float64) Vector
	ReactionTorque(invDt float64) float64
	CollideConnected() bool

	base() *jointBase
	initVelocityConstraints(data *solverData)
	solveVelocityConstraints(data *solverData)
	// solvePositionConstraints reports whether the position error is within
	// tolerance.
	solvePositionConstraints(data *solverData) bool
}

type jointBase struct {
	typ              JointType
	bodyA, bodyB     *Body
	collideConnected bool
	index            int
	islandFlag       bool

	UserData interface{}

	// Solver temporaries, loaded by prepare.
	indexA, indexB             int
	localCenterA, localCenterB Vector
	invMassA, invMassB         float64
	invIA, invIB               float64
}

func (j *jointBase) base() *jointBase {
	return j
}

func (j *jointBase) Type() JointType {
	return j.typ
}

func (j *jointBase) BodyA() *Body {
	return j.bodyA
}

func (j *jointBase) BodyB() *Body {
	return j.bodyB
}

func (j *jointBase) CollideConnected() bool {
	return j.collideConnected
}

func (j *jointBase) String() string {
	return fmt.Sprintf("%v joint %d", j.typ, j.index)
}

// prepare copies the body data the solver needs into the joint.
func (j *jointBase) prepare() {
	j.indexA = j.bodyA.islandIndex
	j.indexB = j.bodyB.islandIndex
	j.localCenterA = j.bodyA.sweep.LocalCenter
	j.localCenterB = j.bodyB.sweep.LocalCenter
	j.invMassA = j.bodyA.invMass
	j.invMassB = j.bodyB.invMass
	j.invIA = j.bodyA.invI
	j.invIB = j.bodyB.invI
}

// JointDef describes a joint to create. Every definition embeds JointDefBase.
type JointDef interface {
	Type() JointType
	bodies() (*Body, *Body)
	validate() error
	create() Joint
}

type JointDefBase struct {
	BodyA, BodyB     *Body
	CollideConnected bool
	UserData         interface{}
}

func (d *JointDefBase) bodies() (*Body, *Body) {
	return d.BodyA, d.BodyB
}

func (d *JointDefBase) validateBodies() error {
	if d.BodyA == nil || d.BodyB == nil {
		return fmt.Errorf("missing body: %w", ErrInvalidJoint)
	}
	if d.BodyA == d.BodyB {
		return fmt.Errorf("joint connects a body to itself: %w", ErrInvalidJoint)
	}
	return nil
}

func (d *JointDefBase) newBase(typ JointType) jointBase {
	return jointBase{
		typ:              typ,
		bodyA:            d.BodyA,
		bodyB:            d.BodyB,
		collideConnected: d.CollideConnected,
		UserData:         d.UserData,
	}
}

// Spring coefficients for a soft constraint with the given frequency (Hz)
// and damping ratio. A zero frequency means a rigid constraint.
func softConstraint(mass, frequencyHz, dampingRatio, h float64) (gamma, biasCoef float64) {
	omega := 2.0 * math.Pi * frequencyHz
	d := 2.0 * mass * dampingRatio * omega
	k := mass * omega * omega

	gamma = h * (d + h*k)
	if gamma != 0 {
		gamma = 1.0 / gamma
	}
	biasCoef = h * k * gamma
	return gamma, biasCoef
}

// wakeBodies is called by setters that change the joint's behavior.
func (j *jointBase) wakeBodies() {
	j.bodyA.SetAwake(true)
	j.bodyB.SetAwake(true)
}
