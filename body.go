package physics

import (
	"fmt"
	"math"
	"slices"
)

// BodyDef holds the initial state of a body.
type BodyDef struct {
	Type            BodyType
	Position        Vector
	Angle           float64
	LinearVelocity  Vector
	AngularVelocity float64
	LinearDamping   float64
	AngularDamping  float64
	AllowSleep      bool
	Awake           bool
	FixedRotation   bool
	// Bullet bodies are swept every step, however slowly they move.
	Bullet       bool
	Active       bool
	GravityScale float64
	UserData     interface{}
}

func NewBodyDef(typ BodyType, position Vector) BodyDef {
	return BodyDef{
		Type:         typ,
		Position:     position,
		AllowSleep:   true,
		Awake:        true,
		Active:       true,
		GravityScale: 1,
	}
}

func (def *BodyDef) validate() error {
	if !def.Position.IsValid() || !isValidFloat(def.Angle) {
		return fmt.Errorf("body pose: %w", ErrInvalidBody)
	}
	if !def.LinearVelocity.IsValid() || !isValidFloat(def.AngularVelocity) {
		return fmt.Errorf("body velocity: %w", ErrInvalidBody)
	}
	if def.LinearDamping < 0 || def.AngularDamping < 0 {
		return fmt.Errorf("negative damping: %w", ErrInvalidBody)
	}
	if def.Type < StaticBody || def.Type > DynamicBody {
		return fmt.Errorf("body type %d: %w", def.Type, ErrInvalidBody)
	}
	return nil
}

const (
	bodyIslandFlag uint16 = 1 << iota
	bodyAwakeFlag
	bodyAutoSleepFlag
	bodyBulletFlag
	bodyFixedRotationFlag
	bodyActiveFlag
)

type Body struct {
	id    int
	typ   BodyType
	flags uint16
	world *World

	islandIndex int

	// xf is the body origin transform; sweep tracks the center of mass.
	xf    Transform
	sweep Sweep

	linearVelocity  Vector
	angularVelocity float64

	force  Vector
	torque float64

	fixtures []*Fixture
	// Indices into the world's contact and joint arenas.
	contacts []int
	joints   []int

	mass, invMass float64
	// Rotational inertia about the center of mass.
	i, invI float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	sleepTime float64

	UserData interface{}
}

func newBody(def *BodyDef, w *World, id int) *Body {
	b := &Body{
		id:              id,
		typ:             def.Type,
		world:           w,
		islandIndex:     -1,
		linearVelocity:  def.LinearVelocity,
		angularVelocity: def.AngularVelocity,
		linearDamping:   def.LinearDamping,
		angularDamping:  def.AngularDamping,
		gravityScale:    def.GravityScale,
		UserData:        def.UserData,
	}
	if def.Bullet {
		b.flags |= bodyBulletFlag
	}
	if def.FixedRotation {
		b.flags |= bodyFixedRotationFlag
	}
	if def.AllowSleep {
		b.flags |= bodyAutoSleepFlag
	}
	if def.Awake && def.Type != StaticBody {
		b.flags |= bodyAwakeFlag
	}
	if def.Active {
		b.flags |= bodyActiveFlag
	}

	b.xf = NewTransformRigid(def.Position, def.Angle)
	b.sweep = Sweep{C0: b.xf.P, C: b.xf.P, A0: def.Angle, A: def.Angle}

	if b.typ == DynamicBody {
		b.mass = 1
		b.invMass = 1
	}
	if b.typ == StaticBody {
		b.linearVelocity = Vector{}
		b.angularVelocity = 0
	}
	return b
}

func (b *Body) String() string {
	return fmt.Sprint("Body ", b.id)
}

func (b *Body) World() *World {
	return b.world
}

func (b *Body) Type() BodyType {
	return b.typ
}

// SetType changes the body type. Contacts are rebuilt on the next step.
func (b *Body) SetType(typ BodyType) error {
	if b.world == nil {
		return ErrNotInWorld
	}
	if b.world.locked {
		return ErrWorldLocked
	}
	if b.typ == typ {
		return nil
	}
	b.typ = typ
	b.ResetMassData()

	if b.typ == StaticBody {
		b.linearVelocity = Vector{}
		b.angularVelocity = 0
		b.sweep.A0 = b.sweep.A
		b.sweep.C0 = b.sweep.C
		b.flags &^= bodyAwakeFlag
		b.synchronizeFixtures()
	} else {
		b.SetAwake(true)
	}

	b.force = Vector{}
	b.torque = 0

	b.world.destroyBodyContacts(b)
	for _, f := range b.fixtures {
		for _, proxy := range f.proxies {
			b.world.contactManager.broadPhase.TouchProxy(proxy.proxyID)
		}
	}
	return nil
}

func (b *Body) Fixtures() []*Fixture {
	return b.fixtures
}

// Joints returns the joints attached to the body.
func (b *Body) Joints() []Joint {
	joints := make([]Joint, 0, len(b.joints))
	for _, id := range b.joints {
		joints = append(joints, b.world.joints[id])
	}
	return joints
}

// Contacts returns the contacts involving the body, touching or not.
func (b *Body) Contacts() []*Contact {
	contacts := make([]*Contact, 0, len(b.contacts))
	for _, id := range b.contacts {
		contacts = append(contacts, b.world.contactManager.contacts[id])
	}
	return contacts
}

func (b *Body) CreateFixture(def FixtureDef) (*Fixture, error) {
	if b.world == nil {
		return nil, ErrNotInWorld
	}
	return b.world.CreateFixture(b, def)
}

func (b *Body) DestroyFixture(f *Fixture) error {
	if b.world == nil {
		return ErrNotInWorld
	}
	return b.world.DestroyFixture(f)
}

func (b *Body) Transform() Transform {
	return b.xf
}

func (b *Body) Position() Vector {
	return b.xf.P
}

func (b *Body) Angle() float64 {
	return b.sweep.A
}

func (b *Body) WorldCenter() Vector {
	return b.sweep.C
}

func (b *Body) LocalCenter() Vector {
	return b.sweep.LocalCenter
}

// SetTransform teleports the body. Contacts are updated on the next step.
func (b *Body) SetTransform(position Vector, angle float64) error {
	if b.world == nil {
		return ErrNotInWorld
	}
	if b.world.locked {
		return ErrWorldLocked
	}
	if !position.IsValid() || !isValidFloat(angle) {
		return fmt.Errorf("transform: %w", ErrInvalidBody)
	}

	b.xf = NewTransformRigid(position, angle)
	b.sweep.C = b.xf.Point(b.sweep.LocalCenter)
	b.sweep.A = angle
	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = angle

	bp := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		f.synchronize(bp, b.xf, b.xf)
	}
	b.world.newFixture = true
	return nil
}

func (b *Body) LinearVelocity() Vector {
	return b.linearVelocity
}

func (b *Body) SetLinearVelocity(v Vector) {
	if b.typ == StaticBody {
		return
	}
	if v.Dot(v) > 0 {
		b.SetAwake(true)
	}
	b.linearVelocity = v
}

func (b *Body) AngularVelocity() float64 {
	return b.angularVelocity
}

func (b *Body) SetAngularVelocity(w float64) {
	if b.typ == StaticBody {
		return
	}
	if w*w > 0 {
		b.SetAwake(true)
	}
	b.angularVelocity = w
}

// ApplyForce applies a force at a world point. Forces accumulate until
// cleared at the end of the step.
func (b *Body) ApplyForce(force, point Vector, wake bool) {
	if b.typ != DynamicBody {
		return
	}
	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}
	if b.IsAwake() {
		b.force = b.force.Add(force)
		b.torque += point.Sub(b.sweep.C).Cross(force)
	}
}

func (b *Body) ApplyForceToCenter(force Vector, wake bool) {
	if b.typ != DynamicBody {
		return
	}
	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}
	if b.IsAwake() {
		b.force = b.force.Add(force)
	}
}

func (b *Body) ApplyTorque(torque float64, wake bool) {
	if b.typ != DynamicBody {
		return
	}
	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}
	if b.IsAwake() {
		b.torque += torque
	}
}

// ApplyLinearImpulse changes the velocity immediately.
func (b *Body) ApplyLinearImpulse(impulse, point Vector, wake bool) {
	if b.typ != DynamicBody {
		return
	}
	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}
	if b.IsAwake() {
		b.linearVelocity = b.linearVelocity.Add(impulse.Mult(b.invMass))
		b.angularVelocity += b.invI * point.Sub(b.sweep.C).Cross(impulse)
	}
}

func (b *Body) ApplyAngularImpulse(impulse float64, wake bool) {
	if b.typ != DynamicBody {
		return
	}
	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}
	if b.IsAwake() {
		b.angularVelocity += b.invI * impulse
	}
}

func (b *Body) Force() Vector {
	return b.force
}

func (b *Body) Torque() float64 {
	return b.torque
}

func (b *Body) Mass() float64 {
	return b.mass
}

// Inertia returns the rotational inertia about the body origin.
func (b *Body) Inertia() float64 {
	return b.i + b.mass*b.sweep.LocalCenter.Dot(b.sweep.LocalCenter)
}

func (b *Body) MassData() MassData {
	return MassData{Mass: b.mass, Center: b.sweep.LocalCenter, I: b.Inertia()}
}

// SetMassData overrides the mass computed from the fixtures. Only dynamic
// bodies accept it.
func (b *Body) SetMassData(md MassData) error {
	if b.world != nil && b.world.locked {
		return ErrWorldLocked
	}
	if b.typ != DynamicBody {
		return nil
	}

	b.invMass = 0
	b.i = 0
	b.invI = 0

	b.mass = md.Mass
	if b.mass <= 0 {
		b.mass = 1
	}
	b.invMass = 1 / b.mass

	if md.I > 0 && !b.IsFixedRotation() {
		b.i = md.I - b.mass*md.Center.Dot(md.Center)
		if b.i <= 0 {
			return fmt.Errorf("inertia %v about the center of mass: %w", b.i, ErrInvalidBody)
		}
		b.invI = 1 / b.i
	}

	b.updateCenter(md.Center)
	return nil
}

// ResetMassData recomputes mass, center and inertia from the fixtures.
// Dynamic bodies without mass get a unit mass so they still move.
func (b *Body) ResetMassData() {
	b.mass = 0
	b.invMass = 0
	b.i = 0
	b.invI = 0
	b.sweep.LocalCenter = Vector{}

	if b.typ != DynamicBody {
		b.sweep.C0 = b.xf.P
		b.sweep.C = b.xf.P
		b.sweep.A0 = b.sweep.A
		return
	}

	var localCenter Vector
	for _, f := range b.fixtures {
		if f.density == 0 {
			continue
		}
		md := f.MassData()
		b.mass += md.Mass
		localCenter = localCenter.Add(md.Center.Mult(md.Mass))
		b.i += md.I
	}

	if b.mass > 0 {
		b.invMass = 1 / b.mass
		localCenter = localCenter.Mult(b.invMass)
	} else {
		b.mass = 1
		b.invMass = 1
	}

	if b.i > 0 && !b.IsFixedRotation() {
		// Center the inertia about the center of mass.
		b.i -= b.mass * localCenter.Dot(localCenter)
		invariant(b.i > 0, "inertia must be positive")
		b.invI = 1 / b.i
	} else {
		b.i = 0
		b.invI = 0
	}

	b.updateCenter(localCenter)
}

// updateCenter moves the center of mass and keeps the velocity of the new
// center consistent with the old one.
func (b *Body) updateCenter(localCenter Vector) {
	oldCenter := b.sweep.C
	b.sweep.LocalCenter = localCenter
	b.sweep.C = b.xf.Point(localCenter)
	b.sweep.C0 = b.sweep.C

	b.linearVelocity = b.linearVelocity.Add(CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}

func (b *Body) WorldPoint(local Vector) Vector {
	return b.xf.Point(local)
}

func (b *Body) WorldVector(local Vector) Vector {
	return b.xf.Vect(local)
}

func (b *Body) LocalPoint(world Vector) Vector {
	return b.xf.InvPoint(world)
}

func (b *Body) LocalVector(world Vector) Vector {
	return b.xf.InvVect(world)
}

func (b *Body) LinearVelocityFromWorldPoint(world Vector) Vector {
	return b.linearVelocity.Add(CrossSV(b.angularVelocity, world.Sub(b.sweep.C)))
}

func (b *Body) LinearVelocityFromLocalPoint(local Vector) Vector {
	return b.LinearVelocityFromWorldPoint(b.WorldPoint(local))
}

func (b *Body) LinearDamping() float64 {
	return b.linearDamping
}

func (b *Body) SetLinearDamping(d float64) {
	b.linearDamping = d
}

func (b *Body) AngularDamping() float64 {
	return b.angularDamping
}

func (b *Body) SetAngularDamping(d float64) {
	b.angularDamping = d
}

func (b *Body) GravityScale() float64 {
	return b.gravityScale
}

func (b *Body) SetGravityScale(scale float64) {
	b.gravityScale = scale
}

func (b *Body) IsBullet() bool {
	return b.flags&bodyBulletFlag != 0
}

func (b *Body) SetBullet(flag bool) {
	if flag {
		b.flags |= bodyBulletFlag
	} else {
		b.flags &^= bodyBulletFlag
	}
}

func (b *Body) IsAwake() bool {
	return b.flags&bodyAwakeFlag != 0
}

// SetAwake wakes or sleeps the body. A sleeping body has zero velocity and
// costs nothing in the solver.
func (b *Body) SetAwake(awake bool) {
	if b.typ == StaticBody {
		return
	}
	if awake {
		if b.flags&bodyAwakeFlag == 0 {
			b.flags |= bodyAwakeFlag
			b.sleepTime = 0
		}
	} else {
		b.flags &^= bodyAwakeFlag
		b.sleepTime = 0
		b.linearVelocity = Vector{}
		b.angularVelocity = 0
		b.force = Vector{}
		b.torque = 0
	}
}

func (b *Body) IsSleepingAllowed() bool {
	return b.flags&bodyAutoSleepFlag != 0
}

func (b *Body) SetSleepingAllowed(flag bool) {
	if flag {
		b.flags |= bodyAutoSleepFlag
	} else {
		b.flags &^= bodyAutoSleepFlag
		b.SetAwake(true)
	}
}

func (b *Body) IsActive() bool {
	return b.flags&bodyActiveFlag != 0
}

// SetActive removes the body from or returns it to the simulation. An
// inactive body has no proxies and no contacts but keeps its joints.
func (b *Body) SetActive(flag bool) error {
	if b.world == nil {
		return ErrNotInWorld
	}
	if b.world.locked {
		return ErrWorldLocked
	}
	if flag == b.IsActive() {
		return nil
	}

	bp := b.world.contactManager.broadPhase
	if flag {
		b.flags |= bodyActiveFlag
		for _, f := range b.fixtures {
			f.createProxies(bp, b.xf)
		}
		b.world.newFixture = true
	} else {
		b.flags &^= bodyActiveFlag
		b.world.destroyBodyContacts(b)
		for _, f := range b.fixtures {
			f.destroyProxies(bp)
		}
	}
	return nil
}

func (b *Body) IsFixedRotation() bool {
	return b.flags&bodyFixedRotationFlag != 0
}

func (b *Body) SetFixedRotation(flag bool) {
	if flag == b.IsFixedRotation() {
		return
	}
	if flag {
		b.flags |= bodyFixedRotationFlag
	} else {
		b.flags &^= bodyFixedRotationFlag
	}
	b.angularVelocity = 0
	b.ResetMassData()
}

// shouldCollide is false for two non-dynamic bodies and for bodies joined
// by a joint that disables collision.
func (b *Body) shouldCollide(other *Body) bool {
	if b.typ != DynamicBody && other.typ != DynamicBody {
		return false
	}
	for _, id := range b.joints {
		j := b.world.joints[id].base()
		if (j.bodyA == other || j.bodyB == other) && !j.collideConnected {
			return false
		}
	}
	return true
}

func (b *Body) synchronizeTransform() {
	b.xf.Q = NewRot(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(b.xf.Q.Apply(b.sweep.LocalCenter))
}

// synchronizeFixtures refits proxies over the motion of the last step.
func (b *Body) synchronizeFixtures() {
	xf1 := Transform{Q: NewRot(b.sweep.A0)}
	xf1.P = b.sweep.C0.Sub(xf1.Q.Apply(b.sweep.LocalCenter))

	bp := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		f.synchronize(bp, xf1, b.xf)
	}
}

// minExtent is the smallest half extent over the fixtures, used to decide
// when a body moves fast enough to need a swept test.
func (b *Body) minExtent() float64 {
	extent := INFINITY
	for _, f := range b.fixtures {
		if f.sensor {
			continue
		}
		switch s := f.shape.(type) {
		case *Circle:
			extent = math.Min(extent, s.R)
		default:
			for child := 0; child < s.ChildCount(); child++ {
				bb := s.ComputeBB(NewTransformIdentity(), child)
				e := bb.Extents()
				extent = math.Min(extent, math.Min(e.X, e.Y))
			}
		}
	}
	return extent
}

func (b *Body) removeContact(id int) {
	if i := slices.Index(b.contacts, id); i >= 0 {
		b.contacts = slices.Delete(b.contacts, i, i+1)
	}
}

func (b *Body) removeJoint(id int) {
	if i := slices.Index(b.joints, id); i >= 0 {
		b.joints = slices.Delete(b.joints, i, i+1)
	}
}
