package physics

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// World owns bodies, joints, contacts and particles and advances them in
// time. A World is not safe for concurrent use except for Enqueue.
type World struct {
	id       uuid.UUID
	settings Settings
	logger   *slog.Logger

	bodies []*Body

	joints     []Joint
	freeJoint  []int
	jointCount int

	contactManager *contactManager
	particles      *ParticleSystem

	island island
	stack  []*Body

	nextBodyID    int
	nextFixtureID int

	locked bool
	// newFixture forces a pair update before the next step.
	newFixture bool
	invDt0     float64

	destructionListener DestructionListener

	profile Profile

	queueMu sync.Mutex
	queue   []func(*World) error
}

type WorldOption func(*World)

// WithLogger replaces the default JSON logger.
func WithLogger(logger *slog.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}

func WithContactListener(listener ContactListener) WorldOption {
	return func(w *World) {
		w.contactManager.listener = listener
	}
}

func WithContactFilter(filter ContactFilter) WorldOption {
	return func(w *World) {
		w.contactManager.filter = filter
	}
}

func WithDestructionListener(listener DestructionListener) WorldOption {
	return func(w *World) {
		w.destructionListener = listener
	}
}

// NewWorld creates a world with default settings and the given gravity.
func NewWorld(gravity Vector) *World {
	settings := DefaultSettings()
	settings.Gravity = gravity
	w, err := NewWorldWithSettings(settings)
	if err != nil {
		panic(err)
	}
	return w
}

func NewWorldWithSettings(settings Settings, opts ...WorldOption) (*World, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		id:       uuid.New(),
		settings: settings,
	}
	w.contactManager = newContactManager(&w.settings)
	w.island.settings = &w.settings
	w.particles = newParticleSystem(w)
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = NewLogger()
	}
	w.logger = w.logger.With("world", w.id.String())
	return w, nil
}

func (w *World) ID() uuid.UUID {
	return w.id
}

func (w *World) Logger() *slog.Logger {
	return w.logger
}

// Settings returns a copy of the world settings.
func (w *World) Settings() Settings {
	return w.settings
}

func (w *World) Gravity() Vector {
	return w.settings.Gravity
}

func (w *World) SetGravity(gravity Vector) {
	w.settings.Gravity = gravity
}

func (w *World) SetAllowSleeping(flag bool) {
	if flag == w.settings.AllowSleep {
		return
	}
	w.settings.AllowSleep = flag
	if !flag {
		for _, b := range w.bodies {
			b.SetAwake(true)
		}
	}
}

func (w *World) SetWarmStarting(flag bool) {
	w.settings.WarmStarting = flag
}

func (w *World) SetContinuousPhysics(flag bool) {
	w.settings.ContinuousPhysics = flag
}

func (w *World) SetAutoClearForces(flag bool) {
	w.settings.AutoClearForces = flag
}

func (w *World) SetContactListener(listener ContactListener) {
	w.contactManager.listener = listener
}

func (w *World) SetContactFilter(filter ContactFilter) {
	w.contactManager.filter = filter
}

func (w *World) SetDestructionListener(listener DestructionListener) {
	w.destructionListener = listener
}

func (w *World) IsLocked() bool {
	return w.locked
}

// Profile returns the counters of the last step.
func (w *World) Profile() Profile {
	return w.profile
}

func (w *World) ParticleSystem() *ParticleSystem {
	return w.particles
}

// Bodies returns the bodies in creation order.
func (w *World) Bodies() []*Body {
	return slices.Clone(w.bodies)
}

func (w *World) Joints() []Joint {
	joints := make([]Joint, 0, w.jointCount)
	for _, j := range w.joints {
		if j != nil {
			joints = append(joints, j)
		}
	}
	return joints
}

func (w *World) Contacts() []*Contact {
	contacts := make([]*Contact, 0, w.contactManager.count)
	w.contactManager.each(func(c *Contact) {
		contacts = append(contacts, c)
	})
	return contacts
}

func (w *World) BodyCount() int {
	return len(w.bodies)
}

func (w *World) JointCount() int {
	return w.jointCount
}

func (w *World) ContactCount() int {
	return w.contactManager.count
}

func (w *World) ProxyCount() int {
	return w.contactManager.broadPhase.ProxyCount()
}

func (w *World) TreeHeight() int {
	return w.contactManager.broadPhase.TreeHeight()
}

// Enqueue schedules a structural change for the start of the next step. It
// may be called from any goroutine, including from listeners during a step.
func (w *World) Enqueue(fn func(*World) error) {
	w.queueMu.Lock()
	w.queue = append(w.queue, fn)
	w.queueMu.Unlock()
}

func (w *World) drainQueue() {
	w.queueMu.Lock()
	queue := w.queue
	w.queue = nil
	w.queueMu.Unlock()

	for _, fn := range queue {
		if err := fn(w); err != nil {
			w.logger.Warn("deferred command failed", "error", err)
		}
	}
}

func (w *World) CreateBody(def BodyDef) (*Body, error) {
	if w.locked {
		return nil, ErrWorldLocked
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	b := newBody(&def, w, w.nextBodyID)
	w.nextBodyID++
	w.bodies = append(w.bodies, b)
	return b, nil
}

// DestroyBody destroys a body with its joints, contacts and fixtures.
func (w *World) DestroyBody(b *Body) error {
	if w.locked {
		return ErrWorldLocked
	}
	if b == nil || b.world != w {
		return ErrNotInWorld
	}

	for len(b.joints) > 0 {
		j := w.joints[b.joints[0]]
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeJoint(j)
		}
		w.destroyJoint(j)
	}

	w.destroyBodyContacts(b)

	bp := w.contactManager.broadPhase
	for _, f := range b.fixtures {
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeFixture(f)
		}
		f.destroyProxies(bp)
		f.body = nil
	}
	b.fixtures = nil

	if i := slices.Index(w.bodies, b); i >= 0 {
		w.bodies = slices.Delete(w.bodies, i, i+1)
	}
	b.world = nil
	return nil
}

func (w *World) destroyBodyContacts(b *Body) {
	for len(b.contacts) > 0 {
		w.contactManager.Destroy(w.contactManager.contacts[b.contacts[0]])
	}
}

func (w *World) CreateFixture(b *Body, def FixtureDef) (*Fixture, error) {
	if w.locked {
		return nil, ErrWorldLocked
	}
	if b == nil || b.world != w {
		return nil, ErrNotInWorld
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	f := &Fixture{
		id:          w.nextFixtureID,
		body:        b,
		shape:       def.Shape.Clone(),
		density:     def.Density,
		friction:    def.Friction,
		restitution: def.Restitution,
		sensor:      def.IsSensor,
		filter:      def.Filter,
		UserData:    def.UserData,
	}
	w.nextFixtureID++

	if b.IsActive() {
		f.createProxies(w.contactManager.broadPhase, b.xf)
	}
	b.fixtures = append(b.fixtures, f)

	if f.density > 0 {
		b.ResetMassData()
	}
	b.SetAwake(true)

	w.newFixture = true
	return f, nil
}

func (w *World) DestroyFixture(f *Fixture) error {
	if w.locked {
		return ErrWorldLocked
	}
	if f == nil || f.body == nil || f.body.world != w {
		return ErrNotInWorld
	}
	b := f.body

	for i := 0; i < len(b.contacts); {
		c := w.contactManager.contacts[b.contacts[i]]
		if c.fixtureA == f || c.fixtureB == f {
			w.contactManager.Destroy(c)
			continue
		}
		i++
	}

	f.destroyProxies(w.contactManager.broadPhase)
	if i := slices.Index(b.fixtures, f); i >= 0 {
		b.fixtures = slices.Delete(b.fixtures, i, i+1)
	}
	f.body = nil

	b.ResetMassData()
	b.SetAwake(true)
	return nil
}

func (w *World) CreateJoint(def JointDef) (Joint, error) {
	if w.locked {
		return nil, ErrWorldLocked
	}
	if def == nil {
		return nil, fmt.Errorf("nil definition: %w", ErrInvalidJoint)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	bodyA, bodyB := def.bodies()
	if bodyA.world != w || bodyB.world != w {
		return nil, ErrNotInWorld
	}

	j := def.create()
	jb := j.base()
	if n := len(w.freeJoint); n > 0 {
		jb.index = w.freeJoint[n-1]
		w.freeJoint = w.freeJoint[:n-1]
		w.joints[jb.index] = j
	} else {
		jb.index = len(w.joints)
		w.joints = append(w.joints, j)
	}
	w.jointCount++

	bodyA.joints = append(bodyA.joints, jb.index)
	bodyB.joints = append(bodyB.joints, jb.index)

	if !jb.collideConnected {
		w.flagContactsBetween(bodyA, bodyB)
	}
	bodyA.SetAwake(true)
	bodyB.SetAwake(true)
	return j, nil
}

func (w *World) DestroyJoint(j Joint) error {
	if w.locked {
		return ErrWorldLocked
	}
	if j == nil {
		return ErrNotInWorld
	}
	jb := j.base()
	if jb.index < 0 || jb.index >= len(w.joints) || w.joints[jb.index] != j {
		return ErrNotInWorld
	}
	w.destroyJoint(j)
	return nil
}

func (w *World) destroyJoint(j Joint) {
	jb := j.base()
	bodyA := jb.bodyA
	bodyB := jb.bodyB

	bodyA.SetAwake(true)
	bodyB.SetAwake(true)
	bodyA.removeJoint(jb.index)
	bodyB.removeJoint(jb.index)

	w.joints[jb.index] = nil
	w.freeJoint = append(w.freeJoint, jb.index)
	w.jointCount--
	jb.index = -1

	if !jb.collideConnected {
		// The pair may collide again; make the broad-phase report it.
		for _, f := range bodyB.fixtures {
			for _, proxy := range f.proxies {
				w.contactManager.broadPhase.TouchProxy(proxy.proxyID)
			}
		}
		w.newFixture = true
	}

	// A gear cannot outlive the joints it couples.
	for _, other := range w.joints {
		if gear, ok := other.(*GearJoint); ok && (gear.joint1 == j || gear.joint2 == j) {
			if w.destructionListener != nil {
				w.destructionListener.SayGoodbyeJoint(gear)
			}
			w.destroyJoint(gear)
		}
	}
}

func (w *World) flagContactsBetween(bodyA, bodyB *Body) {
	for _, id := range bodyB.contacts {
		c := w.contactManager.contacts[id]
		if c.fixtureA.body == bodyA || c.fixtureB.body == bodyA {
			c.flagForFiltering()
		}
	}
}

// ClearForces zeroes the force and torque accumulators of every body.
func (w *World) ClearForces() {
	for _, b := range w.bodies {
		b.force = Vector{}
		b.torque = 0
	}
}

// StepDefault steps with the iteration counts from the settings.
func (w *World) StepDefault(dt float64) error {
	return w.Step(dt, w.settings.VelocityIterations, w.settings.PositionIterations)
}

// Step advances the world by dt: collide, solve islands, sweep fast bodies,
// find new contacts and then advance particles.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) error {
	if w.locked {
		return ErrWorldLocked
	}
	if dt < 0 || !isValidFloat(dt) {
		return fmt.Errorf("time step %v: %w", dt, ErrInvalidStep)
	}
	if velocityIterations < 1 || positionIterations < 1 {
		return fmt.Errorf("iterations %d/%d: %w", velocityIterations, positionIterations, ErrInvalidStep)
	}

	w.drainQueue()

	// New fixtures need their pairs before the contacts are updated.
	if w.newFixture {
		w.contactManager.FindNewContacts()
		w.newFixture = false
	}

	w.locked = true
	defer func() { w.locked = false }()

	step := timeStep{
		dt:                 dt,
		velocityIterations: velocityIterations,
		positionIterations: positionIterations,
		warmStarting:       w.settings.WarmStarting,
	}
	if dt > 0 {
		step.invDt = 1.0 / dt
	}
	step.dtRatio = w.invDt0 * dt

	w.profile = Profile{}
	w.contactManager.begins = 0
	w.contactManager.ends = 0

	w.contactManager.Collide()

	if dt > 0 {
		w.solve(step)
		w.invDt0 = step.invDt
	}

	if w.settings.AutoClearForces {
		w.ClearForces()
	}

	if dt > 0 && w.particles.Count() > 0 {
		w.particles.solve(step)
	}

	for _, b := range w.bodies {
		if b.typ != StaticBody && !b.IsAwake() {
			w.profile.SleepingBodies++
		}
	}

	w.logger.Debug("step",
		"dt", dt,
		"islands", w.profile.Islands,
		"contacts", w.contactManager.count,
		"begin", w.contactManager.begins,
		"end", w.contactManager.ends,
		"toi", w.profile.TOIEvents,
		"sleeping", w.profile.SleepingBodies,
	)
	return nil
}

// solve builds islands by depth first search over awake bodies and solves
// them, then sweeps fast bodies and refreshes the broad-phase.
func (w *World) solve(step timeStep) {
	for _, b := range w.bodies {
		b.flags &^= bodyIslandFlag
	}
	w.contactManager.each(func(c *Contact) {
		c.flags &^= contactIslandFlag
	})
	for _, j := range w.joints {
		if j != nil {
			j.base().islandFlag = false
		}
	}

	w.advanceKinematic(step)

	is := &w.island
	is.listener = w.contactManager.listener

	for _, seed := range w.bodies {
		if seed.flags&bodyIslandFlag != 0 {
			continue
		}
		if !seed.IsAwake() || !seed.IsActive() {
			continue
		}
		// Static and kinematic bodies only join islands through the dynamic
		// bodies they touch.
		if seed.typ != DynamicBody {
			continue
		}

		is.clear()
		stack := append(w.stack[:0], seed)
		seed.flags |= bodyIslandFlag

		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			is.addBody(b)

			// Static and kinematic bodies don't propagate islands.
			if b.typ != DynamicBody {
				continue
			}
			b.SetAwake(true)

			for _, id := range b.contacts {
				c := w.contactManager.contacts[id]
				if c.flags&contactIslandFlag != 0 {
					continue
				}
				if !c.IsEnabled() || !c.IsTouching() || c.isSensor() {
					continue
				}
				is.addContact(c)
				c.flags |= contactIslandFlag

				other := c.fixtureA.body
				if other == b {
					other = c.fixtureB.body
				}
				if other.flags&bodyIslandFlag != 0 {
					continue
				}
				stack = append(stack, other)
				other.flags |= bodyIslandFlag
			}

			for _, id := range b.joints {
				j := w.joints[id]
				jb := j.base()
				if jb.islandFlag {
					continue
				}
				other := jb.bodyA
				if other == b {
					other = jb.bodyB
				}
				if !other.IsActive() {
					continue
				}
				is.addJoint(j)
				jb.islandFlag = true

				if other.flags&bodyIslandFlag != 0 {
					continue
				}
				stack = append(stack, other)
				other.flags |= bodyIslandFlag
			}
		}
		w.stack = stack

		is.solve(&w.profile, step, w.settings.Gravity, w.settings.AllowSleep)

		sleeping := 0
		for _, b := range is.bodies {
			// Boundary bodies may join other islands.
			if b.typ != DynamicBody {
				b.flags &^= bodyIslandFlag
			} else if !b.IsAwake() {
				sleeping++
			}
		}
		if sleeping > 0 {
			w.logger.Debug("island asleep", "bodies", sleeping)
		}
	}

	if w.settings.ContinuousPhysics {
		w.solveTOI()
	}

	// Refit proxies over the motion of this step.
	for _, b := range w.bodies {
		if b.flags&bodyIslandFlag == 0 || b.typ != DynamicBody {
			continue
		}
		b.synchronizeFixtures()
	}

	w.contactManager.FindNewContacts()
}

// advanceKinematic moves kinematic bodies by their velocity. Islands treat
// them as fixed boundaries, so this is the only place they are integrated.
func (w *World) advanceKinematic(step timeStep) {
	s := &w.settings
	h := step.dt
	linTolSqr := s.LinearSleepTolerance * s.LinearSleepTolerance
	angTolSqr := s.AngularSleepTolerance * s.AngularSleepTolerance

	for _, b := range w.bodies {
		if b.typ != KinematicBody || !b.IsActive() {
			continue
		}
		b.sweep.C0 = b.sweep.C
		b.sweep.A0 = b.sweep.A
		if !b.IsAwake() {
			continue
		}
		b.sweep.C = b.sweep.C.Add(b.linearVelocity.Mult(h))
		b.sweep.A += h * b.angularVelocity
		b.synchronizeTransform()
		b.synchronizeFixtures()

		if !s.AllowSleep || !b.IsSleepingAllowed() ||
			b.linearVelocity.LengthSq() > linTolSqr || b.angularVelocity*b.angularVelocity > angTolSqr {
			b.sleepTime = 0
			continue
		}
		b.sleepTime += h
		if b.sleepTime >= s.TimeToSleep {
			b.SetAwake(false)
		}
	}
}

// solveTOI clips the motion of fast bodies at their first impact so they
// cannot pass through thin geometry. The contact is picked up on the next
// step.
func (w *World) solveTOI() {
	for _, b := range w.bodies {
		if b.flags&bodyIslandFlag == 0 || b.typ != DynamicBody {
			continue
		}
		displacement := b.sweep.C.Sub(b.sweep.C0).Length()
		if !b.IsBullet() && displacement <= w.settings.CCDDisplacementRatio*b.minExtent() {
			continue
		}

		alpha := w.sweepBody(b)
		if alpha < 1 {
			b.sweep.Advance(alpha)
			b.synchronizeTransform()
			w.profile.TOIEvents++
			w.logger.Debug("toi clip", "body", b.id, "alpha", alpha)
		}
	}
}

// sweepBody returns the earliest time of impact in [0, 1] of b against the
// bodies it may tunnel through.
func (w *World) sweepBody(b *Body) float64 {
	bp := w.contactManager.broadPhase
	filter := w.contactManager.filter
	xf0 := b.sweep.Transform(0)
	xf1 := b.xf
	tMin := 1.0

	for _, fA := range b.fixtures {
		if fA.sensor {
			continue
		}
		for child := 0; child < fA.shape.ChildCount(); child++ {
			swept := fA.shape.ComputeBB(xf0, child).Merge(fA.shape.ComputeBB(xf1, child))
			proxyA := makeDistanceProxy(fA.shape, child)

			bp.Query(swept, func(id int) bool {
				fp := bp.GetObj(id).(*fixtureProxy)
				fB := fp.fixture
				other := fB.body
				if other == b || fB.sensor {
					return true
				}
				if !other.shouldCollide(b) || (filter != nil && !filter.ShouldCollide(fA, fB)) {
					return true
				}
				typeA, typeB := fA.shape.Type(), fB.shape.Type()
				if collideRegistry[typeA][typeB] == nil && collideRegistry[typeB][typeA] == nil {
					return true
				}

				input := toiInput{
					proxyA: proxyA,
					proxyB: makeDistanceProxy(fB.shape, fp.child),
					sweepA: b.sweep,
					sweepB: other.sweep,
					tMax:   tMin,
				}
				out := timeOfImpact(&input, w.settings.LinearSlop, w.settings.TOIMaxIterations)
				// Touching at the start is left to the discrete solver.
				if out.state == toiTouching && out.t > 0 && out.t < tMin {
					tMin = out.t
				}
				return true
			})
		}
	}
	return tMin
}

// QueryAABBFunc calls cb for every fixture child whose fat box overlaps bb.
func (w *World) QueryAABBFunc(bb BB, cb QueryCallback) {
	bp := w.contactManager.broadPhase
	bp.Query(bb, func(id int) bool {
		return cb(bp.GetObj(id).(*fixtureProxy).fixture)
	})
}

// QueryAABB returns the fixtures whose fat boxes overlap bb, each once.
func (w *World) QueryAABB(bb BB) []*Fixture {
	var fixtures []*Fixture
	w.QueryAABBFunc(bb, func(f *Fixture) bool {
		if !slices.Contains(fixtures, f) {
			fixtures = append(fixtures, f)
		}
		return true
	})
	slices.SortFunc(fixtures, func(a, b *Fixture) int { return cmp.Compare(a.id, b.id) })
	return fixtures
}

// RayCastFunc casts a ray from p1 to p2 and reports hits to cb.
func (w *World) RayCastFunc(p1, p2 Vector, cb RayCastCallback) {
	bp := w.contactManager.broadPhase
	input := RayCastInput{P1: p1, P2: p2, MaxFraction: 1}
	bp.RayCast(input, func(sub RayCastInput, id int) float64 {
		proxy := bp.GetObj(id).(*fixtureProxy)
		out, hit := proxy.fixture.RayCast(sub, proxy.child)
		if !hit {
			return sub.MaxFraction
		}
		point := p1.Lerp(p2, out.Fraction)
		return cb(proxy.fixture, point, out.Normal, out.Fraction)
	})
}

// RayCast returns the closest hit along the segment from p1 to p2.
func (w *World) RayCast(p1, p2 Vector) (RayCastHit, bool) {
	var closest RayCastHit
	found := false
	w.RayCastFunc(p1, p2, func(f *Fixture, point, normal Vector, fraction float64) float64 {
		closest = RayCastHit{Fixture: f, Point: point, Normal: normal, Fraction: fraction}
		found = true
		return fraction
	})
	return closest, found
}

// RayCastAll returns every hit along the segment ordered by distance.
func (w *World) RayCastAll(p1, p2 Vector) []RayCastHit {
	var hits []RayCastHit
	w.RayCastFunc(p1, p2, func(f *Fixture, point, normal Vector, fraction float64) float64 {
		hits = append(hits, RayCastHit{Fixture: f, Point: point, Normal: normal, Fraction: fraction})
		return 1
	})
	slices.SortStableFunc(hits, func(a, b RayCastHit) int {
		return cmp.Compare(a.Fraction, b.Fraction)
	})
	return hits
}

// ShiftOrigin moves the world origin to newOrigin. Useful for large worlds.
func (w *World) ShiftOrigin(newOrigin Vector) error {
	if w.locked {
		return ErrWorldLocked
	}
	for _, b := range w.bodies {
		b.xf.P = b.xf.P.Sub(newOrigin)
		b.sweep.C0 = b.sweep.C0.Sub(newOrigin)
		b.sweep.C = b.sweep.C.Sub(newOrigin)
		for _, f := range b.fixtures {
			for _, proxy := range f.proxies {
				proxy.bb = proxy.bb.Offset(newOrigin.Neg())
			}
		}
	}
	for _, j := range w.joints {
		if s, ok := j.(interface{ shiftOrigin(Vector) }); ok {
			s.shiftOrigin(newOrigin)
		}
	}
	w.contactManager.broadPhase.ShiftOrigin(newOrigin)
	w.particles.shiftOrigin(newOrigin)
	return nil
}

// Energy returns the kinetic energy of the dynamic bodies.
func (w *World) Energy() float64 {
	e := 0.0
	for _, b := range w.bodies {
		if b.typ != DynamicBody {
			continue
		}
		e += 0.5*b.mass*b.linearVelocity.LengthSq() + 0.5*b.i*b.angularVelocity*b.angularVelocity
	}
	return e
}
