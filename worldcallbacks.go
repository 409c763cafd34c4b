package physics

// ContactImpulse reports the impulses the solver applied at each manifold
// point. It is passed to PostSolve.
type ContactImpulse struct {
	NormalImpulses  [MaxManifoldPoints]float64
	TangentImpulses [MaxManifoldPoints]float64
	Count           int
}

// ContactListener receives contact events during Step. Implementations must
// not create or destroy bodies, fixtures or joints; use World.Enqueue.
type ContactListener interface {
	// BeginContact is called when two fixtures start touching.
	BeginContact(contact *Contact)
	// EndContact is called when two fixtures stop touching, including when
	// one of them is destroyed.
	EndContact(contact *Contact)
	// PreSolve is called for touching non-sensor contacts before they are
	// solved. The contact may be disabled for the current step.
	PreSolve(contact *Contact, oldManifold *Manifold)
	// PostSolve is called after the solver with the applied impulses.
	PostSolve(contact *Contact, impulse *ContactImpulse)
}

// ContactHandler adapts plain functions to a ContactListener. Nil functions
// are skipped.
type ContactHandler struct {
	BeginFunc     func(contact *Contact)
	EndFunc       func(contact *Contact)
	PreSolveFunc  func(contact *Contact, oldManifold *Manifold)
	PostSolveFunc func(contact *Contact, impulse *ContactImpulse)
}

func (h *ContactHandler) BeginContact(contact *Contact) {
	if h.BeginFunc != nil {
		h.BeginFunc(contact)
	}
}

func (h *ContactHandler) EndContact(contact *Contact) {
	if h.EndFunc != nil {
		h.EndFunc(contact)
	}
}

func (h *ContactHandler) PreSolve(contact *Contact, oldManifold *Manifold) {
	if h.PreSolveFunc != nil {
		h.PreSolveFunc(contact, oldManifold)
	}
}

func (h *ContactHandler) PostSolve(contact *Contact, impulse *ContactImpulse) {
	if h.PostSolveFunc != nil {
		h.PostSolveFunc(contact, impulse)
	}
}

// ContactFilter decides whether two fixtures may form a contact.
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *Fixture) bool
}

// DefaultContactFilter applies the fixtures' Filter data.
type DefaultContactFilter struct{}

func (DefaultContactFilter) ShouldCollide(fixtureA, fixtureB *Fixture) bool {
	return fixtureA.filter.ShouldCollide(fixtureB.filter)
}

// DestructionListener is told about fixtures, joints and particles that are
// destroyed implicitly because their owner went away.
type DestructionListener interface {
	SayGoodbyeFixture(fixture *Fixture)
	SayGoodbyeJoint(joint Joint)
	SayGoodbyeParticleGroup(group *ParticleGroup)
	SayGoodbyeParticle(index int)
}

// QueryCallback is called for each fixture overlapping a query box.
// Return false to stop the query.
type QueryCallback func(fixture *Fixture) bool

// RayCastCallback is called for each fixture hit by a ray. The return value
// controls the cast: -1 ignores the fixture, 0 terminates, fraction clips
// the ray to this hit and 1 continues unchanged.
type RayCastCallback func(fixture *Fixture, point, normal Vector, fraction float64) float64

// RayCastHit is a single ray intersection.
type RayCastHit struct {
	Fixture  *Fixture
	Point    Vector
	Normal   Vector
	Fraction float64
}
