package physics

import (
	"fmt"
	"math"
)

const (
	contactIslandFlag uint8 = 1 << iota
	contactTouchingFlag
	contactEnabledFlag
	// Set when the fixtures' filtering changed and the pair must be re-checked.
	contactFilterFlag
)

// Contact is the persistent record of a pair of fixture children whose fat
// boxes overlap. It exists while the broad-phase reports the pair, whether
// or not the shapes actually touch.
type Contact struct {
	index int
	flags uint8

	fixtureA, fixtureB *Fixture
	childA, childB     int

	manifold Manifold

	friction     float64
	restitution  float64
	tangentSpeed float64
}

// MixFriction is the geometric mean so that a zero friction surface is
// always slippery.
func MixFriction(a, b float64) float64 {
	return math.Sqrt(a * b)
}

// MixRestitution lets the bouncier fixture win.
func MixRestitution(a, b float64) float64 {
	return math.Max(a, b)
}

func newContact(fA *Fixture, childA int, fB *Fixture, childB int) *Contact {
	return &Contact{
		flags:       contactEnabledFlag,
		fixtureA:    fA,
		fixtureB:    fB,
		childA:      childA,
		childB:      childB,
		friction:    MixFriction(fA.friction, fB.friction),
		restitution: MixRestitution(fA.restitution, fB.restitution),
	}
}

func (c *Contact) String() string {
	return fmt.Sprintf("Contact(%v:%d, %v:%d)", c.fixtureA, c.childA, c.fixtureB, c.childB)
}

func (c *Contact) FixtureA() *Fixture {
	return c.fixtureA
}

func (c *Contact) FixtureB() *Fixture {
	return c.fixtureB
}

func (c *Contact) ChildIndexA() int {
	return c.childA
}

func (c *Contact) ChildIndexB() int {
	return c.childB
}

// Manifold returns the local manifold. It is only meaningful while touching.
func (c *Contact) Manifold() *Manifold {
	return &c.manifold
}

func (c *Contact) WorldManifold() WorldManifold {
	var wm WorldManifold
	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	wm.Initialize(&c.manifold, bodyA.xf, c.fixtureA.shape.Radius(), bodyB.xf, c.fixtureB.shape.Radius())
	return wm
}

func (c *Contact) IsTouching() bool {
	return c.flags&contactTouchingFlag != 0
}

// SetEnabled disables the contact for the current step. Use it in PreSolve;
// the flag is reset every time the contact is updated.
func (c *Contact) SetEnabled(flag bool) {
	if flag {
		c.flags |= contactEnabledFlag
	} else {
		c.flags &^= contactEnabledFlag
	}
}

func (c *Contact) IsEnabled() bool {
	return c.flags&contactEnabledFlag != 0
}

func (c *Contact) Friction() float64 {
	return c.friction
}

// SetFriction overrides the mixed friction until the contact is destroyed.
func (c *Contact) SetFriction(friction float64) {
	c.friction = friction
}

func (c *Contact) ResetFriction() {
	c.friction = MixFriction(c.fixtureA.friction, c.fixtureB.friction)
}

func (c *Contact) Restitution() float64 {
	return c.restitution
}

func (c *Contact) SetRestitution(restitution float64) {
	c.restitution = restitution
}

func (c *Contact) ResetRestitution() {
	c.restitution = MixRestitution(c.fixtureA.restitution, c.fixtureB.restitution)
}

func (c *Contact) TangentSpeed() float64 {
	return c.tangentSpeed
}

// SetTangentSpeed makes the surface move along the tangent, like a conveyor.
func (c *Contact) SetTangentSpeed(speed float64) {
	c.tangentSpeed = speed
}

func (c *Contact) flagForFiltering() {
	c.flags |= contactFilterFlag
}

func (c *Contact) isSensor() bool {
	return c.fixtureA.sensor || c.fixtureB.sensor
}

func (c *Contact) evaluate(m *Manifold, xfA, xfB Transform) {
	collide := collideRegistry[c.fixtureA.shape.Type()][c.fixtureB.shape.Type()]
	// Contacts form one slop before the skins meet.
	margin := c.fixtureA.body.world.settings.LinearSlop
	collide(m, c.fixtureA, c.childA, xfA, c.fixtureB, c.childB, xfB, margin)
}

// update runs the narrow-phase, carries impulses over to matching points
// and reports touch transitions to the listener.
func (c *Contact) update(listener ContactListener) (began, ended bool) {
	oldManifold := c.manifold

	// Re-enable; PreSolve may disable it again.
	c.flags |= contactEnabledFlag

	wasTouching := c.IsTouching()
	sensor := c.isSensor()

	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	xfA := bodyA.xf
	xfB := bodyB.xf

	var touching bool
	if sensor {
		touching = TestOverlap(c.fixtureA.shape, c.childA, xfA, c.fixtureB.shape, c.childB, xfB)
		// Sensors don't generate manifolds.
		c.manifold.PointCount = 0
	} else {
		c.evaluate(&c.manifold, xfA, xfB)
		touching = c.manifold.PointCount > 0

		// Match new points to old ones by feature so the solver can warm start.
		for i := 0; i < c.manifold.PointCount; i++ {
			mp2 := &c.manifold.Points[i]
			mp2.NormalImpulse = 0
			mp2.TangentImpulse = 0
			key := mp2.ID.Key()
			for j := 0; j < oldManifold.PointCount; j++ {
				mp1 := &oldManifold.Points[j]
				if mp1.ID.Key() == key {
					mp2.NormalImpulse = mp1.NormalImpulse
					mp2.TangentImpulse = mp1.TangentImpulse
					break
				}
			}
		}

		if touching != wasTouching {
			bodyA.SetAwake(true)
			bodyB.SetAwake(true)
		}
	}

	if touching {
		c.flags |= contactTouchingFlag
	} else {
		c.flags &^= contactTouchingFlag
	}

	began = !wasTouching && touching
	ended = wasTouching && !touching
	if listener == nil {
		return began, ended
	}
	if began {
		listener.BeginContact(c)
	}
	if ended {
		listener.EndContact(c)
	}
	if !sensor && touching {
		listener.PreSolve(c, &oldManifold)
	}
	return began, ended
}
