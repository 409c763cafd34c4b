package physics

import (
	"fmt"
	"math"
)

// Filter holds collision filtering data. Two fixtures collide when each
// one's category is in the other's mask, unless they share a group index:
// a positive shared group always collides and a negative one never does.
type Filter struct {
	CategoryBits uint16 `json:"categoryBits"`
	MaskBits     uint16 `json:"maskBits"`
	GroupIndex   int16  `json:"groupIndex"`
}

func DefaultFilter() Filter {
	return Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF}
}

func (f Filter) ShouldCollide(other Filter) bool {
	if f.GroupIndex == other.GroupIndex && f.GroupIndex != 0 {
		return f.GroupIndex > 0
	}
	return f.MaskBits&other.CategoryBits != 0 && f.CategoryBits&other.MaskBits != 0
}

// FixtureDef describes a fixture. The shape is cloned on creation.
type FixtureDef struct {
	Shape       Shape
	Density     float64
	Friction    float64
	Restitution float64
	IsSensor    bool
	Filter      Filter
	UserData    interface{}
}

func NewFixtureDef(shape Shape, density float64) FixtureDef {
	return FixtureDef{
		Shape:    shape,
		Density:  density,
		Friction: 0.2,
		Filter:   DefaultFilter(),
	}
}

func (def *FixtureDef) validate() error {
	if def.Shape == nil {
		return fmt.Errorf("fixture without shape: %w", ErrInvalidFixture)
	}
	if err := def.Shape.Validate(); err != nil {
		return fmt.Errorf("fixture shape: %w", err)
	}
	if def.Density < 0 || !isValidFloat(def.Density) {
		return fmt.Errorf("density %v: %w", def.Density, ErrInvalidFixture)
	}
	if def.Friction < 0 || !isValidFloat(def.Friction) {
		return fmt.Errorf("friction %v: %w", def.Friction, ErrInvalidFixture)
	}
	if def.Restitution < 0 || !isValidFloat(def.Restitution) {
		return fmt.Errorf("restitution %v: %w", def.Restitution, ErrInvalidFixture)
	}
	return nil
}

// fixtureProxy connects one child of a fixture to a leaf in the broad-phase.
type fixtureProxy struct {
	bb      BB
	fixture *Fixture
	child   int
	proxyID int
}

// Fixture attaches a shape to a body with material and filtering data.
type Fixture struct {
	id      int
	body    *Body
	shape   Shape
	density float64

	friction    float64
	restitution float64
	sensor      bool
	filter      Filter

	proxies []*fixtureProxy

	UserData interface{}
}

func (f *Fixture) String() string {
	return fmt.Sprint("Fixture ", f.id)
}

func (f *Fixture) Body() *Body {
	return f.body
}

// Shape returns the fixture's shape. It must not be modified.
func (f *Fixture) Shape() Shape {
	return f.shape
}

func (f *Fixture) Type() ShapeType {
	return f.shape.Type()
}

func (f *Fixture) Density() float64 {
	return f.density
}

// SetDensity does not update the body mass; call Body.ResetMassData.
func (f *Fixture) SetDensity(density float64) {
	f.density = math.Max(0, density)
}

func (f *Fixture) Friction() float64 {
	return f.friction
}

// SetFriction affects contacts created after the call.
func (f *Fixture) SetFriction(friction float64) {
	f.friction = friction
}

func (f *Fixture) Restitution() float64 {
	return f.restitution
}

func (f *Fixture) SetRestitution(restitution float64) {
	f.restitution = restitution
}

func (f *Fixture) IsSensor() bool {
	return f.sensor
}

func (f *Fixture) SetSensor(sensor bool) {
	if sensor != f.sensor {
		f.body.SetAwake(true)
		f.sensor = sensor
	}
}

func (f *Fixture) Filter() Filter {
	return f.filter
}

// SetFilter replaces the filter data and re-evaluates existing contacts.
func (f *Fixture) SetFilter(filter Filter) {
	f.filter = filter
	f.Refilter()
}

// Refilter flags the fixture's contacts for filtering and touches its
// proxies so new pairs are found on the next step.
func (f *Fixture) Refilter() {
	if f.body == nil || f.body.world == nil {
		return
	}
	w := f.body.world
	for _, cid := range f.body.contacts {
		c := w.contactManager.contacts[cid]
		if c.fixtureA == f || c.fixtureB == f {
			c.flagForFiltering()
		}
	}
	for _, proxy := range f.proxies {
		w.contactManager.broadPhase.TouchProxy(proxy.proxyID)
	}
}

func (f *Fixture) TestPoint(p Vector) bool {
	return f.shape.TestPoint(f.body.xf, p)
}

func (f *Fixture) RayCast(input RayCastInput, child int) (RayCastOutput, bool) {
	return f.shape.RayCast(input, f.body.xf, child)
}

func (f *Fixture) ComputeDistance(p Vector, child int) (float64, Vector) {
	return f.shape.ComputeDistance(f.body.xf, p, child)
}

func (f *Fixture) MassData() MassData {
	return f.shape.ComputeMass(f.density)
}

// BB returns the tight bounding box of a child as of the last step.
func (f *Fixture) BB(child int) BB {
	return f.proxies[child].bb
}

func (f *Fixture) createProxies(bp *BroadPhase, xf Transform) {
	count := f.shape.ChildCount()
	f.proxies = make([]*fixtureProxy, count)
	for i := 0; i < count; i++ {
		proxy := &fixtureProxy{
			bb:      f.shape.ComputeBB(xf, i),
			fixture: f,
			child:   i,
		}
		proxy.proxyID = bp.CreateProxy(proxy.bb, proxy)
		f.proxies[i] = proxy
	}
}

func (f *Fixture) destroyProxies(bp *BroadPhase) {
	for _, proxy := range f.proxies {
		bp.DestroyProxy(proxy.proxyID)
	}
	f.proxies = nil
}

// synchronize refits proxies to cover the motion from xf1 to xf2.
func (f *Fixture) synchronize(bp *BroadPhase, xf1, xf2 Transform) {
	for _, proxy := range f.proxies {
		bb1 := f.shape.ComputeBB(xf1, proxy.child)
		bb2 := f.shape.ComputeBB(xf2, proxy.child)
		proxy.bb = bb1.Merge(bb2)
		displacement := xf2.P.Sub(xf1.P)
		bp.MoveProxy(proxy.proxyID, proxy.bb, displacement)
	}
}
