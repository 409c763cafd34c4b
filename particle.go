package physics

import (
	"fmt"
	"image/color"
	"math"
)

// ParticleFlags select the behaviors a particle takes part in.
type ParticleFlags uint32

const (
	// WaterParticle has pressure and damping only.
	WaterParticle ParticleFlags = 0
	// ZombieParticle is removed at the end of the next step.
	ZombieParticle ParticleFlags = 1 << 1
	// WallParticle never moves.
	WallParticle    ParticleFlags = 1 << 2
	SpringParticle  ParticleFlags = 1 << 3
	ElasticParticle ParticleFlags = 1 << 4
	ViscousParticle ParticleFlags = 1 << 5
	PowderParticle  ParticleFlags = 1 << 6
	// TensileParticle adds surface tension.
	TensileParticle     ParticleFlags = 1 << 7
	ColorMixingParticle ParticleFlags = 1 << 8
	// DestructionListenerParticle reports the particle's removal to the
	// world's DestructionListener.
	DestructionListenerParticle ParticleFlags = 1 << 9
)

// ParticleDef describes a single particle.
type ParticleDef struct {
	Flags    ParticleFlags
	Position Vector
	Velocity Vector
	Color    color.RGBA
	UserData interface{}
	// Group is optional; the particle joins it.
	Group *ParticleGroup
}

type particleContact struct {
	a, b   int
	flags  ParticleFlags
	weight float64
	// normal points from a to b.
	normal Vector
}

type particleBodyContact struct {
	index   int
	body    *Body
	fixture *Fixture
	weight  float64
	// normal points from the particle into the fixture.
	normal Vector
}

type particlePair struct {
	a, b     int
	flags    ParticleFlags
	strength float64
	distance float64
}

type particleTriad struct {
	a, b, c    int
	flags      ParticleFlags
	strength   float64
	pa, pb, pc Vector
}

// ParticleSystem holds every particle of a world in parallel buffers. A
// particle is addressed by its index, which changes when particles before it
// are removed.
type ParticleSystem struct {
	world *World
	cfg   ParticleSettings

	flags        []ParticleFlags
	positions    []Vector
	velocities   []Vector
	colors       []color.RGBA
	userData     []interface{}
	groupOf      []*ParticleGroup
	accumulation []float64
	tension      []Vector
	weights      []float64
	previous     []Vector
	remap        []int

	allFlags      ParticleFlags
	allGroupFlags ParticleGroupFlags

	groups []*ParticleGroup

	contacts     []particleContact
	bodyContacts []particleBodyContact
	pairs        []particlePair
	triads       []particleTriad

	hash      *SpaceHash
	hashDirty bool
}

func newParticleSystem(w *World) *ParticleSystem {
	cfg := w.settings.Particles
	return &ParticleSystem{
		world:     w,
		cfg:       cfg,
		hash:      NewSpaceHash(2*cfg.Radius, 64),
		hashDirty: true,
	}
}

func (ps *ParticleSystem) Count() int {
	return len(ps.positions)
}

func (ps *ParticleSystem) Radius() float64 {
	return ps.cfg.Radius
}

func (ps *ParticleSystem) SetRadius(radius float64) error {
	if !(radius > 0) || !isValidFloat(radius) {
		return fmt.Errorf("particle radius %v: %w", radius, ErrInvalidSettings)
	}
	ps.cfg.Radius = radius
	ps.hash.SetCellDim(2 * radius)
	ps.hashDirty = true
	return nil
}

func (ps *ParticleSystem) Density() float64 {
	return ps.cfg.Density
}

func (ps *ParticleSystem) SetDensity(density float64) error {
	if !(density > 0) || !isValidFloat(density) {
		return fmt.Errorf("particle density %v: %w", density, ErrInvalidSettings)
	}
	ps.cfg.Density = density
	return nil
}

func (ps *ParticleSystem) GravityScale() float64 {
	return ps.cfg.GravityScale
}

func (ps *ParticleSystem) SetGravityScale(scale float64) {
	ps.cfg.GravityScale = scale
}

func (ps *ParticleSystem) Damping() float64 {
	return ps.cfg.DampingStrength
}

func (ps *ParticleSystem) SetDamping(damping float64) {
	ps.cfg.DampingStrength = damping
}

// MaxCount of zero means unlimited.
func (ps *ParticleSystem) MaxCount() int {
	return ps.cfg.MaxCount
}

func (ps *ParticleSystem) SetMaxCount(count int) error {
	if count < 0 {
		return fmt.Errorf("particle max count %d: %w", count, ErrInvalidSettings)
	}
	ps.cfg.MaxCount = count
	return nil
}

// Settings returns the parameters currently in use.
func (ps *ParticleSystem) Settings() ParticleSettings {
	return ps.cfg
}

func (ps *ParticleSystem) diameter() float64 {
	return 2 * ps.cfg.Radius
}

// ParticleMass is the mass of one particle of the lattice.
func (ps *ParticleSystem) ParticleMass() float64 {
	stride := particleStride * ps.diameter()
	return ps.cfg.Density * stride * stride
}

// Positions returns the live position buffer. It is only valid until the
// next structural change or step.
func (ps *ParticleSystem) Positions() []Vector {
	return ps.positions
}

func (ps *ParticleSystem) Velocities() []Vector {
	return ps.velocities
}

func (ps *ParticleSystem) Colors() []color.RGBA {
	return ps.colors
}

func (ps *ParticleSystem) checkIndex(i int) error {
	if i < 0 || i >= len(ps.positions) {
		return fmt.Errorf("particle %d of %d: %w", i, len(ps.positions), ErrNotInWorld)
	}
	return nil
}

func (ps *ParticleSystem) Position(i int) Vector {
	return ps.positions[i]
}

func (ps *ParticleSystem) Velocity(i int) Vector {
	return ps.velocities[i]
}

func (ps *ParticleSystem) SetVelocity(i int, v Vector) {
	ps.velocities[i] = v
}

func (ps *ParticleSystem) ParticleFlags(i int) ParticleFlags {
	return ps.flags[i]
}

func (ps *ParticleSystem) SetParticleFlags(i int, flags ParticleFlags) {
	ps.flags[i] = flags
	ps.allFlags |= flags
}

func (ps *ParticleSystem) UserData(i int) interface{} {
	return ps.userData[i]
}

// Group returns the group of particle i or nil.
func (ps *ParticleSystem) Group(i int) *ParticleGroup {
	return ps.groupOf[i]
}

func (ps *ParticleSystem) Groups() []*ParticleGroup {
	return ps.groups
}

func (ps *ParticleSystem) GroupCount() int {
	return len(ps.groups)
}

// CreateParticle adds one particle and returns its index.
func (ps *ParticleSystem) CreateParticle(def ParticleDef) (int, error) {
	if ps.world.locked {
		return -1, ErrWorldLocked
	}
	if !def.Position.IsValid() || !def.Velocity.IsValid() {
		return -1, fmt.Errorf("particle at %v moving %v: %w", def.Position, def.Velocity, ErrInvalidParticle)
	}
	if def.Group != nil && (def.Group.system != ps || def.Group.destroyed) {
		return -1, ErrNotInWorld
	}
	return ps.createParticle(def)
}

func (ps *ParticleSystem) createParticle(def ParticleDef) (int, error) {
	if ps.cfg.MaxCount > 0 && len(ps.positions) >= ps.cfg.MaxCount {
		return -1, ErrParticleLimit
	}
	i := len(ps.positions)
	ps.flags = append(ps.flags, def.Flags)
	ps.positions = append(ps.positions, def.Position)
	ps.velocities = append(ps.velocities, def.Velocity)
	ps.colors = append(ps.colors, def.Color)
	ps.userData = append(ps.userData, def.UserData)
	ps.groupOf = append(ps.groupOf, def.Group)
	ps.allFlags |= def.Flags
	ps.hashDirty = true

	if def.Group != nil {
		def.Group.indices = append(def.Group.indices, i)
	}
	return i, nil
}

// DestroyParticle marks particle i for removal at the end of the next step.
func (ps *ParticleSystem) DestroyParticle(i int, callListener bool) error {
	if ps.world.locked {
		return ErrWorldLocked
	}
	if err := ps.checkIndex(i); err != nil {
		return err
	}
	ps.destroyParticle(i, callListener)
	return nil
}

func (ps *ParticleSystem) destroyParticle(i int, callListener bool) {
	flags := ZombieParticle
	if callListener {
		flags |= DestructionListenerParticle
	}
	ps.flags[i] |= flags
	ps.allFlags |= flags
}

// DestroyParticlesInShape marks every particle inside shape placed at xf and
// returns how many were marked.
func (ps *ParticleSystem) DestroyParticlesInShape(shape Shape, xf Transform, callListener bool) (int, error) {
	if ps.world.locked {
		return 0, ErrWorldLocked
	}
	if shape == nil {
		return 0, fmt.Errorf("nil shape: %w", ErrInvalidShape)
	}

	bb := shape.ComputeBB(xf, 0)
	for child := 1; child < shape.ChildCount(); child++ {
		bb = bb.Merge(shape.ComputeBB(xf, child))
	}

	destroyed := 0
	ps.QueryAABB(bb, func(i int) bool {
		if ps.flags[i]&ZombieParticle == 0 && shape.TestPoint(xf, ps.positions[i]) {
			ps.destroyParticle(i, callListener)
			destroyed++
		}
		return true
	})
	return destroyed, nil
}

func (ps *ParticleSystem) refreshHash() {
	if ps.hashDirty {
		ps.hash.Rebuild(ps.positions)
		ps.hashDirty = false
	}
}

// eachInBB calls f for every particle inside bb until f returns false.
func (ps *ParticleSystem) eachInBB(bb BB, f func(i int) bool) {
	d := ps.diameter()
	cells := ((bb.R - bb.L) / d) * ((bb.T - bb.B) / d)
	// Walking a huge box cell by cell is slower than a scan.
	if cells > float64(len(ps.positions)) {
		for i, p := range ps.positions {
			if bb.ContainsVect(p) && !f(i) {
				return
			}
		}
		return
	}

	ps.refreshHash()
	stop := false
	ps.hash.Query(bb, func(i int) {
		if stop || !bb.ContainsVect(ps.positions[i]) {
			return
		}
		stop = !f(i)
	})
}

// QueryAABB reports the particles whose centers lie inside bb. Return false
// from f to stop.
func (ps *ParticleSystem) QueryAABB(bb BB, f func(index int) bool) {
	if len(ps.positions) == 0 {
		return
	}
	ps.eachInBB(bb, f)
}

// ParticleRayCastCallback follows the RayCastCallback convention: return
// the fraction to clip to, 1 to continue or 0 to stop.
type ParticleRayCastCallback func(index int, point, normal Vector, fraction float64) float64

// RayCast reports the particles whose discs the segment p1-p2 crosses.
func (ps *ParticleSystem) RayCast(p1, p2 Vector, f ParticleRayCastCallback) {
	if len(ps.positions) == 0 {
		return
	}
	v := p2.Sub(p1)
	vv := v.Dot(v)
	if vv == 0 {
		return
	}
	r := ps.cfg.Radius
	bb := NewBB(math.Min(p1.X, p2.X), math.Min(p1.Y, p2.Y), math.Max(p1.X, p2.X), math.Max(p1.Y, p2.Y)).Fatten(r)

	fraction := 1.0
	ps.eachInBB(bb, func(i int) bool {
		p := p1.Sub(ps.positions[i])
		pv := p.Dot(v)
		qq := p.Dot(p) - r*r
		det := pv*pv - vv*qq
		if det < 0 {
			return true
		}
		sqrtDet := math.Sqrt(det)
		t := (-pv - sqrtDet) / vv
		if t > fraction {
			return true
		}
		if t < 0 {
			t = (-pv + sqrtDet) / vv
			if t < 0 || t > fraction {
				return true
			}
		}
		n := p.Add(v.Mult(t)).Normalize()
		fraction = math.Min(fraction, f(i, p1.Add(v.Mult(t)), n, t))
		return fraction > 0
	})
}

func (ps *ParticleSystem) shiftOrigin(newOrigin Vector) {
	for i := range ps.positions {
		ps.positions[i] = ps.positions[i].Sub(newOrigin)
	}
	for _, g := range ps.groups {
		g.transform.P = g.transform.P.Sub(newOrigin)
	}
	ps.hashDirty = true
}

func (ps *ParticleSystem) addPair(a, b int, strength float64) {
	ps.pairs = append(ps.pairs, particlePair{
		a:        a,
		b:        b,
		flags:    ps.flags[a] | ps.flags[b],
		strength: strength,
		distance: ps.positions[a].Distance(ps.positions[b]),
	})
}

func (ps *ParticleSystem) addTriad(a, b, c int, strength float64) {
	pa, pb, pc := ps.positions[a], ps.positions[b], ps.positions[c]
	mid := pa.Add(pb).Add(pc).Mult(1.0 / 3.0)
	ps.triads = append(ps.triads, particleTriad{
		a:        a,
		b:        b,
		c:        c,
		flags:    ps.flags[a] | ps.flags[b] | ps.flags[c],
		strength: strength,
		pa:       pa.Sub(mid),
		pb:       pb.Sub(mid),
		pc:       pc.Sub(mid),
	})
}
