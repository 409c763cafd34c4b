package physics

import (
	"fmt"
	"image/color"
	"math"
	"slices"
)

type ParticleGroupFlags uint32

const (
	// SolidParticleGroup pushes particles of other groups out of itself.
	SolidParticleGroup ParticleGroupFlags = 1 << 0
	// RigidParticleGroup moves its particles as one rigid body.
	RigidParticleGroup ParticleGroupFlags = 1 << 1
)

// ParticleGroupDef fills Shape with particles on a square lattice.
type ParticleGroupDef struct {
	Flags      ParticleFlags
	GroupFlags ParticleGroupFlags
	// Shape is in group local coordinates and must be a circle or a polygon.
	Shape           Shape
	Position        Vector
	Angle           float64
	LinearVelocity  Vector
	AngularVelocity float64
	Color           color.RGBA
	// Strength scales the spring and elastic bonds.
	Strength float64
	// DestroyAutomatically removes the group once it has no particles.
	DestroyAutomatically bool
	UserData             interface{}
}

func NewParticleGroupDef(shape Shape, position Vector) ParticleGroupDef {
	return ParticleGroupDef{
		Shape:                shape,
		Position:             position,
		Strength:             1,
		DestroyAutomatically: true,
	}
}

func (def *ParticleGroupDef) validate() error {
	if def.Shape == nil {
		return fmt.Errorf("particle group without shape: %w", ErrInvalidShape)
	}
	switch def.Shape.Type() {
	case ShapeCircle, ShapePolygon:
	default:
		return fmt.Errorf("particle group from %v shape: %w", def.Shape.Type(), ErrInvalidShape)
	}
	if err := def.Shape.Validate(); err != nil {
		return err
	}
	if !def.Position.IsValid() || !isValidFloat(def.Angle) {
		return fmt.Errorf("particle group pose: %w", ErrInvalidParticle)
	}
	if def.Strength < 0 {
		return fmt.Errorf("particle group strength %v: %w", def.Strength, ErrInvalidParticle)
	}
	return nil
}

// ParticleGroup is a set of particles created together. Its statistics are
// computed on demand from its particles.
type ParticleGroup struct {
	system  *ParticleSystem
	indices []int

	flags                ParticleGroupFlags
	strength             float64
	destroyAutomatically bool
	toBeDestroyed        bool
	destroyed            bool

	transform Transform

	mass            float64
	inertia         float64
	center          Vector
	linearVelocity  Vector
	angularVelocity float64

	UserData interface{}
}

// Indices returns the particle indices of the group in ascending order.
func (g *ParticleGroup) Indices() []int {
	return g.indices
}

func (g *ParticleGroup) ParticleCount() int {
	return len(g.indices)
}

func (g *ParticleGroup) Flags() ParticleGroupFlags {
	return g.flags
}

func (g *ParticleGroup) SetFlags(flags ParticleGroupFlags) {
	g.flags = flags
	if g.system != nil {
		g.system.allGroupFlags |= flags
	}
}

func (g *ParticleGroup) Strength() float64 {
	return g.strength
}

// Transform is the pose of the group. Only rigid groups update it.
func (g *ParticleGroup) Transform() Transform {
	return g.transform
}

func (g *ParticleGroup) Position() Vector {
	return g.transform.P
}

func (g *ParticleGroup) Angle() float64 {
	return g.transform.Q.Angle()
}

func (g *ParticleGroup) Mass() float64 {
	g.updateStatistics()
	return g.mass
}

func (g *ParticleGroup) Inertia() float64 {
	g.updateStatistics()
	return g.inertia
}

func (g *ParticleGroup) Center() Vector {
	g.updateStatistics()
	return g.center
}

func (g *ParticleGroup) LinearVelocity() Vector {
	g.updateStatistics()
	return g.linearVelocity
}

func (g *ParticleGroup) AngularVelocity() float64 {
	g.updateStatistics()
	return g.angularVelocity
}

func (g *ParticleGroup) updateStatistics() {
	g.mass = 0
	g.inertia = 0
	g.center = Vector{}
	g.linearVelocity = Vector{}
	g.angularVelocity = 0
	if g.system == nil || len(g.indices) == 0 {
		return
	}
	ps := g.system
	m := ps.ParticleMass()

	for _, i := range g.indices {
		g.mass += m
		g.center = g.center.Add(ps.positions[i].Mult(m))
		g.linearVelocity = g.linearVelocity.Add(ps.velocities[i].Mult(m))
	}
	g.center = g.center.Mult(1.0 / g.mass)
	g.linearVelocity = g.linearVelocity.Mult(1.0 / g.mass)

	for _, i := range g.indices {
		p := ps.positions[i].Sub(g.center)
		v := ps.velocities[i].Sub(g.linearVelocity)
		g.inertia += m * p.Dot(p)
		g.angularVelocity += m * p.Cross(v)
	}
	if g.inertia > 0 {
		g.angularVelocity /= g.inertia
	}
}

type latticeCell struct {
	x, y  int
	index int
}

// CreateParticleGroup samples the def's shape on a lattice with spacing
// 0.75 particle diameters. Spring groups are bonded to lattice neighbors and
// elastic groups are split into triangles. When the particle limit is hit
// the group keeps the particles created so far.
func (ps *ParticleSystem) CreateParticleGroup(def ParticleGroupDef) (*ParticleGroup, error) {
	if ps.world.locked {
		return nil, ErrWorldLocked
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	xf := NewTransformRigid(def.Position, def.Angle)
	identity := NewTransformIdentity()
	stride := particleStride * ps.diameter()
	bb := def.Shape.ComputeBB(identity, 0)

	group := &ParticleGroup{
		system:               ps,
		flags:                def.GroupFlags,
		strength:             def.Strength,
		destroyAutomatically: def.DestroyAutomatically,
		transform:            xf,
		UserData:             def.UserData,
	}

	var cells []latticeCell
	lattice := make(map[[2]int]int)

fill:
	for iy := int(math.Floor(bb.B / stride)); float64(iy)*stride < bb.T; iy++ {
		for ix := int(math.Floor(bb.L / stride)); float64(ix)*stride < bb.R; ix++ {
			local := Vector{float64(ix) * stride, float64(iy) * stride}
			if !def.Shape.TestPoint(identity, local) {
				continue
			}
			p := xf.Point(local)
			i, err := ps.createParticle(ParticleDef{
				Flags:    def.Flags,
				Position: p,
				Velocity: def.LinearVelocity.Add(CrossSV(def.AngularVelocity, p.Sub(def.Position))),
				Color:    def.Color,
				UserData: def.UserData,
				Group:    group,
			})
			if err != nil {
				ps.world.logger.Warn("particle group truncated", "created", len(cells), "error", err)
				break fill
			}
			cells = append(cells, latticeCell{ix, iy, i})
			lattice[[2]int{ix, iy}] = i
		}
	}

	ps.groups = append(ps.groups, group)
	ps.allGroupFlags |= def.GroupFlags
	ps.bondLattice(cells, lattice, def.Flags, def.Strength)
	return group, nil
}

// bondLattice adds springs between lattice neighbors and two triangles per
// lattice square.
func (ps *ParticleSystem) bondLattice(cells []latticeCell, lattice map[[2]int]int, flags ParticleFlags, strength float64) {
	if flags&(SpringParticle|ElasticParticle) == 0 {
		return
	}
	for _, c := range cells {
		right, okR := lattice[[2]int{c.x + 1, c.y}]
		up, okU := lattice[[2]int{c.x, c.y + 1}]
		diag, okD := lattice[[2]int{c.x + 1, c.y + 1}]

		if flags&SpringParticle != 0 {
			if okR {
				ps.addPair(c.index, right, strength)
			}
			if okU {
				ps.addPair(c.index, up, strength)
			}
		}
		if flags&ElasticParticle != 0 {
			if okR && okU {
				ps.addTriad(c.index, right, up, strength)
			}
			if okR && okD && okU {
				ps.addTriad(right, diag, up, strength)
			}
			// The upper triangle of a square whose lower left corner is missing.
			_, okB := lattice[[2]int{c.x, c.y - 1}]
			belowRight, okBR := lattice[[2]int{c.x + 1, c.y - 1}]
			if !okB && okBR && okR {
				ps.addTriad(belowRight, right, c.index, strength)
			}
		}
	}
}

// JoinParticleGroups moves every particle of b into a and bonds particles
// along the seam. b is destroyed.
func (ps *ParticleSystem) JoinParticleGroups(a, b *ParticleGroup) error {
	if ps.world.locked {
		return ErrWorldLocked
	}
	if a == nil || b == nil || a.system != ps || b.system != ps || a.destroyed || b.destroyed {
		return ErrNotInWorld
	}
	if a == b {
		return fmt.Errorf("join group with itself: %w", ErrInvalidParticle)
	}

	ps.stitch(a, b)

	for _, i := range b.indices {
		ps.groupOf[i] = a
	}
	a.indices = append(a.indices, b.indices...)
	slices.Sort(a.indices)
	a.flags |= b.flags
	b.indices = nil

	ps.removeGroup(b)
	return nil
}

// stitch bonds particles of a to nearby particles of b.
func (ps *ParticleSystem) stitch(a, b *ParticleGroup) {
	d := ps.diameter()
	reach := maxTriadDistance * d
	ps.refreshHash()

	for _, i := range a.indices {
		pi := ps.positions[i]
		fi := ps.flags[i]

		first, second := -1, -1
		firstDist, secondDist := math.MaxFloat64, math.MaxFloat64

		ps.hash.Query(NewBBForCircle(pi, reach), func(j int) {
			if ps.groupOf[j] != b {
				return
			}
			dist := pi.Distance(ps.positions[j])
			if dist >= reach {
				return
			}
			if fi&ps.flags[j]&SpringParticle != 0 && dist < d {
				ps.addPair(i, j, math.Min(a.strength, b.strength))
			}
			// Keep the two closest for a seam triangle; ties go to the lower index.
			switch {
			case dist < firstDist || dist == firstDist && j < first:
				second, secondDist = first, firstDist
				first, firstDist = j, dist
			case dist < secondDist || dist == secondDist && j < second:
				second, secondDist = j, dist
			}
		})

		if second < 0 || fi&ElasticParticle == 0 {
			continue
		}
		if ps.flags[first]&ps.flags[second]&ElasticParticle == 0 {
			continue
		}
		if ps.positions[first].Distance(ps.positions[second]) < reach {
			ps.addTriad(i, first, second, math.Min(a.strength, b.strength))
		}
	}
}

// DestroyParticleGroup marks every particle of the group for removal. The
// group itself goes away once it is empty.
func (ps *ParticleSystem) DestroyParticleGroup(g *ParticleGroup, callListener bool) error {
	if ps.world.locked {
		return ErrWorldLocked
	}
	if g == nil || g.system != ps || g.destroyed {
		return ErrNotInWorld
	}
	for _, i := range g.indices {
		ps.destroyParticle(i, callListener)
	}
	g.toBeDestroyed = true
	return nil
}

func (ps *ParticleSystem) removeGroup(g *ParticleGroup) {
	if l := ps.world.destructionListener; l != nil {
		l.SayGoodbyeParticleGroup(g)
	}
	if i := slices.Index(ps.groups, g); i >= 0 {
		ps.groups = slices.Delete(ps.groups, i, i+1)
	}
	g.destroyed = true
	g.system = nil
}

// destroyEmptyGroups drops groups left without particles.
func (ps *ParticleSystem) destroyEmptyGroups() {
	for i := 0; i < len(ps.groups); {
		g := ps.groups[i]
		if len(g.indices) == 0 && (g.destroyAutomatically || g.toBeDestroyed) {
			ps.removeGroup(g)
			continue
		}
		i++
	}
}
