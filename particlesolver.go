package physics

import "math"

// maxParticleForce caps the velocity change surface tension may apply per
// contact, in units of the critical velocity.
const maxParticleForce = 0.5

// solve advances the particles by one step after the rigid bodies moved.
// Bodies act as fixed boundaries; particles never push them.
func (ps *ParticleSystem) solve(step timeStep) {
	if len(ps.positions) == 0 {
		return
	}
	ps.updateAllFlags()

	ps.solveGravity(step)
	ps.updateContacts()
	ps.updateBodyContacts()
	ps.computeWeights()
	ps.solvePressure(step)
	ps.solveDamping()

	if ps.allFlags&ViscousParticle != 0 {
		ps.solveViscous()
	}
	if ps.allFlags&PowderParticle != 0 {
		ps.solvePowder(step)
	}
	if ps.allFlags&TensileParticle != 0 {
		ps.solveTensile(step)
	}
	if ps.allGroupFlags&SolidParticleGroup != 0 {
		ps.solveSolid(step)
	}
	if ps.allFlags&ElasticParticle != 0 {
		ps.solveElastic(step)
	}
	if ps.allFlags&SpringParticle != 0 {
		ps.solveSpring(step)
	}
	ps.limitVelocity(step)
	if ps.allGroupFlags&RigidParticleGroup != 0 {
		ps.solveRigid(step)
	}
	if ps.allFlags&ColorMixingParticle != 0 {
		ps.solveColorMixing()
	}
	if ps.allFlags&WallParticle != 0 {
		ps.solveWall()
	}

	ps.previous = append(ps.previous[:0], ps.positions...)
	for i := range ps.positions {
		ps.positions[i] = ps.positions[i].Add(ps.velocities[i].Mult(step.dt))
	}
	ps.hashDirty = true

	hits := ps.solveCollision()

	profile := &ps.world.profile
	profile.Particles = len(ps.positions)
	profile.ParticleContacts = len(ps.contacts)
	profile.ParticleBodyContacts = len(ps.bodyContacts)
	profile.ParticleBodyHits = hits

	if ps.allFlags&ZombieParticle != 0 {
		ps.solveZombie()
	}
	ps.destroyEmptyGroups()
}

func (ps *ParticleSystem) updateAllFlags() {
	ps.allFlags = 0
	for _, f := range ps.flags {
		ps.allFlags |= f
	}
	ps.allGroupFlags = 0
	for _, g := range ps.groups {
		ps.allGroupFlags |= g.flags
	}
}

func (ps *ParticleSystem) criticalVelocity(step timeStep) float64 {
	return ps.diameter() * step.invDt
}

func (ps *ParticleSystem) solveGravity(step timeStep) {
	g := ps.world.settings.Gravity.Mult(step.dt * ps.cfg.GravityScale)
	for i := range ps.velocities {
		ps.velocities[i] = ps.velocities[i].Add(g)
	}
}

// updateContacts finds particle pairs closer than one diameter using the
// spatial hash. Contacts are ordered by the lower particle index.
func (ps *ParticleSystem) updateContacts() {
	ps.hash.Rebuild(ps.positions)
	ps.hashDirty = false
	ps.contacts = ps.contacts[:0]

	d := ps.diameter()
	d2 := d * d
	for a, pa := range ps.positions {
		ps.hash.Query(NewBBForCircle(pa, d), func(b int) {
			if b <= a {
				return
			}
			dv := ps.positions[b].Sub(pa)
			distSq := dv.LengthSq()
			if distSq >= d2 {
				return
			}
			dist := math.Sqrt(distSq)
			var n Vector
			if dist > 0 {
				n = dv.Mult(1.0 / dist)
			}
			ps.contacts = append(ps.contacts, particleContact{
				a:      a,
				b:      b,
				flags:  ps.flags[a] | ps.flags[b],
				weight: 1 - dist/d,
				normal: n,
			})
		})
	}
}

// updateBodyContacts finds particles within one diameter of a fixture.
func (ps *ParticleSystem) updateBodyContacts() {
	ps.bodyContacts = ps.bodyContacts[:0]

	d := ps.diameter()
	bb := NewBBForCircle(ps.positions[0], 0)
	for _, p := range ps.positions[1:] {
		bb = bb.Expand(p)
	}
	bb = bb.Fatten(d)

	bp := ps.world.contactManager.broadPhase
	bp.Query(bb, func(id int) bool {
		proxy := bp.GetObj(id).(*fixtureProxy)
		f := proxy.fixture
		if f.sensor {
			return true
		}
		ps.eachInBB(proxy.bb.Fatten(d), func(i int) bool {
			dist, n := f.ComputeDistance(ps.positions[i], proxy.child)
			if dist >= d {
				return true
			}
			ps.bodyContacts = append(ps.bodyContacts, particleBodyContact{
				index:   i,
				body:    f.body,
				fixture: f,
				weight:  1 - math.Max(dist, 0)/d,
				normal:  n.Neg(),
			})
			return true
		})
		return true
	})
}

func (ps *ParticleSystem) computeWeights() {
	n := len(ps.positions)
	if cap(ps.accumulation) < n {
		ps.accumulation = make([]float64, n)
	}
	ps.accumulation = ps.accumulation[:n]
	clear(ps.accumulation)

	for _, c := range ps.bodyContacts {
		ps.accumulation[c.index] += c.weight
	}
	for _, c := range ps.contacts {
		ps.accumulation[c.a] += c.weight
		ps.accumulation[c.b] += c.weight
	}
}

// solvePressure turns the contact weight of each particle into a pressure
// and pushes crowded particles apart.
func (ps *ParticleSystem) solvePressure(step timeStep) {
	critical := ps.criticalVelocity(step)
	criticalPressure := ps.cfg.Density * critical * critical
	pressurePerWeight := ps.cfg.PressureStrength * criticalPressure
	maxPressure := maxParticlePress * criticalPressure
	velocityPerPressure := step.dt / (ps.cfg.Density * ps.diameter())
	// Pairs closer than the lattice spacing repel even when not crowded.
	minWeight := 1.0 - particleStride

	for i, w := range ps.accumulation {
		h := pressurePerWeight * math.Max(0, math.Min(w, maxParticleWeight)-minParticleWeight)
		ps.accumulation[i] = math.Min(h, maxPressure)
	}

	for _, c := range ps.bodyContacts {
		h := ps.accumulation[c.index] + pressurePerWeight*c.weight
		f := c.normal.Mult(velocityPerPressure * c.weight * h)
		ps.velocities[c.index] = ps.velocities[c.index].Sub(f)
	}
	for _, c := range ps.contacts {
		h := ps.accumulation[c.a] + ps.accumulation[c.b] + pressurePerWeight*math.Max(0, c.weight-minWeight)
		f := c.normal.Mult(velocityPerPressure * c.weight * h)
		ps.velocities[c.a] = ps.velocities[c.a].Sub(f)
		ps.velocities[c.b] = ps.velocities[c.b].Add(f)
	}
}

// solveDamping removes approaching normal velocity.
func (ps *ParticleSystem) solveDamping() {
	damping := ps.cfg.DampingStrength
	for _, c := range ps.bodyContacts {
		p := ps.positions[c.index]
		v := c.body.LinearVelocityFromWorldPoint(p).Sub(ps.velocities[c.index])
		vn := v.Dot(c.normal)
		if vn < 0 {
			ps.velocities[c.index] = ps.velocities[c.index].Add(c.normal.Mult(damping * c.weight * vn))
		}
	}
	for _, c := range ps.contacts {
		v := ps.velocities[c.b].Sub(ps.velocities[c.a])
		vn := v.Dot(c.normal)
		if vn < 0 {
			f := c.normal.Mult(damping * c.weight * vn)
			ps.velocities[c.a] = ps.velocities[c.a].Add(f)
			ps.velocities[c.b] = ps.velocities[c.b].Sub(f)
		}
	}
}

func (ps *ParticleSystem) solveViscous() {
	viscous := ps.cfg.ViscousStrength
	for _, c := range ps.bodyContacts {
		if ps.flags[c.index]&ViscousParticle == 0 {
			continue
		}
		p := ps.positions[c.index]
		v := c.body.LinearVelocityFromWorldPoint(p).Sub(ps.velocities[c.index])
		ps.velocities[c.index] = ps.velocities[c.index].Add(v.Mult(viscous * c.weight))
	}
	for _, c := range ps.contacts {
		if c.flags&ViscousParticle == 0 {
			continue
		}
		f := ps.velocities[c.b].Sub(ps.velocities[c.a]).Mult(viscous * c.weight)
		ps.velocities[c.a] = ps.velocities[c.a].Add(f)
		ps.velocities[c.b] = ps.velocities[c.b].Sub(f)
	}
}

// solvePowder repels particles packed tighter than the lattice spacing.
func (ps *ParticleSystem) solvePowder(step timeStep) {
	powder := ps.cfg.PowderStrength * ps.criticalVelocity(step)
	minWeight := 1.0 - particleStride
	for _, c := range ps.bodyContacts {
		if ps.flags[c.index]&PowderParticle == 0 || c.weight <= minWeight {
			continue
		}
		f := c.normal.Mult(powder * (c.weight - minWeight))
		ps.velocities[c.index] = ps.velocities[c.index].Sub(f)
	}
	for _, c := range ps.contacts {
		if c.flags&PowderParticle == 0 || c.weight <= minWeight {
			continue
		}
		f := c.normal.Mult(powder * (c.weight - minWeight))
		ps.velocities[c.a] = ps.velocities[c.a].Sub(f)
		ps.velocities[c.b] = ps.velocities[c.b].Add(f)
	}
}

// solveTensile pulls surface particles towards the fluid.
func (ps *ParticleSystem) solveTensile(step timeStep) {
	n := len(ps.positions)
	if cap(ps.tension) < n {
		ps.tension = make([]Vector, n)
	}
	ps.tension = ps.tension[:n]
	clear(ps.tension)

	for _, c := range ps.contacts {
		if c.flags&TensileParticle == 0 {
			continue
		}
		wn := c.normal.Mult(c.weight)
		ps.tension[c.a] = ps.tension[c.a].Sub(wn)
		ps.tension[c.b] = ps.tension[c.b].Add(wn)
	}

	critical := ps.criticalVelocity(step)
	pressureStrength := ps.cfg.SurfaceTensionStrengthA * critical
	normalStrength := ps.cfg.SurfaceTensionStrengthB * critical
	maxVariation := maxParticleForce * critical

	// accumulation still holds the pressure; recompute the raw weight.
	if cap(ps.weights) < n {
		ps.weights = make([]float64, n)
	}
	weight := ps.weights[:n]
	clear(weight)
	for _, c := range ps.contacts {
		weight[c.a] += c.weight
		weight[c.b] += c.weight
	}

	for _, c := range ps.contacts {
		if c.flags&TensileParticle == 0 {
			continue
		}
		h := weight[c.a] + weight[c.b]
		s := ps.tension[c.b].Sub(ps.tension[c.a])
		fn := math.Min(pressureStrength*(h-2)+normalStrength*s.Dot(c.normal), maxVariation) * c.weight
		f := c.normal.Mult(fn)
		ps.velocities[c.a] = ps.velocities[c.a].Sub(f)
		ps.velocities[c.b] = ps.velocities[c.b].Add(f)
	}
}

// solveSolid pushes apart particles of different groups when one of the
// groups is solid. The overlap stands in for the penetration depth.
func (ps *ParticleSystem) solveSolid(step timeStep) {
	ejection := step.invDt * ps.cfg.EjectionStrength
	d := ps.diameter()
	for _, c := range ps.contacts {
		ga, gb := ps.groupOf[c.a], ps.groupOf[c.b]
		if ga == gb {
			continue
		}
		solid := ga != nil && ga.flags&SolidParticleGroup != 0 || gb != nil && gb.flags&SolidParticleGroup != 0
		if !solid {
			continue
		}
		h := d * c.weight
		f := c.normal.Mult(ejection * h * c.weight)
		ps.velocities[c.a] = ps.velocities[c.a].Sub(f)
		ps.velocities[c.b] = ps.velocities[c.b].Add(f)
	}
}

// solveElastic rotates each triangle's rest shape onto its predicted pose
// and steers the corners towards it.
func (ps *ParticleSystem) solveElastic(step timeStep) {
	elastic := step.invDt * ps.cfg.ElasticStrength
	for _, t := range ps.triads {
		if t.flags&ElasticParticle == 0 {
			continue
		}
		pa := ps.positions[t.a].Add(ps.velocities[t.a].Mult(step.dt))
		pb := ps.positions[t.b].Add(ps.velocities[t.b].Mult(step.dt))
		pc := ps.positions[t.c].Add(ps.velocities[t.c].Mult(step.dt))

		mid := pa.Add(pb).Add(pc).Mult(1.0 / 3.0)
		pa = pa.Sub(mid)
		pb = pb.Sub(mid)
		pc = pc.Sub(mid)

		r := Rot{
			S: t.pa.Cross(pa) + t.pb.Cross(pb) + t.pc.Cross(pc),
			C: t.pa.Dot(pa) + t.pb.Dot(pb) + t.pc.Dot(pc),
		}
		r2 := r.S*r.S + r.C*r.C
		if r2 <= epsilon {
			continue
		}
		invR := 1.0 / math.Sqrt(r2)
		r.S *= invR
		r.C *= invR

		strength := elastic * t.strength
		ps.velocities[t.a] = ps.velocities[t.a].Add(r.Apply(t.pa).Sub(pa).Mult(strength))
		ps.velocities[t.b] = ps.velocities[t.b].Add(r.Apply(t.pb).Sub(pb).Mult(strength))
		ps.velocities[t.c] = ps.velocities[t.c].Add(r.Apply(t.pc).Sub(pc).Mult(strength))
	}
}

// solveSpring keeps bonded pairs at their rest distance.
func (ps *ParticleSystem) solveSpring(step timeStep) {
	spring := step.invDt * ps.cfg.SpringStrength
	for _, p := range ps.pairs {
		if p.flags&SpringParticle == 0 {
			continue
		}
		pa := ps.positions[p.a].Add(ps.velocities[p.a].Mult(step.dt))
		pb := ps.positions[p.b].Add(ps.velocities[p.b].Mult(step.dt))
		d := pb.Sub(pa)
		r1 := d.Length()
		if r1 < epsilon {
			continue
		}
		strength := spring * p.strength
		f := d.Mult(strength * (p.distance - r1) / r1)
		ps.velocities[p.a] = ps.velocities[p.a].Sub(f)
		ps.velocities[p.b] = ps.velocities[p.b].Add(f)
	}
}

func (ps *ParticleSystem) limitVelocity(step timeStep) {
	critical := ps.criticalVelocity(step)
	criticalSq := critical * critical
	for i, v := range ps.velocities {
		if v2 := v.LengthSq(); v2 > criticalSq {
			ps.velocities[i] = v.Mult(math.Sqrt(criticalSq / v2))
		}
	}
}

// solveRigid replaces the velocities of rigid groups with the group's
// average rigid motion and advances the group transform.
func (ps *ParticleSystem) solveRigid(step timeStep) {
	for _, g := range ps.groups {
		if g.flags&RigidParticleGroup == 0 || len(g.indices) == 0 {
			continue
		}
		g.updateStatistics()

		rotation := NewRot(step.dt * g.angularVelocity)
		xf := Transform{
			P: g.center.Add(g.linearVelocity.Mult(step.dt)).Sub(rotation.Apply(g.center)),
			Q: rotation,
		}
		g.transform = xf.Mult(g.transform)

		// The velocity that carries each point along xf over the step.
		for _, i := range g.indices {
			p := ps.positions[i]
			moved := xf.Point(p)
			ps.velocities[i] = moved.Sub(p).Mult(step.invDt)
		}
	}
}

func (ps *ParticleSystem) solveColorMixing() {
	mix := int(256 * Clamp(ps.cfg.ColorMixingStrength, 0, 1))
	for _, c := range ps.contacts {
		if ps.flags[c.a]&ps.flags[c.b]&ColorMixingParticle == 0 {
			continue
		}
		ca, cb := &ps.colors[c.a], &ps.colors[c.b]
		dr := (mix * (int(cb.R) - int(ca.R))) >> 8
		dg := (mix * (int(cb.G) - int(ca.G))) >> 8
		db := (mix * (int(cb.B) - int(ca.B))) >> 8
		da := (mix * (int(cb.A) - int(ca.A))) >> 8
		ca.R = uint8(int(ca.R) + dr)
		ca.G = uint8(int(ca.G) + dg)
		ca.B = uint8(int(ca.B) + db)
		ca.A = uint8(int(ca.A) + da)
		cb.R = uint8(int(cb.R) - dr)
		cb.G = uint8(int(cb.G) - dg)
		cb.B = uint8(int(cb.B) - db)
		cb.A = uint8(int(cb.A) - da)
	}
}

func (ps *ParticleSystem) solveWall() {
	for i, f := range ps.flags {
		if f&WallParticle != 0 {
			ps.velocities[i] = Vector{}
		}
	}
}

// solveCollision stops particles whose path this step crossed a fixture at
// the surface and removes the velocity into it. It returns the hit count.
func (ps *ParticleSystem) solveCollision() int {
	bp := ps.world.contactManager.broadPhase
	slop := ps.world.settings.LinearSlop
	hits := 0

	for i, p2 := range ps.positions {
		p1 := ps.previous[i]
		if p1 == p2 || ps.flags[i]&WallParticle != 0 {
			continue
		}

		var best RayCastOutput
		found := false
		bp.RayCast(RayCastInput{P1: p1, P2: p2, MaxFraction: 1}, func(input RayCastInput, id int) float64 {
			proxy := bp.GetObj(id).(*fixtureProxy)
			if proxy.fixture.sensor {
				return input.MaxFraction
			}
			out, hit := proxy.fixture.RayCast(input, proxy.child)
			if !hit {
				return input.MaxFraction
			}
			best = out
			found = true
			return out.Fraction
		})
		if !found {
			continue
		}

		hits++
		point := p1.Lerp(p2, best.Fraction)
		ps.positions[i] = point.Add(best.Normal.Mult(slop))
		if vn := ps.velocities[i].Dot(best.Normal); vn < 0 {
			ps.velocities[i] = ps.velocities[i].Sub(best.Normal.Mult(vn))
		}
	}
	return hits
}

// solveZombie compacts the buffers over removed particles and remaps the
// bonds and groups.
func (ps *ParticleSystem) solveZombie() {
	n := len(ps.positions)
	if cap(ps.remap) < n {
		ps.remap = make([]int, n)
	}
	remap := ps.remap[:n]
	listener := ps.world.destructionListener

	kept := 0
	for i := 0; i < n; i++ {
		f := ps.flags[i]
		if f&ZombieParticle != 0 {
			if listener != nil && f&DestructionListenerParticle != 0 {
				listener.SayGoodbyeParticle(i)
			}
			remap[i] = -1
			continue
		}
		remap[i] = kept
		if i != kept {
			ps.flags[kept] = f
			ps.positions[kept] = ps.positions[i]
			ps.velocities[kept] = ps.velocities[i]
			ps.colors[kept] = ps.colors[i]
			ps.userData[kept] = ps.userData[i]
			ps.groupOf[kept] = ps.groupOf[i]
		}
		kept++
	}
	if kept == n {
		return
	}

	clear(ps.userData[kept:])
	clear(ps.groupOf[kept:])
	ps.flags = ps.flags[:kept]
	ps.positions = ps.positions[:kept]
	ps.velocities = ps.velocities[:kept]
	ps.colors = ps.colors[:kept]
	ps.userData = ps.userData[:kept]
	ps.groupOf = ps.groupOf[:kept]

	pairs := ps.pairs[:0]
	for _, p := range ps.pairs {
		if remap[p.a] >= 0 && remap[p.b] >= 0 {
			p.a, p.b = remap[p.a], remap[p.b]
			pairs = append(pairs, p)
		}
	}
	ps.pairs = pairs

	triads := ps.triads[:0]
	for _, t := range ps.triads {
		if remap[t.a] >= 0 && remap[t.b] >= 0 && remap[t.c] >= 0 {
			t.a, t.b, t.c = remap[t.a], remap[t.b], remap[t.c]
			triads = append(triads, t)
		}
	}
	ps.triads = triads

	for _, g := range ps.groups {
		g.indices = g.indices[:0]
	}
	for i, g := range ps.groupOf {
		if g != nil {
			g.indices = append(g.indices, i)
		}
	}

	// Contacts refer to old indices; they are rebuilt next step.
	ps.contacts = ps.contacts[:0]
	ps.bodyContacts = ps.bodyContacts[:0]
	ps.hashDirty = true
	ps.allFlags &^= ZombieParticle
}
