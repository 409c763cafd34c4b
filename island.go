package physics

import "math"

// island is a group of awake bodies connected by touching contacts and
// joints. It is rebuilt every step and solved on its own.
type island struct {
	bodies   []*Body
	contacts []*Contact
	joints   []Joint

	positions  []position
	velocities []velocity

	listener ContactListener
	settings *Settings
}

func (is *island) clear() {
	is.bodies = is.bodies[:0]
	is.contacts = is.contacts[:0]
	is.joints = is.joints[:0]
}

func (is *island) addBody(b *Body) {
	b.islandIndex = len(is.bodies)
	is.bodies = append(is.bodies, b)
}

func (is *island) addContact(c *Contact) {
	is.contacts = append(is.contacts, c)
}

func (is *island) addJoint(j Joint) {
	is.joints = append(is.joints, j)
}

// solve integrates, solves and puts the island to sleep when it has been
// still long enough.
func (is *island) solve(profile *Profile, step timeStep, gravity Vector, allowSleep bool) {
	s := is.settings
	h := step.dt

	if cap(is.positions) < len(is.bodies) {
		is.positions = make([]position, len(is.bodies))
		is.velocities = make([]velocity, len(is.bodies))
	}
	is.positions = is.positions[:len(is.bodies)]
	is.velocities = is.velocities[:len(is.bodies)]

	// Integrate velocities and apply damping.
	for i, b := range is.bodies {
		c := b.sweep.C
		a := b.sweep.A
		// Kinematic bodies were advanced before the islands were built;
		// the velocity pass sees them where the step started.
		if b.typ == KinematicBody {
			c, a = b.sweep.C0, b.sweep.A0
		}
		v := b.linearVelocity
		w := b.angularVelocity

		if b.typ == DynamicBody {
			b.sweep.C0 = b.sweep.C
			b.sweep.A0 = b.sweep.A

			v = v.Add(gravity.Mult(b.gravityScale).Add(b.force.Mult(b.invMass)).Mult(h))
			w += h * b.invI * b.torque

			// Pade approximation of exp(-h*damping).
			v = v.Mult(1.0 / (1.0 + h*b.linearDamping))
			w *= 1.0 / (1.0 + h*b.angularDamping)
		}

		is.positions[i] = position{c, a}
		is.velocities[i] = velocity{v, w}
	}

	data := &solverData{
		step:       step,
		positions:  is.positions,
		velocities: is.velocities,
		settings:   s,
	}

	cs := newContactSolver(step, is.contacts, is.positions, is.velocities, s)
	cs.initializeVelocityConstraints()
	if step.warmStarting {
		cs.warmStart()
	}

	for _, j := range is.joints {
		j.initVelocityConstraints(data)
	}

	for i := 0; i < step.velocityIterations; i++ {
		for _, j := range is.joints {
			j.solveVelocityConstraints(data)
		}
		cs.solveVelocityConstraints()
	}
	cs.storeImpulses()

	// Integrate positions. Static and kinematic bodies are boundaries whose
	// pose for this step is already final.
	for i, b := range is.bodies {
		if b.typ != DynamicBody {
			is.positions[i] = position{b.sweep.C, b.sweep.A}
			continue
		}
		c := is.positions[i].c
		a := is.positions[i].a
		v := is.velocities[i].v
		w := is.velocities[i].w

		translation := v.Mult(h)
		if translation.LengthSq() > s.MaxTranslation*s.MaxTranslation {
			v = v.Mult(s.MaxTranslation / translation.Length())
		}
		rotation := h * w
		if rotation*rotation > s.MaxRotation*s.MaxRotation {
			w *= s.MaxRotation / math.Abs(rotation)
		}

		c = c.Add(v.Mult(h))
		a += h * w

		is.positions[i] = position{c, a}
		is.velocities[i] = velocity{v, w}
	}

	positionSolved := false
	for i := 0; i < step.positionIterations; i++ {
		profile.PositionIterations++
		contactsOkay := cs.solvePositionConstraints()

		jointsOkay := true
		for _, j := range is.joints {
			jointsOkay = j.solvePositionConstraints(data) && jointsOkay
		}

		if contactsOkay && jointsOkay {
			positionSolved = true
			break
		}
	}

	for i, b := range is.bodies {
		if b.typ != DynamicBody {
			continue
		}
		b.sweep.C = is.positions[i].c
		b.sweep.A = is.positions[i].a
		b.linearVelocity = is.velocities[i].v
		b.angularVelocity = is.velocities[i].w
		// A NaN here means the solver diverged; stop the body instead of
		// spreading it through the world.
		if !b.sweep.C.IsValid() || !isValidFloat(b.sweep.A) {
			b.sweep.C = b.sweep.C0
			b.sweep.A = b.sweep.A0
			b.linearVelocity = Vector{}
			b.angularVelocity = 0
		}
		b.synchronizeTransform()
	}

	profile.Islands++
	profile.Bodies += len(is.bodies)
	profile.Contacts += len(is.contacts)
	profile.Joints += len(is.joints)
	profile.VelocityIterations += step.velocityIterations

	is.report(cs)

	if !allowSleep {
		return
	}

	minSleepTime := math.MaxFloat64
	linTolSqr := s.LinearSleepTolerance * s.LinearSleepTolerance
	angTolSqr := s.AngularSleepTolerance * s.AngularSleepTolerance

	for _, b := range is.bodies {
		if b.typ != DynamicBody {
			continue
		}
		if !b.IsSleepingAllowed() || b.angularVelocity*b.angularVelocity > angTolSqr || b.linearVelocity.LengthSq() > linTolSqr {
			b.sleepTime = 0
			minSleepTime = 0
		} else {
			b.sleepTime += h
			minSleepTime = math.Min(minSleepTime, b.sleepTime)
		}
	}

	if minSleepTime >= s.TimeToSleep && positionSolved {
		for _, b := range is.bodies {
			if b.typ == DynamicBody {
				b.SetAwake(false)
			}
		}
	}
}

func (is *island) report(cs *contactSolver) {
	if is.listener == nil {
		return
	}
	for i, c := range is.contacts {
		vc := &cs.velocityConstraints[i]
		impulse := ContactImpulse{Count: vc.pointCount}
		for j := 0; j < vc.pointCount; j++ {
			impulse.NormalImpulses[j] = vc.points[j].normalImpulse
			impulse.TangentImpulses[j] = vc.points[j].tangentImpulse
		}
		is.listener.PostSolve(c, &impulse)
	}
}
