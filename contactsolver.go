package physics

import "math"

type velocityConstraintPoint struct {
	rA, rB         Vector
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	// velocityBias is the target normal velocity: the bounce for restitution
	// or the allowed approach speed for a speculative point.
	velocityBias   float64
}

type contactVelocityConstraint struct {
	points     [MaxManifoldPoints]velocityConstraintPoint
	normal     Vector
	pointCount int

	indexA, indexB int
	invMassA       float64
	invMassB       float64
	invIA, invIB   float64
	friction       float64
	restitution    float64
	tangentSpeed   float64
	contact        *Contact
}

type contactPositionConstraint struct {
	localPoints  [MaxManifoldPoints]Vector
	localNormal  Vector
	localPoint   Vector
	pointCount   int
	typ          ManifoldType
	indexA       int
	indexB       int
	invMassA     float64
	invMassB     float64
	invIA, invIB float64
	localCenterA Vector
	localCenterB Vector
	radiusA      float64
	radiusB      float64
}

// contactSolver runs the sequential impulse iterations for the contacts of
// one island.
type contactSolver struct {
	step       timeStep
	positions  []position
	velocities []velocity
	settings   *Settings

	positionConstraints []contactPositionConstraint
	velocityConstraints []contactVelocityConstraint
	contacts            []*Contact
}

func newContactSolver(step timeStep, contacts []*Contact, positions []position, velocities []velocity, settings *Settings) *contactSolver {
	cs := &contactSolver{
		step:                step,
		positions:           positions,
		velocities:          velocities,
		settings:            settings,
		contacts:            contacts,
		positionConstraints: make([]contactPositionConstraint, len(contacts)),
		velocityConstraints: make([]contactVelocityConstraint, len(contacts)),
	}

	for i, c := range contacts {
		fA := c.fixtureA
		fB := c.fixtureB
		bodyA := fA.body
		bodyB := fB.body
		manifold := &c.manifold

		pointCount := manifold.PointCount
		invariant(pointCount > 0, "solving a contact without points")

		vc := &cs.velocityConstraints[i]
		vc.friction = c.friction
		vc.restitution = c.restitution
		vc.tangentSpeed = c.tangentSpeed
		vc.indexA = bodyA.islandIndex
		vc.indexB = bodyB.islandIndex
		vc.invMassA = bodyA.invMass
		vc.invMassB = bodyB.invMass
		vc.invIA = bodyA.invI
		vc.invIB = bodyB.invI
		vc.contact = c
		vc.pointCount = pointCount

		pc := &cs.positionConstraints[i]
		pc.indexA = bodyA.islandIndex
		pc.indexB = bodyB.islandIndex
		pc.invMassA = bodyA.invMass
		pc.invMassB = bodyB.invMass
		pc.localCenterA = bodyA.sweep.LocalCenter
		pc.localCenterB = bodyB.sweep.LocalCenter
		pc.invIA = bodyA.invI
		pc.invIB = bodyB.invI
		pc.localNormal = manifold.LocalNormal
		pc.localPoint = manifold.LocalPoint
		pc.pointCount = pointCount
		pc.radiusA = fA.shape.Radius()
		pc.radiusB = fB.shape.Radius()
		pc.typ = manifold.Type

		for j := 0; j < pointCount; j++ {
			cp := &manifold.Points[j]
			vcp := &vc.points[j]

			if step.warmStarting {
				vcp.normalImpulse = step.dtRatio * cp.NormalImpulse
				vcp.tangentImpulse = step.dtRatio * cp.TangentImpulse
			}

			pc.localPoints[j] = cp.LocalPoint
		}
	}
	return cs
}

func (cs *contactSolver) initializeVelocityConstraints() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]
		pc := &cs.positionConstraints[i]

		radiusA := pc.radiusA
		radiusB := pc.radiusB
		manifold := &vc.contact.manifold

		indexA := vc.indexA
		indexB := vc.indexB

		mA := vc.invMassA
		mB := vc.invMassB
		iA := vc.invIA
		iB := vc.invIB
		localCenterA := pc.localCenterA
		localCenterB := pc.localCenterB

		cA := cs.positions[indexA].c
		aA := cs.positions[indexA].a
		vA := cs.velocities[indexA].v
		wA := cs.velocities[indexA].w

		cB := cs.positions[indexB].c
		aB := cs.positions[indexB].a
		vB := cs.velocities[indexB].v
		wB := cs.velocities[indexB].w

		xfA := Transform{Q: NewRot(aA)}
		xfB := Transform{Q: NewRot(aB)}
		xfA.P = cA.Sub(xfA.Q.Apply(localCenterA))
		xfB.P = cB.Sub(xfB.Q.Apply(localCenterB))

		var wm WorldManifold
		wm.Initialize(manifold, xfA, radiusA, xfB, radiusB)

		vc.normal = wm.Normal
		tangent := CrossVS(vc.normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			vcp.rA = wm.Points[j].Sub(cA)
			vcp.rB = wm.Points[j].Sub(cB)

			rnA := vcp.rA.Cross(vc.normal)
			rnB := vcp.rB.Cross(vc.normal)
			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			if kNormal > 0 {
				vcp.normalMass = 1.0 / kNormal
			} else {
				vcp.normalMass = 0
			}

			rtA := vcp.rA.Cross(tangent)
			rtB := vcp.rB.Cross(tangent)
			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			if kTangent > 0 {
				vcp.tangentMass = 1.0 / kTangent
			} else {
				vcp.tangentMass = 0
			}

			vcp.velocityBias = 0
			vRel := vc.normal.Dot(vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA)))
			separation := wm.Separations[j]
			if vRel < -cs.settings.VelocityThreshold && vc.restitution > 0 {
				vcp.velocityBias = -vc.restitution * vRel
			} else if separation > 0 {
				// Speculative point: allow closing the gap within this step.
				vcp.velocityBias = -separation * cs.step.invDt
			}
		}
	}
}

func (cs *contactSolver) warmStart() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]

		indexA := vc.indexA
		indexB := vc.indexB
		mA := vc.invMassA
		iA := vc.invIA
		mB := vc.invMassB
		iB := vc.invIB

		vA := cs.velocities[indexA].v
		wA := cs.velocities[indexA].w
		vB := cs.velocities[indexB].v
		wB := cs.velocities[indexB].w

		normal := vc.normal
		tangent := CrossVS(normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			P := normal.Mult(vcp.normalImpulse).Add(tangent.Mult(vcp.tangentImpulse))
			wA -= iA * vcp.rA.Cross(P)
			vA = vA.Sub(P.Mult(mA))
			wB += iB * vcp.rB.Cross(P)
			vB = vB.Add(P.Mult(mB))
		}

		cs.velocities[indexA] = velocity{vA, wA}
		cs.velocities[indexB] = velocity{vB, wB}
	}
}

func (cs *contactSolver) solveVelocityConstraints() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]

		indexA := vc.indexA
		indexB := vc.indexB
		mA := vc.invMassA
		iA := vc.invIA
		mB := vc.invMassB
		iB := vc.invIB

		vA := cs.velocities[indexA].v
		wA := cs.velocities[indexA].w
		vB := cs.velocities[indexB].v
		wB := cs.velocities[indexB].w

		normal := vc.normal
		tangent := CrossVS(normal, 1.0)
		friction := vc.friction

		// Tangent constraints before normal ones.
		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			dv := vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA))
			vt := dv.Dot(tangent) - vc.tangentSpeed
			lambda := vcp.tangentMass * (-vt)

			maxFriction := friction * vcp.normalImpulse
			newImpulse := Clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			P := tangent.Mult(lambda)
			vA = vA.Sub(P.Mult(mA))
			wA -= iA * vcp.rA.Cross(P)
			vB = vB.Add(P.Mult(mB))
			wB += iB * vcp.rB.Cross(P)
		}

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			dv := vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA))
			vn := dv.Dot(normal)
			lambda := -vcp.normalMass * (vn - vcp.velocityBias)

			// The accumulated impulse may only push.
			newImpulse := math.Max(vcp.normalImpulse+lambda, 0)
			lambda = newImpulse - vcp.normalImpulse
			vcp.normalImpulse = newImpulse

			P := normal.Mult(lambda)
			vA = vA.Sub(P.Mult(mA))
			wA -= iA * vcp.rA.Cross(P)
			vB = vB.Add(P.Mult(mB))
			wB += iB * vcp.rB.Cross(P)
		}

		cs.velocities[indexA] = velocity{vA, wA}
		cs.velocities[indexB] = velocity{vB, wB}
	}
}

func (cs *contactSolver) storeImpulses() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]
		manifold := &vc.contact.manifold
		for j := 0; j < vc.pointCount; j++ {
			manifold.Points[j].NormalImpulse = vc.points[j].normalImpulse
			manifold.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

type positionSolverManifold struct {
	normal     Vector
	point      Vector
	separation float64
}

func (psm *positionSolverManifold) initialize(pc *contactPositionConstraint, xfA, xfB Transform, index int) {
	invariant(pc.pointCount > 0, "position constraint without points")

	switch pc.typ {
	case ManifoldCircles:
		pointA := xfA.Point(pc.localPoint)
		pointB := xfB.Point(pc.localPoints[0])
		psm.normal = pointB.Sub(pointA).Normalize()
		if psm.normal.LengthSq() == 0 {
			psm.normal = Vector{1, 0}
		}
		psm.point = pointA.Lerp(pointB, 0.5)
		psm.separation = pointB.Sub(pointA).Dot(psm.normal) - pc.radiusA - pc.radiusB

	case ManifoldFaceA:
		psm.normal = xfA.Vect(pc.localNormal)
		planePoint := xfA.Point(pc.localPoint)
		clipPoint := xfB.Point(pc.localPoints[index])
		psm.separation = clipPoint.Sub(planePoint).Dot(psm.normal) - pc.radiusA - pc.radiusB
		psm.point = clipPoint

	case ManifoldFaceB:
		psm.normal = xfB.Vect(pc.localNormal)
		planePoint := xfB.Point(pc.localPoint)
		clipPoint := xfA.Point(pc.localPoints[index])
		psm.separation = clipPoint.Sub(planePoint).Dot(psm.normal) - pc.radiusA - pc.radiusB
		psm.point = clipPoint
		// Ensure normal points from A to B.
		psm.normal = psm.normal.Neg()
	}
}

// solvePositionConstraints pushes overlapping bodies apart directly.
// It reports whether the worst overlap is within tolerance.
func (cs *contactSolver) solvePositionConstraints() bool {
	slop := cs.settings.LinearSlop
	minSeparation := 0.0

	for i := range cs.positionConstraints {
		pc := &cs.positionConstraints[i]

		indexA := pc.indexA
		indexB := pc.indexB
		localCenterA := pc.localCenterA
		mA := pc.invMassA
		iA := pc.invIA
		localCenterB := pc.localCenterB
		mB := pc.invMassB
		iB := pc.invIB

		cA := cs.positions[indexA].c
		aA := cs.positions[indexA].a
		cB := cs.positions[indexB].c
		aB := cs.positions[indexB].a

		for j := 0; j < pc.pointCount; j++ {
			xfA := Transform{Q: NewRot(aA)}
			xfB := Transform{Q: NewRot(aB)}
			xfA.P = cA.Sub(xfA.Q.Apply(localCenterA))
			xfB.P = cB.Sub(xfB.Q.Apply(localCenterB))

			var psm positionSolverManifold
			psm.initialize(pc, xfA, xfB, j)
			normal := psm.normal
			point := psm.point
			separation := psm.separation

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			minSeparation = math.Min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			C := Clamp(cs.settings.Baumgarte*(separation+slop), -cs.settings.MaxLinearCorrection, 0)

			rnA := rA.Cross(normal)
			rnB := rB.Cross(normal)
			K := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			impulse := 0.0
			if K > 0 {
				impulse = -C / K
			}

			P := normal.Mult(impulse)

			cA = cA.Sub(P.Mult(mA))
			aA -= iA * rA.Cross(P)
			cB = cB.Add(P.Mult(mB))
			aB += iB * rB.Cross(P)
		}

		cs.positions[indexA] = position{cA, aA}
		cs.positions[indexB] = position{cB, aB}
	}

	// We can't expect minSeparation >= -slop because we don't push the
	// separation above -slop.
	return minSeparation >= -3.0*slop
}
