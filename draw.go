package physics

// Draw flags
const (
	DrawShapes = 1 << iota
	DrawJoints
	DrawContactPoints
	DrawBBs
	DrawCenterOfMass
	DrawParticles
)

// 16 bytes
type FColor struct {
	R, G, B, A float32
}

var (
	colorStatic    = FColor{0.5, 0.9, 0.5, 1}
	colorKinematic = FColor{0.5, 0.5, 0.9, 1}
	colorSleeping  = FColor{0.6, 0.6, 0.6, 1}
	colorInactive  = FColor{0.5, 0.5, 0.3, 1}
	colorAwake     = FColor{0.9, 0.7, 0.7, 1}
	colorJoint     = FColor{0.5, 0.8, 0.8, 1}
	colorContact   = FColor{0.9, 0.3, 0.3, 1}
	colorBB        = FColor{0.9, 0.3, 0.9, 1}
	colorParticle  = FColor{0.3, 0.5, 0.9, 1}
)

// Drawer renders the debug view of a world. Polygons are given in world
// coordinates with counter-clockwise winding.
type Drawer interface {
	DrawCircle(center Vector, angle, radius float64, outline, fill FColor)
	DrawSegment(a, b Vector, color FColor)
	DrawPolygon(verts []Vector, radius float64, outline, fill FColor)
	DrawDot(size float64, pos Vector, color FColor)
	DrawTransform(xf Transform)

	Flags() int
}

func shapeColor(b *Body) FColor {
	switch {
	case !b.IsActive():
		return colorInactive
	case b.typ == StaticBody:
		return colorStatic
	case b.typ == KinematicBody:
		return colorKinematic
	case !b.IsAwake():
		return colorSleeping
	}
	return colorAwake
}

func outlineOf(c FColor) FColor {
	return FColor{c.R * 0.5, c.G * 0.5, c.B * 0.5, 1}
}

// DrawFixture draws one fixture at its body's current pose.
func DrawFixture(f *Fixture, options Drawer) {
	xf := f.body.xf
	fill := shapeColor(f.body)
	outline := outlineOf(fill)

	switch shape := f.shape.(type) {
	case *Circle:
		options.DrawCircle(xf.Point(shape.P), f.body.sweep.A, shape.R, outline, fill)
	case *Edge:
		options.DrawSegment(xf.Point(shape.V1), xf.Point(shape.V2), outline)
	case *Chain:
		prev := xf.Point(shape.Vertices[0])
		for _, v := range shape.Vertices[1:] {
			next := xf.Point(v)
			options.DrawSegment(prev, next, outline)
			prev = next
		}
	case *Polygon:
		verts := make([]Vector, len(shape.Vertices))
		for i, v := range shape.Vertices {
			verts[i] = xf.Point(v)
		}
		options.DrawPolygon(verts, shape.R, outline, fill)
	default:
		panic("Unknown shape type")
	}
}

// DrawJoint draws the segments between the bodies and the anchors.
func DrawJoint(joint Joint, options Drawer) {
	xA := joint.BodyA().xf.P
	xB := joint.BodyB().xf.P
	pA := joint.AnchorA()
	pB := joint.AnchorB()

	switch j := joint.(type) {
	case *DistanceJoint, *RopeJoint:
		options.DrawSegment(pA, pB, colorJoint)
	case *PulleyJoint:
		gA, gB := j.GroundAnchorA(), j.GroundAnchorB()
		options.DrawSegment(gA, pA, colorJoint)
		options.DrawSegment(gB, pB, colorJoint)
		options.DrawSegment(gA, gB, colorJoint)
	case *MouseJoint:
		options.DrawDot(4, j.Target(), colorJoint)
		options.DrawSegment(j.Target(), pB, colorJoint)
	default:
		options.DrawSegment(xA, pA, colorJoint)
		options.DrawSegment(pA, pB, colorJoint)
		options.DrawSegment(xB, pB, colorJoint)
	}
}

// DrawWorld draws whatever the drawer's flags select.
func DrawWorld(w *World, options Drawer) {
	flags := options.Flags()

	if flags&DrawShapes != 0 {
		for _, b := range w.bodies {
			for _, f := range b.fixtures {
				DrawFixture(f, options)
			}
		}
	}

	if flags&DrawJoints != 0 {
		for _, j := range w.joints {
			if j != nil {
				DrawJoint(j, options)
			}
		}
	}

	if flags&DrawContactPoints != 0 {
		for _, c := range w.Contacts() {
			if !c.IsTouching() {
				continue
			}
			wm := c.WorldManifold()
			for i := 0; i < c.Manifold().PointCount; i++ {
				p := wm.Points[i]
				options.DrawDot(3, p, colorContact)
				options.DrawSegment(p, p.Add(wm.Normal.Mult(0.3)), colorContact)
			}
		}
	}

	if flags&DrawBBs != 0 {
		for _, b := range w.bodies {
			if !b.IsActive() {
				continue
			}
			for _, f := range b.fixtures {
				for _, proxy := range f.proxies {
					bb := w.contactManager.broadPhase.GetFatBB(proxy.proxyID)
					options.DrawPolygon([]Vector{
						{bb.L, bb.B}, {bb.R, bb.B}, {bb.R, bb.T}, {bb.L, bb.T},
					}, 0, colorBB, FColor{})
				}
			}
		}
	}

	if flags&DrawCenterOfMass != 0 {
		for _, b := range w.bodies {
			options.DrawTransform(Transform{P: b.WorldCenter(), Q: b.xf.Q})
		}
	}

	if flags&DrawParticles != 0 && w.particles != nil {
		ps := w.particles
		r := ps.Radius()
		for i, p := range ps.positions {
			c := ps.colors[i]
			fill := colorParticle
			if c.A != 0 {
				fill = FColor{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
			}
			options.DrawCircle(p, 0, r, fill, fill)
		}
	}
}
