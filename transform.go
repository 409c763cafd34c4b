package physics

import "math"

// Rot is a rotation stored as sine and cosine.
type Rot struct {
	S, C float64
}

func NewRot(angle float64) Rot {
	return Rot{math.Sin(angle), math.Cos(angle)}
}

func RotIdentity() Rot {
	return Rot{0, 1}
}

func (q Rot) Angle() float64 {
	return math.Atan2(q.S, q.C)
}

func (q Rot) XAxis() Vector {
	return Vector{q.C, q.S}
}

func (q Rot) YAxis() Vector {
	return Vector{-q.S, q.C}
}

// Mul composes q and r so that q.Mul(r).Apply(v) == q.Apply(r.Apply(v)).
func (q Rot) Mul(r Rot) Rot {
	return Rot{q.S*r.C + q.C*r.S, q.C*r.C - q.S*r.S}
}

// MulT composes the inverse of q with r.
func (q Rot) MulT(r Rot) Rot {
	return Rot{q.C*r.S - q.S*r.C, q.C*r.C + q.S*r.S}
}

func (q Rot) Apply(v Vector) Vector {
	return Vector{q.C*v.X - q.S*v.Y, q.S*v.X + q.C*v.Y}
}

func (q Rot) ApplyT(v Vector) Vector {
	return Vector{q.C*v.X + q.S*v.Y, -q.S*v.X + q.C*v.Y}
}

// Transform is a rigid transform: a translation and a rotation.
type Transform struct {
	P Vector
	Q Rot
}

func NewTransformIdentity() Transform {
	return Transform{Q: RotIdentity()}
}

func NewTransformRigid(translate Vector, radians float64) Transform {
	return Transform{translate, NewRot(radians)}
}

func (t Transform) Point(p Vector) Vector {
	return t.Q.Apply(p).Add(t.P)
}

func (t Transform) Vect(v Vector) Vector {
	return t.Q.Apply(v)
}

func (t Transform) InvPoint(p Vector) Vector {
	return t.Q.ApplyT(p.Sub(t.P))
}

func (t Transform) InvVect(v Vector) Vector {
	return t.Q.ApplyT(v)
}

// Mult returns t * t2.
func (t Transform) Mult(t2 Transform) Transform {
	return Transform{t.Q.Apply(t2.P).Add(t.P), t.Q.Mul(t2.Q)}
}

// MultT returns inverse(t) * t2.
func (t Transform) MultT(t2 Transform) Transform {
	return Transform{t.Q.ApplyT(t2.P.Sub(t.P)), t.Q.MulT(t2.Q)}
}

// BB returns the bounding box of bb after transforming it.
func (t Transform) BB(bb BB) BB {
	center := bb.Center()
	hw := (bb.R - bb.L) * 0.5
	hh := (bb.T - bb.B) * 0.5

	a, b, c, d := t.Q.C, t.Q.S, -t.Q.S, t.Q.C
	hwMax := math.Max(math.Abs(a*hw+c*hh), math.Abs(a*hw-c*hh))
	hhMax := math.Max(math.Abs(b*hw+d*hh), math.Abs(b*hw-d*hh))
	return NewBBForExtents(t.Point(center), hwMax, hhMax)
}

// Sweep describes the motion of a body over one step. The local center is
// tracked so rotation happens about the center of mass.
type Sweep struct {
	LocalCenter Vector
	C0, C       Vector
	A0, A       float64
}

// Transform returns the interpolated transform at fraction beta of the step.
func (s *Sweep) Transform(beta float64) Transform {
	p := s.C0.Mult(1.0 - beta).Add(s.C.Mult(beta))
	angle := (1.0-beta)*s.A0 + beta*s.A
	xf := Transform{p, NewRot(angle)}
	xf.P = xf.P.Sub(xf.Q.Apply(s.LocalCenter))
	return xf
}

// Advance moves the end of the sweep back to fraction beta of the step.
func (s *Sweep) Advance(beta float64) {
	s.C = s.C0.Lerp(s.C, beta)
	s.A = Lerp(s.A0, s.A, beta)
}

// Normalize keeps the angles bounded.
func (s *Sweep) Normalize() {
	twoPi := 2.0 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
