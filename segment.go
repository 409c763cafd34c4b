package physics

import "fmt"

// Edge is a line segment. V0 and V3 are the optional ghost vertices of the
// neighbouring edges used to smooth collisions along chains. A one-sided
// edge only collides on the side its right hand normal points to.
type Edge struct {
	V0, V1, V2, V3 Vector
	HasV0, HasV3   bool
	OneSided       bool
	R              float64
}

func NewEdge(v1, v2 Vector) (*Edge, error) {
	e := &Edge{V1: v1, V2: v2, R: PolygonRadius}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Edge) isShape() {}

func (e *Edge) Type() ShapeType {
	return ShapeEdge
}

func (e *Edge) Radius() float64 {
	return e.R
}

func (e *Edge) ChildCount() int {
	return 1
}

func (e *Edge) Clone() Shape {
	clone := *e
	return &clone
}

func (e *Edge) Validate() error {
	if !e.V1.IsValid() || !e.V2.IsValid() {
		return fmt.Errorf("edge vertices: %w", ErrInvalidShape)
	}
	if e.V1.DistanceSq(e.V2) <= DefaultLinearSlop*DefaultLinearSlop {
		return fmt.Errorf("edge is shorter than the linear slop: %w", ErrInvalidShape)
	}
	return nil
}

// Normal is the right hand normal of V1->V2.
func (e *Edge) Normal() Vector {
	return e.V2.Sub(e.V1).ReversePerp().Normalize()
}

func (e *Edge) ComputeBB(xf Transform, child int) BB {
	v1 := xf.Point(e.V1)
	v2 := xf.Point(e.V2)
	lower := v1.Min(v2)
	upper := v1.Max(v2)
	return BB{lower.X - e.R, lower.Y - e.R, upper.X + e.R, upper.Y + e.R}
}

func (e *Edge) ComputeMass(density float64) MassData {
	return MassData{Center: e.V1.Lerp(e.V2, 0.5)}
}

func (e *Edge) TestPoint(xf Transform, p Vector) bool {
	return false
}

func (e *Edge) ComputeDistance(xf Transform, p Vector, child int) (float64, Vector) {
	v1 := xf.Point(e.V1)
	v2 := xf.Point(e.V2)
	closest := p.ClosestPointOnSegment(v1, v2)
	n, length := p.Sub(closest).Normalized()
	if length < epsilon {
		n = xf.Vect(e.Normal())
	}
	return length, n
}

// RayCast intersects the ray with the infinite line through the edge and
// then checks the hit lies between the vertices.
func (e *Edge) RayCast(input RayCastInput, xf Transform, child int) (RayCastOutput, bool) {
	p1 := xf.InvPoint(input.P1)
	p2 := xf.InvPoint(input.P2)
	d := p2.Sub(p1)

	v1 := e.V1
	v2 := e.V2
	edge := v2.Sub(v1)
	normal := edge.ReversePerp().Normalize()

	numerator := normal.Dot(v1.Sub(p1))
	if e.OneSided && numerator > 0 {
		return RayCastOutput{}, false
	}
	denominator := normal.Dot(d)
	if denominator == 0 {
		return RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0 || input.MaxFraction < t {
		return RayCastOutput{}, false
	}

	q := p1.Add(d.Mult(t))
	rr := edge.Dot(edge)
	if rr == 0 {
		return RayCastOutput{}, false
	}

	s := q.Sub(v1).Dot(edge) / rr
	if s < 0 || 1 < s {
		return RayCastOutput{}, false
	}

	out := RayCastOutput{Fraction: t}
	if numerator > 0 {
		out.Normal = xf.Vect(normal).Neg()
	} else {
		out.Normal = xf.Vect(normal)
	}
	return out, true
}
