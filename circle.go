package physics

import (
	"fmt"
	"math"
)

type Circle struct {
	P Vector
	R float64
}

func NewCircle(offset Vector, radius float64) (*Circle, error) {
	c := &Circle{P: offset, R: radius}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Circle) isShape() {}

func (c *Circle) Type() ShapeType {
	return ShapeCircle
}

func (c *Circle) Radius() float64 {
	return c.R
}

func (c *Circle) ChildCount() int {
	return 1
}

func (c *Circle) Validate() error {
	if !(c.R > 0) || !isValidFloat(c.R) || !c.P.IsValid() {
		return fmt.Errorf("circle radius %v: %w", c.R, ErrInvalidShape)
	}
	return nil
}

func (c *Circle) Clone() Shape {
	clone := *c
	return &clone
}

func (c *Circle) ComputeBB(xf Transform, child int) BB {
	return NewBBForCircle(xf.Point(c.P), c.R)
}

func (c *Circle) ComputeMass(density float64) MassData {
	mass := density * math.Pi * c.R * c.R
	return MassData{
		Mass:   mass,
		Center: c.P,
		I:      mass * (0.5*c.R*c.R + c.P.Dot(c.P)),
	}
}

func (c *Circle) TestPoint(xf Transform, p Vector) bool {
	center := xf.Point(c.P)
	return p.DistanceSq(center) <= c.R*c.R
}

func (c *Circle) ComputeDistance(xf Transform, p Vector, child int) (float64, Vector) {
	center := xf.Point(c.P)
	n, length := p.Sub(center).Normalized()
	return length - c.R, n
}

// RayCast solves |p1 + t*(p2-p1) - center| = r for the entering root.
func (c *Circle) RayCast(input RayCastInput, xf Transform, child int) (RayCastOutput, bool) {
	position := xf.Point(c.P)
	s := input.P1.Sub(position)
	b := s.Dot(s) - c.R*c.R

	r := input.P2.Sub(input.P1)
	cc := s.Dot(r)
	rr := r.Dot(r)
	sigma := cc*cc - rr*b

	if sigma < 0 || rr < epsilon {
		return RayCastOutput{}, false
	}

	a := -(cc + math.Sqrt(sigma))
	if 0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		return RayCastOutput{
			Fraction: a,
			Normal:   s.Add(r.Mult(a)).Normalize(),
		}, true
	}
	return RayCastOutput{}, false
}
