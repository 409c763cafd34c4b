package physics

import "fmt"

// Chain is a free form sequence of one-sided edges. Each child is an edge
// whose neighbours act as ghost vertices so bodies slide across the joins.
type Chain struct {
	Vertices               []Vector
	PrevVertex, NextVertex Vector
	HasPrev, HasNext       bool
	R                      float64
}

// NewChain creates an open chain. The first and last vertex have no neighbours.
func NewChain(verts []Vector) (*Chain, error) {
	c := &Chain{Vertices: append([]Vector(nil), verts...), R: PolygonRadius}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewLoop creates a closed chain. The closing edge is added automatically.
func NewLoop(verts []Vector) (*Chain, error) {
	if len(verts) < 3 {
		return nil, fmt.Errorf("loop needs at least 3 vertices, got %d: %w", len(verts), ErrInvalidShape)
	}
	count := len(verts)
	c := &Chain{R: PolygonRadius}
	c.Vertices = make([]Vector, count+1)
	copy(c.Vertices, verts)
	c.Vertices[count] = verts[0]
	c.PrevVertex = verts[count-1]
	c.NextVertex = verts[1]
	c.HasPrev = true
	c.HasNext = true
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetPrevVertex connects the start of an open chain to another shape.
func (c *Chain) SetPrevVertex(v Vector) {
	c.PrevVertex = v
	c.HasPrev = true
}

func (c *Chain) SetNextVertex(v Vector) {
	c.NextVertex = v
	c.HasNext = true
}

func (c *Chain) isShape() {}

func (c *Chain) Type() ShapeType {
	return ShapeChain
}

func (c *Chain) Radius() float64 {
	return c.R
}

func (c *Chain) ChildCount() int {
	return len(c.Vertices) - 1
}

func (c *Chain) Clone() Shape {
	clone := *c
	clone.Vertices = append([]Vector(nil), c.Vertices...)
	return &clone
}

func (c *Chain) Validate() error {
	if len(c.Vertices) < 2 {
		return fmt.Errorf("chain needs at least 2 vertices, got %d: %w", len(c.Vertices), ErrInvalidShape)
	}
	for i := 1; i < len(c.Vertices); i++ {
		if !c.Vertices[i].IsValid() {
			return fmt.Errorf("chain vertex %d: %w", i, ErrInvalidShape)
		}
		if c.Vertices[i-1].DistanceSq(c.Vertices[i]) <= DefaultLinearSlop*DefaultLinearSlop {
			return fmt.Errorf("chain vertices %d and %d are too close: %w", i-1, i, ErrInvalidShape)
		}
	}
	return nil
}

// ChildEdge returns child i as a one-sided edge with its ghost vertices.
func (c *Chain) ChildEdge(i int) *Edge {
	e := &Edge{
		V1:       c.Vertices[i],
		V2:       c.Vertices[i+1],
		OneSided: true,
		R:        c.R,
	}
	if i > 0 {
		e.V0 = c.Vertices[i-1]
		e.HasV0 = true
	} else if c.HasPrev {
		e.V0 = c.PrevVertex
		e.HasV0 = true
	}
	if i < len(c.Vertices)-2 {
		e.V3 = c.Vertices[i+2]
		e.HasV3 = true
	} else if c.HasNext {
		e.V3 = c.NextVertex
		e.HasV3 = true
	}
	return e
}

func (c *Chain) ComputeBB(xf Transform, child int) BB {
	return c.ChildEdge(child).ComputeBB(xf, 0)
}

func (c *Chain) ComputeMass(density float64) MassData {
	return MassData{}
}

func (c *Chain) TestPoint(xf Transform, p Vector) bool {
	return false
}

func (c *Chain) ComputeDistance(xf Transform, p Vector, child int) (float64, Vector) {
	return c.ChildEdge(child).ComputeDistance(xf, p, 0)
}

func (c *Chain) RayCast(input RayCastInput, xf Transform, child int) (RayCastOutput, bool) {
	return c.ChildEdge(child).RayCast(input, xf, 0)
}
