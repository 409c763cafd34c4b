package physics

// ShapeType enumerates the closed set of collision shapes.
type ShapeType int

const (
	ShapeCircle ShapeType = iota
	ShapeEdge
	ShapePolygon
	ShapeChain
	shapeTypeCount
)

func (t ShapeType) String() string {
	switch t {
	case ShapeCircle:
		return "circle"
	case ShapeEdge:
		return "edge"
	case ShapePolygon:
		return "polygon"
	case ShapeChain:
		return "chain"
	}
	return "unknown"
}

// MassData holds the mass properties of a shape. I is the rotational
// inertia about the shape origin.
type MassData struct {
	Mass   float64
	Center Vector
	I      float64
}

type RayCastInput struct {
	P1, P2      Vector
	MaxFraction float64
}

type RayCastOutput struct {
	Normal   Vector
	Fraction float64
}

// Shape is the geometry attached to a body through a fixture. Shapes are
// defined in body local coordinates.
type Shape interface {
	Type() ShapeType
	Radius() float64
	// ChildCount is the number of convex children. Only chains have more than one.
	ChildCount() int
	ComputeBB(xf Transform, child int) BB
	ComputeMass(density float64) MassData
	TestPoint(xf Transform, p Vector) bool
	RayCast(input RayCastInput, xf Transform, child int) (RayCastOutput, bool)
	// ComputeDistance returns the signed distance from p to the child and the
	// direction pointing away from it.
	ComputeDistance(xf Transform, p Vector, child int) (float64, Vector)
	Validate() error
	Clone() Shape

	isShape()
}
