package physics

import "math"

const INFINITY = math.MaxFloat64

// Float epsilon used for degenerate geometry checks.
const epsilon = 2.220446049250313e-16

const (
	// MaxManifoldPoints is the maximum number of contact points between two convex shapes.
	MaxManifoldPoints = 2
	// MaxPolygonVertices is the maximum number of vertices on a convex polygon.
	MaxPolygonVertices = 8

	// DefaultLinearSlop is the collision and constraint tolerance in meters.
	DefaultLinearSlop = 0.005
	// DefaultAngularSlop is the collision and constraint tolerance in radians.
	DefaultAngularSlop = 2.0 / 180.0 * math.Pi

	// PolygonRadius is the skin around polygons and edges. Resting contacts
	// settle within half a slop of the visible surface.
	PolygonRadius = 0.5 * DefaultLinearSlop

	maxTriadDistance  = 2.0
	gjkMaxIterations  = 20
	particleStride    = 0.75
	minParticleWeight = 1.0
	maxParticleWeight = 5.0
	maxParticlePress  = 0.25
)

// BodyType selects how a body participates in the simulation.
type BodyType int

const (
	// StaticBody has zero velocity and infinite mass. It may be moved manually.
	StaticBody BodyType = iota
	// KinematicBody moves under velocity only and is not affected by forces.
	KinematicBody
	// DynamicBody is fully simulated.
	DynamicBody
)

func (t BodyType) String() string {
	switch t {
	case StaticBody:
		return "static"
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	}
	return "unknown"
}

func Clamp(f, min, max float64) float64 {
	return math.Min(math.Max(f, min), max)
}

func Clamp01(f float64) float64 {
	return math.Max(0, math.Min(f, 1))
}

func Lerp(f1, f2, t float64) float64 {
	return f1*(1.0-t) + f2*t
}

func isValidFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
