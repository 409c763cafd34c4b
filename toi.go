package physics

import "math"

type toiState int

const (
	toiUnknown toiState = iota
	toiFailed
	toiOverlapped
	toiTouching
	toiSeparated
)

type toiInput struct {
	proxyA, proxyB distanceProxy
	sweepA, sweepB Sweep
	// tMax is the end of the sweep interval, usually 1.
	tMax float64
}

type toiOutput struct {
	state toiState
	t     float64
}

// timeOfImpact finds the first time the two swept cores come within a
// target distance using conservative advancement. Each iteration measures
// the GJK distance and advances by distance over a bound on the approach
// speed, so the bodies can never pass through each other between samples.
func timeOfImpact(input *toiInput, linearSlop float64, maxIterations int) toiOutput {
	sweepA := input.sweepA
	sweepB := input.sweepB
	proxyA := &input.proxyA
	proxyB := &input.proxyB

	totalRadius := proxyA.radius + proxyB.radius
	target := math.Max(linearSlop, totalRadius-linearSlop)
	tolerance := 0.25 * linearSlop

	// Motion over the whole interval.
	dA := sweepA.C.Sub(sweepA.C0)
	dB := sweepB.C.Sub(sweepB.C0)
	wA := math.Abs(sweepA.A - sweepA.A0)
	wB := math.Abs(sweepB.A - sweepB.A0)
	rA := proxyRadiusAbout(proxyA, sweepA.LocalCenter)
	rB := proxyRadiusAbout(proxyB, sweepB.LocalCenter)

	t := 0.0
	for iter := 0; iter < maxIterations; iter++ {
		xfA := sweepA.Transform(t)
		xfB := sweepB.Transform(t)

		out := shapeDistance(proxyA, xfA, proxyB, xfB, false)
		if out.distance <= 0 {
			return toiOutput{toiOverlapped, t}
		}
		if out.distance < target+tolerance {
			return toiOutput{toiTouching, t}
		}

		normal := out.pointB.Sub(out.pointA).Mult(1.0 / out.distance)
		// Upper bound on how fast the gap closes, per unit of t.
		closing := dA.Sub(dB).Dot(normal) + wA*rA + wB*rB
		if closing <= epsilon {
			return toiOutput{toiSeparated, input.tMax}
		}

		t += (out.distance - target) / closing
		if t >= input.tMax {
			return toiOutput{toiSeparated, input.tMax}
		}
	}
	return toiOutput{toiFailed, t}
}

func proxyRadiusAbout(proxy *distanceProxy, center Vector) float64 {
	var r float64
	for _, v := range proxy.vertices {
		r = math.Max(r, v.Distance(center))
	}
	return r
}
