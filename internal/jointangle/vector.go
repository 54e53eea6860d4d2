package jointangle

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DegenerateNorm is the norm below which a basis candidate or a projection is
// treated as zero.
const DegenerateNorm = 1e-6

var (
	refX = r3.Vec{X: 1}
	refY = r3.Vec{Y: 1}
)

// Spherical converts elevation phi and azimuth theta (radians) to a unit vector.
func Spherical(phi, theta float64) r3.Vec {
	return r3.Vec{
		X: math.Cos(phi) * math.Cos(theta),
		Y: math.Cos(phi) * math.Sin(theta),
		Z: math.Sin(phi),
	}
}

// Basis spans the plane orthogonal to a joint axis.
type Basis struct {
	X, Y r3.Vec

	// Fallback reports that the axis was (nearly) parallel to [1,0,0], so the
	// fixed [0,1,0] reference was used for X instead of the cross product.
	Fallback bool
}

// JointPlaneBasis builds the in-plane basis for axis j: X = j × [1,0,0]
// normalized, replaced by [0,1,0] when that cross product is near zero, and
// Y = j × X.
func JointPlaneBasis(j r3.Vec) Basis {
	var b Basis
	b.X = r3.Cross(j, refX)
	if r3.Norm(b.X) < DegenerateNorm {
		b.X = refY
		b.Fallback = true
	}
	b.X = r3.Unit(b.X)
	b.Y = r3.Cross(j, b.X)
	return b
}

// Project returns the 2-D coordinates of v in the basis.
func (b Basis) Project(v r3.Vec) (float64, float64) {
	return r3.Dot(v, b.X), r3.Dot(v, b.Y)
}

// Gamma is the acceleration induced at a sensor by rotation about a point
// offset by o: g × (g × o) + dg × o.
func Gamma(g, dg, o r3.Vec) r3.Vec {
	return r3.Add(r3.Cross(g, r3.Cross(g, o)), r3.Cross(dg, o))
}

func isZero(v r3.Vec) bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
