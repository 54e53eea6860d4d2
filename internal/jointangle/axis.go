package jointangle

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// signWindow is the half width, in samples, of the window used to resolve
// the sign of j2.
const signWindow = 5

// JointAxis is the hinge axis expressed in each sensor frame.
type JointAxis struct {
	J1 r3.Vec `json:"j1"`
	J2 r3.Vec `json:"j2"`
}

// SignOutcome reports what ResolveAxisSign did.
type SignOutcome int

const (
	SignKept SignOutcome = iota
	SignFlipped
	// SignDegenerate means the projections in the window had no variance,
	// so the correlation was undefined and the sign was left as solved.
	SignDegenerate
)

func (s SignOutcome) String() string {
	switch s {
	case SignKept:
		return "kept"
	case SignFlipped:
		return "flipped"
	case SignDegenerate:
		return "degenerate"
	}
	return "unknown"
}

func (s SignOutcome) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// AxisResult is the outcome of IdentifyJointAxis.
type AxisResult struct {
	JointAxis
	Sign  SignOutcome `json:"sign"`
	Stats SolveStats  `json:"stats"`
}

// IdentifyJointAxis fits j1 and j2 so that the gyro component perpendicular
// to the axis has the same magnitude on both sensors, then resolves the sign
// of j2. Each axis is parameterized by two spherical angles starting at zero.
func IdentifyJointAxis(table CalibrationTable, opts SolveOptions) (AxisResult, error) {
	if len(table) == 0 {
		return AxisResult{}, ErrEmptyTable
	}

	cost := func(x []float64) float64 {
		j1 := Spherical(x[0], x[1])
		j2 := Spherical(x[2], x[3])
		var sum float64
		for _, s := range table {
			d := r3.Norm(r3.Cross(s.G1, j1)) - r3.Norm(r3.Cross(s.G2, j2))
			sum += d * d
		}
		return sum
	}

	x, stats, err := minimize("joint axis", cost, make([]float64, 4), len(table), opts, opts.MaxAxisRMS)
	if x == nil {
		return AxisResult{}, err
	}

	axis := JointAxis{J1: Spherical(x[0], x[1]), J2: Spherical(x[2], x[3])}
	j2, sign := ResolveAxisSign(table, axis.J1, axis.J2)
	axis.J2 = j2

	return AxisResult{JointAxis: axis, Sign: sign, Stats: stats}, err
}

// ResolveAxisSign picks the sign of j2 that makes the in-plane gyro
// projections of both sensors positively correlated. The window is centred
// on the sample with the least axis-aligned rotation.
//
// Projections are taken in the basis of the canonical orientation of each
// axis and negated when the axis points the other way, so negating j2
// negates its projection. Running it again on its own output keeps the sign.
func ResolveAxisSign(table CalibrationTable, j1, j2 r3.Vec) (r3.Vec, SignOutcome) {
	if len(table) == 0 {
		return j2, SignDegenerate
	}

	idx := 0
	minActivity := math.Inf(1)
	for i, s := range table {
		activity := math.Abs(r3.Dot(s.G1, j1)) + math.Abs(r3.Dot(s.G2, j2))
		if activity < minActivity {
			minActivity = activity
			idx = i
		}
	}

	start := max(0, idx-signWindow)
	end := min(len(table), idx+signWindow)

	p1 := make([]float64, 0, 2*(end-start))
	p2 := make([]float64, 0, 2*(end-start))
	for _, s := range table[start:end] {
		p1 = appendOriented(p1, j1, s.G1)
		p2 = appendOriented(p2, j2, s.G2)
	}

	neg := make([]float64, len(p2))
	for i, v := range p2 {
		neg[i] = -v
	}

	corrPos := stat.Correlation(p1, p2, nil)
	corrNeg := stat.Correlation(p1, neg, nil)
	if math.IsNaN(corrPos) || math.IsNaN(corrNeg) || math.IsInf(corrPos, 0) || math.IsInf(corrNeg, 0) {
		return j2, SignDegenerate
	}
	if corrNeg > corrPos {
		return r3.Scale(-1, j2), SignFlipped
	}
	return j2, SignKept
}

// appendOriented appends the in-plane projection of g for axis j. The basis
// is built from the canonical ±j and the result multiplied by its sign, so
// for an axis with a negative leading component the y value is opposite to
// a literal JointPlaneBasis(j) projection. Flipping j then flips both
// components, which keeps ResolveAxisSign idempotent.
func appendOriented(dst []float64, j, g r3.Vec) []float64 {
	canon, sign := canonicalAxis(j)
	x, y := JointPlaneBasis(canon).Project(g)
	return append(dst, sign*x, sign*y)
}

// canonicalAxis returns ±j with its first significant component positive,
// and the sign that maps it back to j.
func canonicalAxis(j r3.Vec) (r3.Vec, float64) {
	for _, c := range [3]float64{j.X, j.Y, j.Z} {
		if math.Abs(c) <= DegenerateNorm {
			continue
		}
		if c < 0 {
			return r3.Scale(-1, j), -1
		}
		break
	}
	return j, 1
}
