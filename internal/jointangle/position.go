package jointangle

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrAxisNotSet is returned by operations that need an identified axis.
var ErrAxisNotSet = errors.New("joint axis not identified")

// positionGuess is the starting value for every coordinate of o1 and o2.
const positionGuess = 0.05

// JointCenter is the joint centre expressed in each sensor frame.
type JointCenter struct {
	O1 r3.Vec `json:"o1"`
	O2 r3.Vec `json:"o2"`
}

// PositionResult is the outcome of IdentifyJointPosition.
type PositionResult struct {
	JointCenter
	// Shift is the common axial offset removed from the raw solution.
	Shift float64    `json:"shift"`
	Stats SolveStats `json:"stats"`
}

// IdentifyJointPosition fits o1 and o2 so that the accelerations corrected
// for rotation about the joint centre have equal magnitude on both sensors.
// The raw solution is free to slide along the axis; it is centred by
// removing s = (o1·j1 + o2·j2)/2 along each axis.
func IdentifyJointPosition(table CalibrationTable, axis *JointAxis, opts SolveOptions) (PositionResult, error) {
	if axis == nil || isZero(axis.J1) || isZero(axis.J2) {
		return PositionResult{}, ErrAxisNotSet
	}
	if len(table) == 0 {
		return PositionResult{}, ErrEmptyTable
	}

	cost := func(x []float64) float64 {
		o1 := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
		o2 := r3.Vec{X: x[3], Y: x[4], Z: x[5]}
		var sum float64
		for _, s := range table {
			c1 := r3.Sub(s.A1, Gamma(s.G1, s.DG1, o1))
			c2 := r3.Sub(s.A2, Gamma(s.G2, s.DG2, o2))
			d := r3.Norm(c1) - r3.Norm(c2)
			sum += d * d
		}
		return sum
	}

	x0 := []float64{positionGuess, positionGuess, positionGuess, positionGuess, positionGuess, positionGuess}
	x, stats, err := minimize("joint position", cost, x0, len(table), opts, opts.MaxPositionRMS)
	if x == nil {
		return PositionResult{}, err
	}

	o1 := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
	o2 := r3.Vec{X: x[3], Y: x[4], Z: x[5]}
	shift := (r3.Dot(o1, axis.J1) + r3.Dot(o2, axis.J2)) / 2

	return PositionResult{
		JointCenter: JointCenter{
			O1: r3.Sub(o1, r3.Scale(shift, axis.J1)),
			O2: r3.Sub(o2, r3.Scale(shift, axis.J2)),
		},
		Shift: shift,
		Stats: stats,
	}, err
}
