package jointangle

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrLengthMismatch  = errors.New("sensor sequences differ in length")
	ErrInvalidInterval = errors.New("sample interval must be positive")
	ErrEmptyTable      = errors.New("calibration table is empty")
)

// SampleWidth is the number of columns in a calibration row.
const SampleWidth = 18

// CalibrationSample holds acceleration, angular velocity and the estimated
// angular acceleration of both sensors at one instant.
type CalibrationSample struct {
	A1, G1, DG1 r3.Vec
	A2, G2, DG2 r3.Vec
}

// Row flattens the sample as a1 g1 dg1 a2 g2 dg2.
func (s CalibrationSample) Row() [SampleWidth]float64 {
	return [SampleWidth]float64{
		s.A1.X, s.A1.Y, s.A1.Z,
		s.G1.X, s.G1.Y, s.G1.Z,
		s.DG1.X, s.DG1.Y, s.DG1.Z,
		s.A2.X, s.A2.Y, s.A2.Z,
		s.G2.X, s.G2.Y, s.G2.Z,
		s.DG2.X, s.DG2.Y, s.DG2.Z,
	}
}

// CalibrationTable is an ordered batch of calibration samples.
type CalibrationTable []CalibrationSample

// Dense returns the table as an N×18 matrix, or nil for an empty table.
func (t CalibrationTable) Dense() *mat.Dense {
	if len(t) == 0 {
		return nil
	}
	d := mat.NewDense(len(t), SampleWidth, nil)
	for i, s := range t {
		row := s.Row()
		d.SetRow(i, row[:])
	}
	return d
}

// BuildCalibrationTable assembles per-sensor readings into a calibration
// table and estimates each gyro derivative. Interior rows use the five-point
// stencil; the first two rows use a forward difference and the last two a
// backward difference, clamped to the sequence bounds.
func BuildCalibrationTable(imu1, imu2 []IMUReading, dt float64) (CalibrationTable, error) {
	if len(imu1) != len(imu2) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(imu1), len(imu2))
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, dt)
	}

	g1 := gyros(imu1)
	g2 := gyros(imu2)
	dg1 := gyroDerivative(g1, dt)
	dg2 := gyroDerivative(g2, dt)

	table := make(CalibrationTable, len(imu1))
	for i := range table {
		table[i] = CalibrationSample{
			A1: imu1[i].Accel(), G1: g1[i], DG1: dg1[i],
			A2: imu2[i].Accel(), G2: g2[i], DG2: dg2[i],
		}
	}
	return table, nil
}

func gyros(rs []IMUReading) []r3.Vec {
	out := make([]r3.Vec, len(rs))
	for i, r := range rs {
		out[i] = r.Gyro()
	}
	return out
}

func gyroDerivative(g []r3.Vec, dt float64) []r3.Vec {
	n := len(g)
	d := make([]r3.Vec, n)
	for i := range n {
		switch {
		case i >= 2 && i < n-2:
			// g[i-2] - 8g[i-1] + 8g[i+1] - g[i+2]
			v := r3.Sub(g[i-2], g[i+2])
			v = r3.Add(v, r3.Scale(8, r3.Sub(g[i+1], g[i-1])))
			d[i] = r3.Scale(1/(12*dt), v)
		case i < 2:
			next := min(n-1, i+1)
			d[i] = r3.Scale(1/dt, r3.Sub(g[next], g[i]))
		default:
			prev := max(0, i-1)
			d[i] = r3.Scale(1/dt, r3.Sub(g[i], g[prev]))
		}
	}
	return d
}
