package jointangle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// offsetHingeTable adds accelerations generated by a known joint centre to
// a hinge table: a common joint acceleration plus the rotational term.
func offsetHingeTable(t *testing.T, j, o1, o2 r3.Vec, n int) CalibrationTable {
	t.Helper()
	table := hingeTable(t, j, n)
	for i := range table {
		ts := float64(i) * hingeDt
		c := r3.Vec{
			X: 0.5 * math.Sin(0.7*ts),
			Y: 9.81 * math.Cos(0.3*ts),
			Z: 9.81*math.Sin(0.3*ts) + 0.4*math.Cos(1.9*ts),
		}
		s := &table[i]
		s.A1 = r3.Add(c, Gamma(s.G1, s.DG1, o1))
		s.A2 = r3.Add(c, Gamma(s.G2, s.DG2, o2))
	}
	return table
}

func perpendicular(v, j r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, j), j))
}

func TestIdentifyJointPosition_RequiresAxis(t *testing.T) {
	table := hingeTable(t, Spherical(0.2, 0.3), 20)

	_, err := IdentifyJointPosition(table, nil, SolveOptions{})
	assert.ErrorIs(t, err, ErrAxisNotSet)

	_, err = IdentifyJointPosition(table, &JointAxis{}, SolveOptions{})
	assert.ErrorIs(t, err, ErrAxisNotSet)
}

func TestIdentifyJointPosition_EmptyTable(t *testing.T) {
	axis := &JointAxis{J1: r3.Vec{Z: 1}, J2: r3.Vec{Z: 1}}
	_, err := IdentifyJointPosition(nil, axis, SolveOptions{})
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestIdentifyJointPosition_RecoversOffset(t *testing.T) {
	j := Spherical(0.2, 0.3)
	o1 := r3.Vec{X: 0.1, Y: -0.05, Z: 0.2}
	o2 := r3.Vec{X: -0.15, Y: 0.1, Z: -0.1}
	table := offsetHingeTable(t, j, o1, o2, 200)

	res, err := IdentifyJointPosition(table, &JointAxis{J1: j, J2: j}, SolveOptions{})
	require.NoError(t, err)

	assert.Less(t, res.Stats.RMS, 1e-4)

	// Only the axial component is free.
	assert.Less(t, r3.Norm(perpendicular(r3.Sub(res.O1, o1), j)), 1e-3, "o1 = %v", res.O1)
	assert.Less(t, r3.Norm(perpendicular(r3.Sub(res.O2, o2), j)), 1e-3, "o2 = %v", res.O2)

	// The shift centres the axial components on a common point.
	assert.InDelta(t, 0, r3.Dot(res.O1, j)+r3.Dot(res.O2, j), 1e-9)
}

func TestCalibrate(t *testing.T) {
	j := Spherical(0.2, 0.3)
	table := offsetHingeTable(t, j, r3.Vec{X: 0.1, Y: -0.05, Z: 0.2}, r3.Vec{X: -0.15, Y: 0.1, Z: -0.1}, 200)

	model, report, err := Calibrate(table, SolveOptions{})
	require.NoError(t, err)
	require.True(t, model.HasAxis())
	require.True(t, model.HasCenter())

	assert.Equal(t, 200, report.Samples)
	require.NotNil(t, report.Axis)
	require.NotNil(t, report.Position)
	assert.Equal(t, report.Axis.J1, model.Axis.J1)
	assert.Equal(t, report.Position.O2, model.Center.O2)
	assert.Greater(t, math.Abs(r3.Dot(model.Axis.J1, j)), 0.995)

	_, _, err = Calibrate(nil, SolveOptions{})
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestCalibrate_ResidualGates(t *testing.T) {
	j := Spherical(0.2, 0.3)
	table := offsetHingeTable(t, j, r3.Vec{X: 0.1, Y: -0.05, Z: 0.2}, r3.Vec{X: -0.15, Y: 0.1, Z: -0.1}, 200)
	// Accelerometer gain noise on sensor 1 leaves the gyro-only axis cost
	// untouched but no centre fits it exactly.
	for i := range table {
		ts := float64(i) * hingeDt
		table[i].A1 = r3.Scale(1+0.05*math.Sin(2.3*ts), table[i].A1)
	}

	t.Run("axis gate does not judge the position solve", func(t *testing.T) {
		model, report, err := Calibrate(table, SolveOptions{MaxAxisRMS: 1e-3})
		require.NoError(t, err)
		require.True(t, model.HasCenter())
		assert.Less(t, report.Axis.Stats.RMS, 1e-3)
		assert.Greater(t, report.Position.Stats.RMS, 1e-3, "position residual is above the axis gate")
	})

	t.Run("position gate keeps the axis", func(t *testing.T) {
		model, report, err := Calibrate(table, SolveOptions{MaxPositionRMS: 1e-3})
		require.ErrorIs(t, err, ErrPoorCalibration)
		assert.True(t, model.HasAxis())
		assert.False(t, model.HasCenter())
		require.NotNil(t, report.Position)
	})
}
