package jointangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func zAxisModel(withCenter bool) JointModel {
	m := JointModel{Axis: &JointAxis{J1: r3.Vec{Z: 1}, J2: r3.Vec{Z: 1}}}
	if withCenter {
		m.Center = &JointCenter{}
	}
	return m
}

func TestCalculateAngle_RequiresAxis(t *testing.T) {
	state := FilterState{PrevGyro: 1, PrevFused: 2}
	_, next, err := CalculateAngle(JointModel{}, DefaultFilterParams(), state, ReadingPair{})
	require.ErrorIs(t, err, ErrAxisNotSet)
	assert.Equal(t, state, next)
}

func TestCalculateAngle_GyroOnlyIntegrates(t *testing.T) {
	const omega = 0.7
	params := DefaultFilterParams()
	s := NewSession(zAxisModel(false), params)

	pair := ReadingPair{IMU1: IMUReading{Gz: omega}, IMU2: IMUReading{Gz: 0}}
	var last AngleResult
	for range 25 {
		var err error
		last, err = s.Update(pair)
		require.NoError(t, err)
		assert.Equal(t, ModeGyroOnly, last.Mode)
	}
	assert.InDelta(t, 25*omega*params.Dt, last.Angle, 1e-12)
	assert.Equal(t, last.Angle, s.State().PrevGyro)
	assert.Equal(t, last.Angle, s.State().PrevFused)
}

func TestCalculateAngle_RelativeRate(t *testing.T) {
	params := DefaultFilterParams()
	pair := ReadingPair{IMU1: IMUReading{Gz: 2}, IMU2: IMUReading{Gz: 0.5}}
	res, _, err := CalculateAngle(zAxisModel(false), params, FilterState{PrevGyro: 1}, pair)
	require.NoError(t, err)
	assert.InDelta(t, 1+1.5*params.Dt, res.Angle, 1e-12)
}

func TestCalculateAngle_Fused(t *testing.T) {
	params := DefaultFilterParams()
	// For axis z the plane basis is x=[0,1,0], y=[-1,0,0]: a1 projects to
	// -90 degrees and a2 to 0 degrees.
	pair := ReadingPair{IMU1: IMUReading{Ax: 1}, IMU2: IMUReading{Ay: 1}}

	res, next, err := CalculateAngle(zAxisModel(true), params, FilterState{}, pair)
	require.NoError(t, err)
	assert.Equal(t, ModeFused, res.Mode)
	assert.InDelta(t, -90, res.AccelAngle, 1e-9)
	assert.InDelta(t, -0.9, res.Angle, 1e-9)
	assert.Equal(t, FilterState{PrevGyro: 0, PrevFused: res.Angle}, next)
}

func TestCalculateAngle_FusedBlend(t *testing.T) {
	params := DefaultFilterParams()
	state := FilterState{PrevGyro: 4, PrevFused: 30}
	pair := ReadingPair{
		IMU1: IMUReading{Ax: 1, Gz: 1},
		IMU2: IMUReading{Ay: 1},
	}
	res, next, err := CalculateAngle(zAxisModel(true), params, state, pair)
	require.NoError(t, err)

	gyro := 4 + params.Dt
	want := params.Lambda*res.AccelAngle + (1-params.Lambda)*(30+gyro-4)
	assert.InDelta(t, gyro, res.GyroAngle, 1e-12)
	assert.InDelta(t, want, res.Angle, 1e-12)
	assert.Equal(t, gyro, next.PrevGyro)
}

func TestCalculateAngle_FreezesOnDegenerateProjection(t *testing.T) {
	params := DefaultFilterParams()
	state := FilterState{PrevGyro: 3, PrevFused: 12.5}

	tests := []struct {
		name string
		pair ReadingPair
	}{
		{"no acceleration", ReadingPair{}},
		{"acceleration along the axis", ReadingPair{IMU1: IMUReading{Az: 9.81}, IMU2: IMUReading{Ax: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, next, err := CalculateAngle(zAxisModel(true), params, state, tt.pair)
			require.NoError(t, err)
			assert.Equal(t, ModeFrozen, res.Mode)
			assert.Equal(t, 12.5, res.AccelAngle)
			assert.InDelta(t, 12.5, res.Angle, 1e-12)
			assert.InDelta(t, 12.5, next.PrevFused, 1e-12)
		})
	}
}

func TestCalculateAngle_CentripetalCorrection(t *testing.T) {
	params := DefaultFilterParams()
	model := zAxisModel(true)
	model.Center = &JointCenter{O1: r3.Vec{X: 0.5}, O2: r3.Vec{X: 0.5}}

	// The accelerometer reads exactly the centripetal term, so the corrected
	// signal is zero and the filter freezes.
	g := r3.Vec{Z: 2}
	a := Gamma(g, r3.Vec{}, model.Center.O1)
	pair := ReadingPair{
		IMU1: IMUReading{Ax: a.X, Ay: a.Y, Az: a.Z, Gz: g.Z},
		IMU2: IMUReading{Ax: a.X, Ay: a.Y, Az: a.Z, Gz: g.Z},
	}
	res, _, err := CalculateAngle(model, params, FilterState{PrevFused: 7}, pair)
	require.NoError(t, err)
	assert.Equal(t, ModeFrozen, res.Mode)
	assert.InDelta(t, 7, res.Angle, 1e-12)
}

func TestSession(t *testing.T) {
	s := NewSession(zAxisModel(false), DefaultFilterParams())
	_, err := s.Update(ReadingPair{IMU1: IMUReading{Gz: 1}})
	require.NoError(t, err)
	assert.NotZero(t, s.State().PrevGyro)
	assert.True(t, s.Model().HasAxis())

	s.Reset()
	assert.Equal(t, FilterState{}, s.State())

	bad := NewSession(JointModel{}, DefaultFilterParams())
	_, err = bad.Update(ReadingPair{})
	assert.ErrorIs(t, err, ErrAxisNotSet)
	assert.Equal(t, FilterState{}, bad.State())
}

func TestAngleModeText(t *testing.T) {
	for mode, want := range map[AngleMode]string{ModeGyroOnly: "gyro", ModeFused: "fused", ModeFrozen: "frozen"} {
		b, err := mode.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}
