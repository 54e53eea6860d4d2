package gait

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/jointangle/internal/jointangle"
)

func TestAccelAngle(t *testing.T) {
	tests := []struct {
		name   string
		a1, a2 jointangle.IMUReading
		want   float64
		ok     bool
	}{
		{"parallel", jointangle.IMUReading{Az: 9.8}, jointangle.IMUReading{Az: 1}, 0, true},
		{"perpendicular", jointangle.IMUReading{Ax: 1}, jointangle.IMUReading{Ay: 2}, 90, true},
		{"opposite", jointangle.IMUReading{Ax: 1}, jointangle.IMUReading{Ax: -3}, 180, true},
		{"zero vector", jointangle.IMUReading{}, jointangle.IMUReading{Ax: 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AccelAngle(jointangle.ReadingPair{IMU1: tt.a1, IMU2: tt.a2})
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}

	// Rounding past 1 must not produce NaN.
	got, ok := AccelAngle(jointangle.ReadingPair{
		IMU1: jointangle.IMUReading{Ax: 0.1, Ay: 0.2, Az: 0.3},
		IMU2: jointangle.IMUReading{Ax: 0.1, Ay: 0.2, Az: 0.3},
	})
	require.True(t, ok)
	assert.False(t, math.IsNaN(got))
}

func pulsePairs(n int, pulses []int) []jointangle.ReadingPair {
	pairs := make([]jointangle.ReadingPair, n)
	for i := range pairs {
		pairs[i] = jointangle.ReadingPair{
			IMU1: jointangle.IMUReading{Az: 9.81},
			IMU2: jointangle.IMUReading{Ax: 9.81},
		}
	}
	for _, i := range pulses {
		pairs[i].IMU2.Gx = 3
		pairs[i].IMU2.Gy = 4
	}
	return pairs
}

func TestComputeStreamMetrics_Steps(t *testing.T) {
	// 10 Hz, one pulse per second.
	pairs := pulsePairs(60, []int{5, 15, 25, 35, 45})
	m := ComputeStreamMetrics(pairs, Options{})

	assert.Equal(t, 5, m.DetectedSteps)
	assert.Equal(t, []float64{0.5, 1.5, 2.5, 3.5, 4.5}, m.StepTimes)
	require.NotNil(t, m.MeanStepTime)
	require.NotNil(t, m.Cadence)
	assert.InDelta(t, 1.0, *m.MeanStepTime, 1e-12)
	assert.InDelta(t, 60.0, *m.Cadence, 1e-9)

	assert.Len(t, m.Times, 60)
	assert.InDelta(t, 5.9, m.Times[59], 1e-12)
	assert.Equal(t, 5.0, m.GyroNorms[15])

	require.NotNil(t, m.MeanAngle)
	assert.InDelta(t, 90, *m.MeanAngle, 1e-9)
	assert.InDelta(t, 0, *m.StdAngle, 1e-9)
	assert.InDelta(t, 90, *m.PeakAngle, 1e-9)
}

func TestComputeStreamMetrics_CadenceFollowsSpacing(t *testing.T) {
	pairs := pulsePairs(100, []int{10, 30, 50, 70, 90})
	m := ComputeStreamMetrics(pairs, Options{SamplingRate: 20})

	assert.Equal(t, 5, m.DetectedSteps)
	require.NotNil(t, m.Cadence)
	assert.InDelta(t, 60.0, *m.Cadence, 1e-9)

	m = ComputeStreamMetrics(pairs, Options{SamplingRate: 10})
	require.NotNil(t, m.Cadence)
	assert.InDelta(t, 30.0, *m.Cadence, 1e-9)
}

func TestComputeStreamMetrics_SingleStep(t *testing.T) {
	m := ComputeStreamMetrics(pulsePairs(30, []int{12}), Options{})
	assert.Equal(t, 1, m.DetectedSteps)
	assert.Nil(t, m.MeanStepTime)
	assert.Nil(t, m.Cadence)
}

func TestComputeStreamMetrics_NullAngles(t *testing.T) {
	pairs := pulsePairs(4, nil)
	pairs[1].IMU1 = jointangle.IMUReading{}
	pairs[2].IMU1 = jointangle.IMUReading{Ax: 9.81}

	m := ComputeStreamMetrics(pairs, Options{})
	assert.Nil(t, m.Angles[1])
	require.NotNil(t, m.Angles[2])
	assert.InDelta(t, 0, *m.Angles[2], 1e-9)

	// mean over {90, 0, 90}
	require.NotNil(t, m.MeanAngle)
	assert.InDelta(t, 60, *m.MeanAngle, 1e-9)
	assert.InDelta(t, 90, *m.PeakAngle, 1e-9)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"angles":[90,null,0,90]`)
}

func TestComputeStreamMetrics_NoValidAngles(t *testing.T) {
	pairs := make([]jointangle.ReadingPair, 3)
	m := ComputeStreamMetrics(pairs, Options{})
	assert.Nil(t, m.MeanAngle)
	assert.Nil(t, m.StdAngle)
	assert.Nil(t, m.PeakAngle)
	assert.Equal(t, 0, m.DetectedSteps)
}

func TestComputeStreamMetrics_Empty(t *testing.T) {
	m := ComputeStreamMetrics(nil, Options{})
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Metrics{}, m)
}
