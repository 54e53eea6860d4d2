// Package gait derives step events and summary statistics from a recorded
// batch of reading pairs.
package gait

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/jointangle/internal/jointangle"
)

const (
	DefaultSamplingRate     = 10.0
	DefaultStepHeightFactor = 0.6
	DefaultMinStepSeconds   = 0.25

	// minAccelNorm is the acceleration magnitude below which the fallback
	// angle is undefined.
	minAccelNorm = 1e-9
)

// Options tunes ComputeStreamMetrics. Zero fields take the defaults.
type Options struct {
	SamplingRate     float64
	StepHeightFactor float64
	MinStepSeconds   float64
}

func (o Options) withDefaults() Options {
	if o.SamplingRate <= 0 {
		o.SamplingRate = DefaultSamplingRate
	}
	if o.StepHeightFactor == 0 {
		o.StepHeightFactor = DefaultStepHeightFactor
	}
	if o.MinStepSeconds <= 0 {
		o.MinStepSeconds = DefaultMinStepSeconds
	}
	return o
}

// Metrics summarizes a recording. Nil pointers encode as JSON null.
type Metrics struct {
	Times         []float64  `json:"times"`
	Angles        []*float64 `json:"angles"`
	GyroNorms     []float64  `json:"gyro_norms"`
	StepTimes     []float64  `json:"step_times"`
	DetectedSteps int        `json:"detected_steps"`
	MeanStepTime  *float64   `json:"mean_step_time_s"`
	Cadence       *float64   `json:"cadence_spm"`
	MeanAngle     *float64   `json:"mean_knee_angle_deg"`
	StdAngle      *float64   `json:"std_knee_angle_deg"`
	PeakAngle     *float64   `json:"peak_knee_angle_deg"`
}

// IsEmpty reports whether the metrics were computed from no samples.
func (m Metrics) IsEmpty() bool { return len(m.Times) == 0 }

// AccelAngle is the angle in degrees between the raw acceleration vectors of
// both sensors. It is used when no calibrated model is available. ok is
// false when either vector is near zero.
func AccelAngle(p jointangle.ReadingPair) (angle float64, ok bool) {
	a1, a2 := p.IMU1.Accel(), p.IMU2.Accel()
	n1, n2 := r3.Norm(a1), r3.Norm(a2)
	if n1 < minAccelNorm || n2 < minAccelNorm {
		return 0, false
	}
	cos := math.Max(-1, math.Min(1, r3.Dot(a1, a2)/(n1*n2)))
	return math.Acos(cos) * 180 / math.Pi, true
}

// GyroNorm is the angular speed of one sensor.
func GyroNorm(r jointangle.IMUReading) float64 {
	return r3.Norm(r.Gyro())
}

// ComputeStreamMetrics detects steps as peaks of the IMU2 gyro magnitude
// above mean + k·std, at least MinStepSeconds apart, and summarizes the
// fallback accelerometer angle over the samples where it is defined.
func ComputeStreamMetrics(pairs []jointangle.ReadingPair, opts Options) Metrics {
	if len(pairs) == 0 {
		return Metrics{}
	}
	opts = opts.withDefaults()
	fs := opts.SamplingRate

	m := Metrics{
		Times:     make([]float64, len(pairs)),
		Angles:    make([]*float64, len(pairs)),
		GyroNorms: make([]float64, len(pairs)),
	}
	var valid []float64
	for i, p := range pairs {
		m.Times[i] = float64(i) / fs
		if a, ok := AccelAngle(p); ok {
			m.Angles[i] = &a
			valid = append(valid, a)
		}
		m.GyroNorms[i] = GyroNorm(p.IMU2)
	}

	minDist := max(1, int(opts.MinStepSeconds*fs))
	peaks := FindPeaks(m.GyroNorms, Threshold(m.GyroNorms, opts.StepHeightFactor), minDist)
	m.StepTimes = make([]float64, len(peaks))
	for i, p := range peaks {
		m.StepTimes[i] = float64(p) / fs
	}
	m.DetectedSteps = len(peaks)

	if len(m.StepTimes) >= 2 {
		intervals := make([]float64, len(m.StepTimes)-1)
		for i := range intervals {
			intervals[i] = m.StepTimes[i+1] - m.StepTimes[i]
		}
		mean := stat.Mean(intervals, nil)
		m.MeanStepTime = &mean
		if mean > 0 {
			cadence := 60 / mean
			m.Cadence = &cadence
		}
	}

	if len(valid) > 0 {
		mean, std := popMeanStd(valid)
		peak := floats.Max(valid)
		m.MeanAngle, m.StdAngle, m.PeakAngle = &mean, &std, &peak
	}
	return m
}

func popMeanStd(x []float64) (mean, std float64) {
	return stat.PopMeanStdDev(x, nil)
}
