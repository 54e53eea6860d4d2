// Package session runs one calibrate, measure and save cycle against a
// reading source.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/jointangle/internal/config"
	"github.com/banshee-data/jointangle/internal/gait"
	"github.com/banshee-data/jointangle/internal/jointangle"
	"github.com/banshee-data/jointangle/internal/monitoring"
	"github.com/banshee-data/jointangle/internal/source"
	"github.com/banshee-data/jointangle/internal/timeutil"
)

var ErrCalibrationFailed = errors.New("calibration failed: not enough valid packets")

const (
	calibrationIdle = 10 * time.Millisecond
	measureIdle     = 5 * time.Millisecond
	progressEvery   = 10
)

var logf = monitoring.Subsystem("session")

// Publisher receives live samples and calibration outcomes.
type Publisher interface {
	PublishAngle(s source.Sample) error
	PublishCalibration(c Calibration) error
}

// Calibration is the outcome of the calibration phase.
type Calibration struct {
	Samples int                          `json:"samples"`
	Model   jointangle.JointModel        `json:"model"`
	Report  jointangle.CalibrationReport `json:"report"`
}

// Measurement holds everything collected while measuring. Angles and Modes
// are parallel to Pairs; a nil angle means no estimate was possible.
type Measurement struct {
	Pairs  []jointangle.ReadingPair
	Angles []*float64
	Modes  []string
}

// Result summarizes a full run.
type Result struct {
	Files
	Calibrated  bool          `json:"calibrated"`
	Calibration *Calibration  `json:"calibration,omitempty"`
	Samples     int           `json:"samples"`
	Metrics     gait.Metrics  `json:"metrics"`
	Duration    time.Duration `json:"duration_ns"`
}

// Runner drives a source through a session. Source and Config are required;
// Clock defaults to the wall clock and Hub and Publisher are optional.
type Runner struct {
	Source    source.Source
	Clock     timeutil.Clock
	Config    *config.Config
	Hub       *source.Hub
	Publisher Publisher
}

func (r *Runner) clock() timeutil.Clock {
	if r.Clock == nil {
		return timeutil.RealClock{}
	}
	return r.Clock
}

func (r *Runner) config() *config.Config {
	if r.Config == nil {
		return config.Empty()
	}
	return r.Config
}

// Calibrate collects pairs until it has calibration_samples of them or the
// calibration timeout passes, then identifies the joint. When the position
// solve fails the axis-only model is returned along with the error.
func (r *Runner) Calibrate(ctx context.Context) (Calibration, error) {
	cfg := r.config()
	clock := r.clock()
	want := cfg.GetCalibrationSamples()
	timeout := cfg.GetCalibrationTimeout()

	logf("calibration: collecting %d samples from %s", want, r.Source)
	imu1 := make([]jointangle.IMUReading, 0, want)
	imu2 := make([]jointangle.IMUReading, 0, want)
	start := clock.Now()
	for len(imu1) < want && clock.Since(start) < timeout {
		if ctx.Err() != nil {
			return Calibration{}, ctx.Err()
		}
		pair, ok := r.Source.Read(ctx)
		if !ok {
			if err := timeutil.Sleep(ctx, clock, calibrationIdle); err != nil {
				return Calibration{}, err
			}
			continue
		}
		imu1 = append(imu1, pair.IMU1)
		imu2 = append(imu2, pair.IMU2)
		if len(imu1)%progressEvery == 0 {
			logf("calibration: collected %d/%d", len(imu1), want)
		}
	}

	cal := Calibration{Samples: len(imu1)}
	if n := len(imu1); n < cfg.GetMinCalibrationSamples() {
		return cal, fmt.Errorf("%w: got %d, need %d", ErrCalibrationFailed, n, cfg.GetMinCalibrationSamples())
	}

	table, err := jointangle.BuildCalibrationTable(imu1, imu2, cfg.GetSampleInterval())
	if err != nil {
		return cal, fmt.Errorf("build calibration table: %w", err)
	}

	logf("calibration: identifying joint axis and position")
	model, report, err := jointangle.Calibrate(table, cfg.SolveOptions())
	cal.Model, cal.Report = model, report
	if err != nil {
		return cal, err
	}

	if r.Publisher != nil {
		if err := r.Publisher.PublishCalibration(cal); err != nil {
			logf("publish calibration: %v", err)
		}
	}
	return cal, nil
}

// Measure records pairs until duration passes or ctx is done. Angles come
// from the calibrated estimator and fall back to the accelerometer angle
// when there is no axis or the estimator fails. A cancelled ctx still
// returns what was collected.
func (r *Runner) Measure(ctx context.Context, cal *Calibration, duration time.Duration) (Measurement, error) {
	cfg := r.config()
	clock := r.clock()
	rate := cfg.GetSamplingRate()

	var est *jointangle.Session
	if cal != nil && cal.Model.HasAxis() {
		est = jointangle.NewSession(cal.Model, cfg.FilterParams())
	}

	logf("measurement: recording %s from %s", duration, r.Source)
	var m Measurement
	start := clock.Now()
	for clock.Since(start) < duration {
		if ctx.Err() != nil {
			logf("measurement interrupted after %d samples", len(m.Pairs))
			return m, ctx.Err()
		}
		if pair, ok := r.Source.Read(ctx); ok {
			angle, mode := estimate(est, pair)
			m.Pairs = append(m.Pairs, pair)
			m.Angles = append(m.Angles, angle)
			m.Modes = append(m.Modes, mode)
			r.publish(source.Sample{T: float64(len(m.Pairs)-1) / rate, Angle: angle, Mode: mode})
		}
		if err := timeutil.Sleep(ctx, clock, measureIdle); err != nil {
			logf("measurement interrupted after %d samples", len(m.Pairs))
			return m, err
		}
	}
	logf("measurement: %d samples", len(m.Pairs))
	return m, nil
}

func estimate(est *jointangle.Session, pair jointangle.ReadingPair) (*float64, string) {
	if est != nil {
		res, err := est.Update(pair)
		if err == nil {
			if math.IsNaN(res.Angle) || math.IsInf(res.Angle, 0) {
				return nil, res.Mode.String()
			}
			return &res.Angle, res.Mode.String()
		}
		logf("estimator: %v", err)
	}
	if a, ok := gait.AccelAngle(pair); ok {
		return &a, "accel"
	}
	return nil, "none"
}

func (r *Runner) publish(s source.Sample) {
	if r.Hub != nil {
		r.Hub.Publish(s)
	}
	if r.Publisher != nil {
		if err := r.Publisher.PublishAngle(s); err != nil {
			logf("publish angle: %v", err)
		}
	}
}

// Run calibrates, measures for the configured duration, saves the recording
// under dir and computes the gait metrics. A failed calibration is logged and
// the run continues with whatever model was identified.
func (r *Runner) Run(ctx context.Context, dir, prefix string) (Result, error) {
	clock := r.clock()
	began := clock.Now()

	var res Result
	cal, err := r.Calibrate(ctx)
	switch {
	case ctx.Err() != nil:
		return res, ctx.Err()
	case err != nil:
		logf("calibration incomplete, continuing: %v", err)
	}
	res.Calibration = &cal
	res.Calibrated = cal.Model.HasAxis()

	m, measureErr := r.Measure(ctx, &cal, r.config().GetMeasurementDuration())
	res.Samples = len(m.Pairs)

	files, err := Save(dir, prefix, m, r.config().GetSamplingRate())
	if err != nil {
		return res, err
	}
	res.Files = files
	res.Metrics = gait.ComputeStreamMetrics(m.Pairs, r.config().GaitOptions())
	res.Duration = clock.Since(began)
	return res, measureErr
}
