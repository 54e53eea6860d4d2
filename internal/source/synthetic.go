package source

import (
	"context"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/jointangle/internal/jointangle"
	"github.com/banshee-data/jointangle/internal/timeutil"
)

const (
	gravity   = 9.81
	stepDiffH = 1e-4
)

// SyntheticOptions shape the simulated knee.
type SyntheticOptions struct {
	// Axis is the hinge direction in both sensor frames. Zero selects a
	// slightly tilted mediolateral axis.
	Axis r3.Vec
	// O1 and O2 place each sensor relative to the joint centre, in metres.
	O1, O2 r3.Vec
	// Interval is the simulated sample spacing. Zero means 100ms.
	Interval time.Duration
	// AmplitudeDeg and PeriodS describe the flexion cycle.
	AmplitudeDeg float64
	PeriodS      float64
	// Pace makes Read wait Interval on the source clock before each sample.
	Pace bool
}

func (o SyntheticOptions) withDefaults() SyntheticOptions {
	if o.Axis == (r3.Vec{}) {
		o.Axis = jointangle.Spherical(0.2, 0.3)
	}
	o.Axis = r3.Unit(o.Axis)
	if o.O1 == (r3.Vec{}) && o.O2 == (r3.Vec{}) {
		o.O1 = r3.Vec{X: 0.1, Y: -0.05, Z: 0.2}
		o.O2 = r3.Vec{X: -0.15, Y: 0.1, Z: -0.1}
	}
	if o.Interval <= 0 {
		o.Interval = 100 * time.Millisecond
	}
	if o.AmplitudeDeg == 0 {
		o.AmplitudeDeg = 30
	}
	if o.PeriodS <= 0 {
		o.PeriodS = 1.1
	}
	return o
}

// SyntheticSource simulates a thigh and shank pair rotating about a hinge.
// It needs no hardware and drives demos, mock runs and tests.
type SyntheticSource struct {
	opts  SyntheticOptions
	clock timeutil.Clock

	mu sync.Mutex
	n  int

	counters
}

// NewSyntheticSource returns a simulator.
func NewSyntheticSource(opts SyntheticOptions) *SyntheticSource {
	return &SyntheticSource{opts: opts.withDefaults(), clock: timeutil.RealClock{}}
}

// WithClock sets the clock used when pacing.
func (s *SyntheticSource) WithClock(c timeutil.Clock) *SyntheticSource {
	s.clock = c
	return s
}

func (s *SyntheticSource) String() string { return "synthetic" }

// Model returns the hinge being simulated.
func (s *SyntheticSource) Model() jointangle.JointModel {
	return jointangle.JointModel{
		Axis:   &jointangle.JointAxis{J1: s.opts.Axis, J2: s.opts.Axis},
		Center: &jointangle.JointCenter{O1: s.opts.O1, O2: s.opts.O2},
	}
}

// Flexion returns the simulated joint angle in degrees at time t.
func (s *SyntheticSource) Flexion(t float64) float64 {
	return s.opts.AmplitudeDeg * math.Sin(2*math.Pi*t/s.opts.PeriodS)
}

func (s *SyntheticSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.n = 0
	s.mu.Unlock()
	s.connected.Store(true)
	return ctx.Err()
}

// Read produces the next sample.
func (s *SyntheticSource) Read(ctx context.Context) (jointangle.ReadingPair, bool) {
	if !s.connected.Load() {
		return jointangle.ReadingPair{}, false
	}
	if s.opts.Pace {
		if err := timeutil.Sleep(ctx, s.clock, s.opts.Interval); err != nil {
			return jointangle.ReadingPair{}, false
		}
	}

	s.mu.Lock()
	t := float64(s.n) * s.opts.Interval.Seconds()
	s.n++
	s.mu.Unlock()

	s.frames.Add(1)
	s.pairs.Add(1)
	return s.sample(t), true
}

func (s *SyntheticSource) Close() error {
	s.connected.Store(false)
	return nil
}

// flexion in radians.
func (s *SyntheticSource) q(t float64) float64 {
	return s.Flexion(t) * math.Pi / 180
}

// thigh is the proximal angular velocity in its own frame.
func (s *SyntheticSource) thigh(t float64) r3.Vec {
	return r3.Vec{
		X: 0.6*math.Sin(0.9*t) + 0.2,
		Y: 0.4 * math.Cos(1.7*t),
		Z: 0.3 * math.Sin(2.3*t+0.4),
	}
}

// shank is the distal angular velocity in its own frame: the thigh rate seen
// through the flexion rotation plus the flexion rate about the axis.
func (s *SyntheticSource) shank(t float64) r3.Vec {
	j := s.opts.Axis
	dq := (s.q(t+stepDiffH) - s.q(t-stepDiffH)) / (2 * stepDiffH)
	return r3.Add(rotate(s.thigh(t), j, -s.q(t)), r3.Scale(dq, j))
}

func (s *SyntheticSource) sample(t float64) jointangle.ReadingPair {
	j := s.opts.Axis
	w1, w2 := s.thigh(t), s.shank(t)
	dw1 := derivative(s.thigh, t)
	dw2 := derivative(s.shank, t)

	down := r3.Vec{Z: gravity}
	a1 := r3.Add(down, jointangle.Gamma(w1, dw1, s.opts.O1))
	a2 := r3.Add(rotate(down, j, -s.q(t)), jointangle.Gamma(w2, dw2, s.opts.O2))

	return jointangle.ReadingPair{IMU1: reading(a1, w1), IMU2: reading(a2, w2)}
}

func reading(a, g r3.Vec) jointangle.IMUReading {
	return jointangle.IMUReading{Ax: a.X, Ay: a.Y, Az: a.Z, Gx: g.X, Gy: g.Y, Gz: g.Z}
}

func derivative(f func(float64) r3.Vec, t float64) r3.Vec {
	return r3.Scale(1/(2*stepDiffH), r3.Sub(f(t+stepDiffH), f(t-stepDiffH)))
}

// rotate turns v by angle about the unit axis k (Rodrigues).
func rotate(v, k r3.Vec, angle float64) r3.Vec {
	c, sn := math.Cos(angle), math.Sin(angle)
	out := r3.Scale(c, v)
	out = r3.Add(out, r3.Scale(sn, r3.Cross(k, v)))
	return r3.Add(out, r3.Scale(r3.Dot(k, v)*(1-c), k))
}
