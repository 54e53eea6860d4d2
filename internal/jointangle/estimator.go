package jointangle

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultSampleInterval = 0.1
	DefaultFilterLambda   = 0.01
)

// AngleMode tags which branch produced an angle.
type AngleMode int

const (
	// ModeGyroOnly integrates the relative angular velocity; no joint centre.
	ModeGyroOnly AngleMode = iota
	// ModeFused blends the accelerometer angle into the gyro increment.
	ModeFused
	// ModeFrozen is ModeFused with a near-zero acceleration projection; the
	// previous fused angle stands in for the accelerometer angle.
	ModeFrozen
)

func (m AngleMode) String() string {
	switch m {
	case ModeGyroOnly:
		return "gyro"
	case ModeFused:
		return "fused"
	case ModeFrozen:
		return "frozen"
	}
	return "unknown"
}

func (m AngleMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// FilterParams are the fixed complementary filter settings.
type FilterParams struct {
	Dt            float64
	Lambda        float64
	MinProjection float64
}

// DefaultFilterParams returns dt 0.1 s, lambda 0.01 and the degenerate
// projection threshold.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		Dt:            DefaultSampleInterval,
		Lambda:        DefaultFilterLambda,
		MinProjection: DegenerateNorm,
	}
}

// FilterState is the recursive state carried between samples. The zero value
// is the initial state.
type FilterState struct {
	PrevGyro  float64 `json:"prev_gyro"`
	PrevFused float64 `json:"prev_fused"`
}

// AngleResult is one estimator output.
type AngleResult struct {
	Angle      float64   `json:"angle"`
	GyroAngle  float64   `json:"gyro_angle"`
	AccelAngle float64   `json:"accel_angle"`
	Mode       AngleMode `json:"mode"`
}

// CalculateAngle advances the filter by one reading pair and returns the new
// angle together with the next state. The gyro term integrates
// (g1·j1 - g2·j2)·dt. When the joint centre is known the accelerometer angle
// is taken from the centripetal corrected accelerations, with angular
// acceleration treated as zero.
func CalculateAngle(model JointModel, params FilterParams, state FilterState, pair ReadingPair) (AngleResult, FilterState, error) {
	if !model.HasAxis() {
		return AngleResult{}, state, ErrAxisNotSet
	}
	j1, j2 := model.Axis.J1, model.Axis.J2
	g1, g2 := pair.IMU1.Gyro(), pair.IMU2.Gyro()

	gyro := state.PrevGyro + (r3.Dot(g1, j1)-r3.Dot(g2, j2))*params.Dt
	res := AngleResult{GyroAngle: gyro, Mode: ModeGyroOnly, Angle: gyro}

	if model.HasCenter() {
		var zero r3.Vec
		c1 := r3.Sub(pair.IMU1.Accel(), Gamma(g1, zero, model.Center.O1))
		c2 := r3.Sub(pair.IMU2.Accel(), Gamma(g2, zero, model.Center.O2))

		x1, y1 := JointPlaneBasis(j1).Project(c1)
		x2, y2 := JointPlaneBasis(j2).Project(c2)

		if math.Hypot(x1, y1) > params.MinProjection && math.Hypot(x2, y2) > params.MinProjection {
			res.AccelAngle = degrees(math.Atan2(y1, x1) - math.Atan2(y2, x2))
			res.Mode = ModeFused
		} else {
			res.AccelAngle = state.PrevFused
			res.Mode = ModeFrozen
		}
		res.Angle = params.Lambda*res.AccelAngle +
			(1-params.Lambda)*(state.PrevFused+gyro-state.PrevGyro)
	}

	return res, FilterState{PrevGyro: gyro, PrevFused: res.Angle}, nil
}

// Session owns the filter state of one measurement stream. Readings must be
// fed in time order, once per physical sample. A Session is not safe for
// concurrent use.
type Session struct {
	model  JointModel
	params FilterParams
	state  FilterState
}

// NewSession starts a session with zeroed state.
func NewSession(model JointModel, params FilterParams) *Session {
	return &Session{model: model, params: params}
}

// Update processes the next pair. On error the state is left unchanged.
func (s *Session) Update(pair ReadingPair) (AngleResult, error) {
	res, next, err := CalculateAngle(s.model, s.params, s.state, pair)
	if err != nil {
		return AngleResult{}, err
	}
	s.state = next
	return res, nil
}

func (s *Session) State() FilterState { return s.state }
func (s *Session) Model() JointModel  { return s.model }

// Reset zeroes the filter state.
func (s *Session) Reset() { s.state = FilterState{} }
