package jointangle

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/banshee-data/jointangle/internal/monitoring"
)

// DefaultMaxIterations bounds each BFGS solve.
const DefaultMaxIterations = 200

const gradientThreshold = 1e-12

var logf = monitoring.Subsystem("solver")

// ErrPoorCalibration is returned when a solve ends above its residual gate
// in SolveOptions. The result is still returned alongside the error.
var ErrPoorCalibration = errors.New("calibration residual above threshold")

// SolveOptions controls the nonlinear solves.
type SolveOptions struct {
	// MaxIterations is the BFGS major iteration budget. Zero means
	// DefaultMaxIterations.
	MaxIterations int

	// MaxAxisRMS and MaxPositionRMS reject solutions whose per-sample RMS
	// residual exceeds them. The axis residual is in gyro units and the
	// position residual in accelerometer units, so each solve has its own
	// gate. Zero disables a gate and any local optimum is accepted.
	MaxAxisRMS     float64
	MaxPositionRMS float64
}

func (o SolveOptions) maxIterations() int {
	if o.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return o.MaxIterations
}

// SolveStats summarizes how a solve terminated.
type SolveStats struct {
	Cost        float64 `json:"cost"`
	RMS         float64 `json:"rms"`
	Iterations  int     `json:"iterations"`
	Evaluations int     `json:"evaluations"`
	Status      string  `json:"status"`
	Converged   bool    `json:"converged"`
}

// minimize runs BFGS from x0 with a central-difference gradient. Line search
// failures are logged and the last location is kept; only a missing result
// is an error.
func minimize(name string, cost func([]float64) float64, x0 []float64, n int, opts SolveOptions, maxRMS float64) ([]float64, SolveStats, error) {
	problem := optimize.Problem{
		Func: cost,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, cost, x, &fd.Settings{Formula: fd.Central})
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   opts.maxIterations(),
		GradientThreshold: gradientThreshold,
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if result == nil {
		return nil, SolveStats{}, fmt.Errorf("%s solve failed: %w", name, err)
	}
	if err != nil {
		logf("%s: accepting last location after %v", name, err)
	}

	stats := SolveStats{
		Cost:        result.F,
		Iterations:  result.Stats.MajorIterations,
		Evaluations: result.Stats.FuncEvaluations,
		Status:      result.Status.String(),
		Converged:   converged(result.Status),
	}
	if n > 0 {
		stats.RMS = math.Sqrt(result.F / float64(n))
	}
	logf("%s: cost=%.6g rms=%.6g iterations=%d status=%s",
		name, stats.Cost, stats.RMS, stats.Iterations, stats.Status)

	if maxRMS > 0 && stats.RMS > maxRMS {
		return result.X, stats, fmt.Errorf("%w: %s rms %.6g > %.6g", ErrPoorCalibration, name, stats.RMS, maxRMS)
	}
	return result.X, stats, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}
