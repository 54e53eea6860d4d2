package jointangle

import (
	"errors"
	"fmt"
)

// JointModel is a calibrated hinge. Axis and Center are nil until identified.
// A model is not mutated after calibration; recalibrating produces a new one.
type JointModel struct {
	Axis   *JointAxis   `json:"axis,omitempty"`
	Center *JointCenter `json:"center,omitempty"`
}

// HasAxis reports whether j1 and j2 are known.
func (m JointModel) HasAxis() bool { return m.Axis != nil }

// HasCenter reports whether o1 and o2 are known.
func (m JointModel) HasCenter() bool { return m.Center != nil }

// CalibrationReport carries the per-solve diagnostics of Calibrate.
type CalibrationReport struct {
	Samples  int             `json:"samples"`
	Axis     *AxisResult     `json:"axis,omitempty"`
	Position *PositionResult `json:"position,omitempty"`
}

// Calibrate identifies the axis and then the joint centre from a table.
// When the position solve fails the model keeps the axis so callers can
// still run gyro-only estimation.
func Calibrate(table CalibrationTable, opts SolveOptions) (JointModel, CalibrationReport, error) {
	report := CalibrationReport{Samples: len(table)}

	axis, err := IdentifyJointAxis(table, opts)
	if err != nil {
		if errors.Is(err, ErrPoorCalibration) {
			report.Axis = &axis
		}
		return JointModel{}, report, fmt.Errorf("identify joint axis: %w", err)
	}
	report.Axis = &axis

	model := JointModel{Axis: &JointAxis{J1: axis.J1, J2: axis.J2}}

	pos, err := IdentifyJointPosition(table, model.Axis, opts)
	if err != nil {
		if errors.Is(err, ErrPoorCalibration) {
			report.Position = &pos
		}
		return model, report, fmt.Errorf("identify joint position: %w", err)
	}
	report.Position = &pos
	model.Center = &JointCenter{O1: pos.O1, O2: pos.O2}

	return model, report, nil
}
