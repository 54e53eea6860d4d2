package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/jointangle/internal/gait"
	"github.com/banshee-data/jointangle/internal/jointangle"
)

// DefaultConfigPath is the canonical defaults file.
const DefaultConfigPath = "config/jointangle.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config holds the estimator, session and transport settings. Every field is
// optional; the Get* accessors supply defaults so partial files are safe.
type Config struct {
	// Estimator
	SampleIntervalS     *float64 `json:"sample_interval_s,omitempty"`
	FilterLambda        *float64 `json:"filter_lambda,omitempty"`
	MinProjectionNorm   *float64 `json:"min_projection_norm,omitempty"`
	SolverMaxIterations *int     `json:"solver_max_iterations,omitempty"`
	MaxAxisRMS          *float64 `json:"max_axis_rms,omitempty"` // 0 accepts any optimum
	MaxPositionRMS      *float64 `json:"max_position_rms,omitempty"`

	// Calibration and measurement phases
	CalibrationSamples    *int     `json:"calibration_samples,omitempty"`
	CalibrationTimeoutS   *float64 `json:"calibration_timeout_s,omitempty"`
	MinCalibrationSamples *int     `json:"min_calibration_samples,omitempty"`
	MeasurementDurationS  *float64 `json:"measurement_duration_s,omitempty"`

	// Metrics
	SamplingRateHz   *float64 `json:"sampling_rate_hz,omitempty"`
	StepHeightFactor *float64 `json:"step_height_factor,omitempty"`
	MinStepS         *float64 `json:"min_step_s,omitempty"`

	// Transport
	ESPPort      *int     `json:"esp_port,omitempty"`
	ReadTimeoutS *float64 `json:"read_timeout_s,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config { return &Config{} }

// LoadConfig reads a JSON config file. The path must end in .json and the
// file must be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory
// or one of its parents. It panics when the file is not found and is meant
// for tests and the dev binary.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	if c.SampleIntervalS != nil && *c.SampleIntervalS <= 0 {
		return fmt.Errorf("sample_interval_s must be positive, got %f", *c.SampleIntervalS)
	}
	if c.FilterLambda != nil && (*c.FilterLambda < 0 || *c.FilterLambda > 1) {
		return fmt.Errorf("filter_lambda must be between 0 and 1, got %f", *c.FilterLambda)
	}
	if c.MinProjectionNorm != nil && *c.MinProjectionNorm < 0 {
		return fmt.Errorf("min_projection_norm must be non-negative, got %g", *c.MinProjectionNorm)
	}
	if c.SolverMaxIterations != nil && *c.SolverMaxIterations <= 0 {
		return fmt.Errorf("solver_max_iterations must be positive, got %d", *c.SolverMaxIterations)
	}
	if c.MaxAxisRMS != nil && *c.MaxAxisRMS < 0 {
		return fmt.Errorf("max_axis_rms must be non-negative, got %f", *c.MaxAxisRMS)
	}
	if c.MaxPositionRMS != nil && *c.MaxPositionRMS < 0 {
		return fmt.Errorf("max_position_rms must be non-negative, got %f", *c.MaxPositionRMS)
	}
	if c.CalibrationSamples != nil && *c.CalibrationSamples <= 0 {
		return fmt.Errorf("calibration_samples must be positive, got %d", *c.CalibrationSamples)
	}
	if c.MinCalibrationSamples != nil && *c.MinCalibrationSamples <= 0 {
		return fmt.Errorf("min_calibration_samples must be positive, got %d", *c.MinCalibrationSamples)
	}
	if c.GetMinCalibrationSamples() > c.GetCalibrationSamples() {
		return fmt.Errorf("min_calibration_samples (%d) exceeds calibration_samples (%d)",
			c.GetMinCalibrationSamples(), c.GetCalibrationSamples())
	}
	for name, v := range map[string]*float64{
		"calibration_timeout_s":  c.CalibrationTimeoutS,
		"measurement_duration_s": c.MeasurementDurationS,
		"sampling_rate_hz":       c.SamplingRateHz,
		"min_step_s":             c.MinStepS,
		"read_timeout_s":         c.ReadTimeoutS,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}
	if c.ESPPort != nil && (*c.ESPPort <= 0 || *c.ESPPort > 65535) {
		return fmt.Errorf("esp_port out of range: %d", *c.ESPPort)
	}
	return nil
}

func (c *Config) GetSampleInterval() float64 {
	if c.SampleIntervalS == nil {
		return jointangle.DefaultSampleInterval
	}
	return *c.SampleIntervalS
}

func (c *Config) GetFilterLambda() float64 {
	if c.FilterLambda == nil {
		return jointangle.DefaultFilterLambda
	}
	return *c.FilterLambda
}

func (c *Config) GetMinProjectionNorm() float64 {
	if c.MinProjectionNorm == nil {
		return jointangle.DegenerateNorm
	}
	return *c.MinProjectionNorm
}

func (c *Config) GetSolverMaxIterations() int {
	if c.SolverMaxIterations == nil {
		return jointangle.DefaultMaxIterations
	}
	return *c.SolverMaxIterations
}

func (c *Config) GetMaxAxisRMS() float64 {
	if c.MaxAxisRMS == nil {
		return 0
	}
	return *c.MaxAxisRMS
}

func (c *Config) GetMaxPositionRMS() float64 {
	if c.MaxPositionRMS == nil {
		return 0
	}
	return *c.MaxPositionRMS
}

func (c *Config) GetCalibrationSamples() int {
	if c.CalibrationSamples == nil {
		return 80
	}
	return *c.CalibrationSamples
}

// GetCalibrationTimeout returns the calibration collection window.
func (c *Config) GetCalibrationTimeout() time.Duration {
	if c.CalibrationTimeoutS == nil {
		return 25 * time.Second
	}
	return seconds(*c.CalibrationTimeoutS)
}

func (c *Config) GetMinCalibrationSamples() int {
	if c.MinCalibrationSamples == nil {
		return 10
	}
	return *c.MinCalibrationSamples
}

// GetMeasurementDuration returns how long a measurement phase records.
func (c *Config) GetMeasurementDuration() time.Duration {
	if c.MeasurementDurationS == nil {
		return 30 * time.Second
	}
	return seconds(*c.MeasurementDurationS)
}

func (c *Config) GetSamplingRate() float64 {
	if c.SamplingRateHz == nil {
		return gait.DefaultSamplingRate
	}
	return *c.SamplingRateHz
}

func (c *Config) GetStepHeightFactor() float64 {
	if c.StepHeightFactor == nil {
		return gait.DefaultStepHeightFactor
	}
	return *c.StepHeightFactor
}

func (c *Config) GetMinStep() float64 {
	if c.MinStepS == nil {
		return gait.DefaultMinStepSeconds
	}
	return *c.MinStepS
}

func (c *Config) GetESPPort() int {
	if c.ESPPort == nil {
		return 81
	}
	return *c.ESPPort
}

// GetReadTimeout bounds a single blocking read on a source.
func (c *Config) GetReadTimeout() time.Duration {
	if c.ReadTimeoutS == nil {
		return 5 * time.Second
	}
	return seconds(*c.ReadTimeoutS)
}

// FilterParams returns the estimator settings.
func (c *Config) FilterParams() jointangle.FilterParams {
	return jointangle.FilterParams{
		Dt:            c.GetSampleInterval(),
		Lambda:        c.GetFilterLambda(),
		MinProjection: c.GetMinProjectionNorm(),
	}
}

// SolveOptions returns the calibration solver settings.
func (c *Config) SolveOptions() jointangle.SolveOptions {
	return jointangle.SolveOptions{
		MaxIterations:  c.GetSolverMaxIterations(),
		MaxAxisRMS:     c.GetMaxAxisRMS(),
		MaxPositionRMS: c.GetMaxPositionRMS(),
	}
}

// GaitOptions returns the step detection settings.
func (c *Config) GaitOptions() gait.Options {
	return gait.Options{
		SamplingRate:     c.GetSamplingRate(),
		StepHeightFactor: c.GetStepHeightFactor(),
		MinStepSeconds:   c.GetMinStep(),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
