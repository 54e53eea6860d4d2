package jointangle

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrMissingField is wrapped by MissingFieldError.
var ErrMissingField = errors.New("missing field")

// MissingFieldError reports a packet that lacks an expected key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("reading is missing %s", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// IMUReading is a single accelerometer + gyroscope sample from one sensor.
type IMUReading struct {
	Ax float64 `json:"Ax"`
	Ay float64 `json:"Ay"`
	Az float64 `json:"Az"`
	Gx float64 `json:"Gx"`
	Gy float64 `json:"Gy"`
	Gz float64 `json:"Gz"`
}

// Accel returns the linear acceleration vector.
func (r IMUReading) Accel() r3.Vec { return r3.Vec{X: r.Ax, Y: r.Ay, Z: r.Az} }

// Gyro returns the angular velocity vector.
func (r IMUReading) Gyro() r3.Vec { return r3.Vec{X: r.Gx, Y: r.Gy, Z: r.Gz} }

// ReadingPair is one time step from both sensors, as sent by the ESP32
// firmware: {"IMU1": {...}, "IMU2": {...}}.
type ReadingPair struct {
	IMU1 IMUReading `json:"IMU1"`
	IMU2 IMUReading `json:"IMU2"`
}

type rawReading struct {
	Ax *float64 `json:"Ax"`
	Ay *float64 `json:"Ay"`
	Az *float64 `json:"Az"`
	Gx *float64 `json:"Gx"`
	Gy *float64 `json:"Gy"`
	Gz *float64 `json:"Gz"`
}

type rawPair struct {
	IMU1 *rawReading `json:"IMU1"`
	IMU2 *rawReading `json:"IMU2"`
}

// ParseReadingPair decodes a JSON packet. Missing sensors or axes are
// reported as *MissingFieldError; no range checks are applied.
func ParseReadingPair(data []byte) (ReadingPair, error) {
	var raw rawPair
	if err := json.Unmarshal(data, &raw); err != nil {
		return ReadingPair{}, fmt.Errorf("failed to decode reading pair: %w", err)
	}

	imu1, err := raw.IMU1.resolve("IMU1")
	if err != nil {
		return ReadingPair{}, err
	}
	imu2, err := raw.IMU2.resolve("IMU2")
	if err != nil {
		return ReadingPair{}, err
	}
	return ReadingPair{IMU1: imu1, IMU2: imu2}, nil
}

func (r *rawReading) resolve(sensor string) (IMUReading, error) {
	if r == nil {
		return IMUReading{}, &MissingFieldError{Field: sensor}
	}
	fields := []struct {
		name string
		v    *float64
	}{
		{"Ax", r.Ax}, {"Ay", r.Ay}, {"Az", r.Az},
		{"Gx", r.Gx}, {"Gy", r.Gy}, {"Gz", r.Gz},
	}
	for _, f := range fields {
		if f.v == nil {
			return IMUReading{}, &MissingFieldError{Field: sensor + "." + f.name}
		}
	}
	return IMUReading{Ax: *r.Ax, Ay: *r.Ay, Az: *r.Az, Gx: *r.Gx, Gy: *r.Gy, Gz: *r.Gz}, nil
}

// SplitPairs separates a pair sequence into per-sensor sequences.
func SplitPairs(pairs []ReadingPair) (imu1, imu2 []IMUReading) {
	imu1 = make([]IMUReading, len(pairs))
	imu2 = make([]IMUReading, len(pairs))
	for i, p := range pairs {
		imu1[i] = p.IMU1
		imu2[i] = p.IMU2
	}
	return imu1, imu2
}
