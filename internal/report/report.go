// Package report renders recorded knee angle series as an interactive
// echarts page or a static PNG.
package report

import (
	"errors"
	"fmt"
	"io"
)

// ErrLengthMismatch is returned when times and angles differ in length.
var ErrLengthMismatch = errors.New("times and angles differ in length")

type point struct{ t, angle float64 }

// segments splits a series at nil angles so that gaps are not bridged.
func segments(times []float64, angles []*float64) ([][]point, error) {
	if len(times) != len(angles) {
		return nil, fmt.Errorf("%w: %d times, %d angles", ErrLengthMismatch, len(times), len(angles))
	}
	var out [][]point
	var cur []point
	for i, a := range angles {
		if a == nil {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, point{times[i], *a})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out, nil
}

func countPoints(segs [][]point) int {
	n := 0
	for _, s := range segs {
		n += len(s)
	}
	return n
}

// Renderer writes one chart of an angle series.
type Renderer func(w io.Writer, title string, times []float64, angles []*float64) error
