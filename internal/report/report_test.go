package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestSegments(t *testing.T) {
	tests := []struct {
		name   string
		angles []*float64
		want   []int
	}{
		{"empty", nil, nil},
		{"all nil", []*float64{nil, nil}, nil},
		{"contiguous", []*float64{f64(1), f64(2), f64(3)}, []int{3}},
		{"gap in middle", []*float64{f64(1), nil, f64(3), f64(4)}, []int{1, 2}},
		{"leading and trailing gaps", []*float64{nil, f64(1), f64(2), nil}, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times := make([]float64, len(tt.angles))
			for i := range times {
				times[i] = float64(i) * 0.1
			}
			segs, err := segments(times, tt.angles)
			require.NoError(t, err)
			var got []int
			for _, s := range segs {
				got = append(got, len(s))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegmentsLengthMismatch(t *testing.T) {
	_, err := segments([]float64{0, 1}, []*float64{f64(1)})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestAngleChartHTML(t *testing.T) {
	var buf bytes.Buffer
	err := AngleChartHTML(&buf, "Jane 2026-01-02", []float64{0, 0.1, 0.2}, []*float64{f64(10), nil, f64(12.5)})
	require.NoError(t, err)

	page := buf.String()
	assert.True(t, strings.Contains(page, "<html"), "expected html document")
	assert.Contains(t, page, "Jane 2026-01-02")
	assert.Contains(t, page, "knee angle")
	assert.Contains(t, page, "12.5")
	assert.Contains(t, page, "gaps=1")
}

func TestAngleChartHTMLLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := AngleChartHTML(&buf, "x", []float64{0}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.Zero(t, buf.Len())
}

func TestAnglePlotPNG(t *testing.T) {
	pngMagic := []byte("\x89PNG\r\n\x1a\n")
	tests := []struct {
		name   string
		times  []float64
		angles []*float64
	}{
		{"series with gap", []float64{0, 0.1, 0.2, 0.3}, []*float64{f64(10), f64(11), nil, f64(9)}},
		{"single point", []float64{0}, []*float64{f64(5)}},
		{"no data", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, AnglePlotPNG(&buf, "plot", tt.times, tt.angles))
			require.Greater(t, buf.Len(), len(pngMagic))
			assert.Equal(t, pngMagic, buf.Bytes()[:len(pngMagic)])
		})
	}
}

func TestRenderersShareSignature(t *testing.T) {
	for name, r := range map[string]Renderer{"html": AngleChartHTML, "png": AnglePlotPNG} {
		var buf bytes.Buffer
		require.NoError(t, r(&buf, name, []float64{0, 1}, []*float64{f64(1), f64(2)}), name)
		assert.NotZero(t, buf.Len(), name)
	}
}
