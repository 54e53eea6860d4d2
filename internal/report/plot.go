package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 4 * vg.Inch
)

var lineColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// AnglePlotPNG draws angle against time as a PNG. Each run of non-nil
// angles becomes its own line.
func AnglePlotPNG(w io.Writer, title string, times []float64, angles []*float64) error {
	segs, err := segments(times, angles)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Angle (deg)"
	p.Add(plotter.NewGrid())

	for _, seg := range segs {
		pts := make(plotter.XYs, len(seg))
		for i, pt := range seg {
			pts[i] = plotter.XY{X: pt.t, Y: pt.angle}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("angle line: %w", err)
		}
		l.Color = lineColor
		l.Width = vg.Points(1)
		p.Add(l)
	}
	if len(segs) == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
	}

	c := vgimg.New(plotWidth, plotHeight)
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
