package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// AssetsHost is where the echarts page loads its scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// AngleChartHTML renders an echarts line chart of angle against time. Nil
// angles break the line instead of being interpolated.
func AngleChartHTML(w io.Writer, title string, times []float64, angles []*float64) error {
	segs, err := segments(times, angles)
	if err != nil {
		return err
	}

	data := make([]opts.LineData, 0, countPoints(segs)+len(segs))
	for i, seg := range segs {
		if i > 0 {
			// echarts treats "-" as a missing value
			data = append(data, opts.LineData{Value: []interface{}{seg[0].t, "-"}})
		}
		for _, p := range seg {
			data = append(data, opts.LineData{Value: []interface{}{p.t, p.angle}})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("samples=%d gaps=%d", len(angles), len(angles)-countPoints(segs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Angle (deg)", NameLocation: "middle", NameGap: 35}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.AddSeries("knee angle", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), ConnectNulls: opts.Bool(false)}),
	)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}
