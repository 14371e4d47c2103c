package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pushup.report/internal/db"
)

// ChartOptions control RenderChart. AssetsHost overrides where the echarts
// javascript is loaded from; empty uses the go-echarts default CDN.
type ChartOptions struct {
	DepthTarget float64
	AssetsHost  string
}

func elapsed(w db.WorkoutRecord, s db.AngleSample) float64 {
	return s.At.Sub(w.StartedAt).Seconds()
}

// RenderChart writes an HTML line chart of the elbow and hip angles over the
// workout.
func RenderChart(out io.Writer, w db.WorkoutRecord, reps []db.RepEvent, samples []db.AngleSample, o ChartOptions) error {
	labels := make([]string, 0, len(samples))
	right := make([]opts.LineData, 0, len(samples))
	left := make([]opts.LineData, 0, len(samples))
	hip := make([]opts.LineData, 0, len(samples))
	for _, s := range samples {
		labels = append(labels, fmt.Sprintf("%.1f", elapsed(w, s)))
		right = append(right, opts.LineData{Value: s.Angles.RightElbow})
		left = append(left, opts.LineData{Value: s.Angles.LeftElbow})
		hip = append(hip, opts.LineData{Value: s.Angles.RightHip})
	}

	initOpts := opts.Initialization{PageTitle: "Workout " + w.ID, Width: "100%", Height: "520px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{
			Title:    "Joint angles",
			Subtitle: fmt.Sprintf("workout=%s reps=%d samples=%d", w.ID, len(reps), len(samples)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 180, Name: "angle (deg)", NameLocation: "middle", NameGap: 30}),
	)

	line.SetXAxis(labels).
		AddSeries("Right elbow", right,
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "depth target", YAxis: o.DepthTarget}),
		).
		AddSeries("Left elbow", left).
		AddSeries("Right hip", hip)

	return line.Render(out)
}
