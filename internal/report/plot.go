package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pushup.report/internal/db"
	"github.com/banshee-data/pushup.report/internal/security"
)

var (
	rightColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	leftColor  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	repColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// PlotAngles builds an elbow angle trace with one marker per rep at its
// depth.
func PlotAngles(w db.WorkoutRecord, reps []db.RepEvent, samples []db.AngleSample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Workout %s - Elbow angle", w.ID)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Angle (deg)"
	p.Y.Min = 0
	p.Y.Max = 180
	p.Legend.Top = true

	rightPts := make(plotter.XYs, 0, len(samples))
	leftPts := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		t := elapsed(w, s)
		rightPts = append(rightPts, plotter.XY{X: t, Y: s.Angles.RightElbow})
		leftPts = append(leftPts, plotter.XY{X: t, Y: s.Angles.LeftElbow})
	}

	if len(samples) > 0 {
		rightLine, err := plotter.NewLine(rightPts)
		if err != nil {
			return nil, err
		}
		rightLine.Color = rightColor
		rightLine.Width = vg.Points(1)
		p.Add(rightLine)
		p.Legend.Add("right elbow", rightLine)

		leftLine, err := plotter.NewLine(leftPts)
		if err != nil {
			return nil, err
		}
		leftLine.Color = leftColor
		leftLine.Width = vg.Points(1)
		p.Add(leftLine)
		p.Legend.Add("left elbow", leftLine)
	}

	if len(reps) > 0 {
		repPts := make(plotter.XYs, 0, len(reps))
		for _, r := range reps {
			repPts = append(repPts, plotter.XY{X: r.At.Sub(w.StartedAt).Seconds(), Y: r.DepthDeg})
		}
		sc, err := plotter.NewScatter(repPts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = repColor
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("rep depth", sc)
	}
	return p, nil
}

// SavePNG plots the workout and writes it to path, which must be inside the
// working or temp directory.
func SavePNG(path string, w db.WorkoutRecord, reps []db.RepEvent, samples []db.AngleSample) error {
	if err := security.ValidateExportPath(path); err != nil {
		return err
	}
	p, err := PlotAngles(w, reps, samples)
	if err != nil {
		return err
	}
	if err := p.Save(12*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
