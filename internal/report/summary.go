// Package report turns stored workouts into summaries and charts.
package report

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pushup.report/internal/db"
)

// Summary aggregates a workout's reps and angle samples. Angles are in
// degrees.
type Summary struct {
	WorkoutID     string  `json:"workout_id"`
	Reps          int     `json:"reps"`
	DurationSec   float64 `json:"duration_s"`
	RepsPerMinute float64 `json:"reps_per_minute"`
	AlignedReps   int     `json:"aligned_reps"`
	// DeepReps counts reps whose depth reached the depth target.
	DeepReps       int     `json:"deep_reps"`
	DepthMeanDeg   float64 `json:"depth_mean_deg"`
	DepthStdDevDeg float64 `json:"depth_stddev_deg"`
	DepthMinDeg    float64 `json:"depth_min_deg"`
	DepthMedianDeg float64 `json:"depth_median_deg"`
	DepthMaxDeg    float64 `json:"depth_max_deg"`

	Samples         int     `json:"samples"`
	AlignedFraction float64 `json:"aligned_fraction"`
	// ElbowRangeDeg is the spread of the right elbow across samples.
	ElbowRangeDeg float64 `json:"elbow_range_deg"`
}

// Summarize computes a Summary. depthTarget is the elbow angle a rep must
// reach to count as deep.
func Summarize(w db.WorkoutRecord, reps []db.RepEvent, samples []db.AngleSample, depthTarget float64) Summary {
	s := Summary{
		WorkoutID: w.ID,
		Reps:      w.Reps,
		Samples:   len(samples),
	}
	if len(reps) > s.Reps {
		s.Reps = len(reps)
	}
	if d := w.Duration(); d > 0 {
		s.DurationSec = d.Seconds()
		s.RepsPerMinute = float64(s.Reps) / d.Minutes()
	}

	if len(reps) > 0 {
		depths := make([]float64, 0, len(reps))
		for _, r := range reps {
			depths = append(depths, r.DepthDeg)
			if r.Aligned {
				s.AlignedReps++
			}
			if r.DepthDeg <= depthTarget {
				s.DeepReps++
			}
		}
		s.DepthMeanDeg, s.DepthStdDevDeg = stat.MeanStdDev(depths, nil)
		if len(depths) < 2 {
			s.DepthStdDevDeg = 0
		}
		sort.Float64s(depths)
		s.DepthMedianDeg = stat.Quantile(0.5, stat.Empirical, depths, nil)
		s.DepthMinDeg = floats.Min(depths)
		s.DepthMaxDeg = floats.Max(depths)
	}

	if len(samples) > 0 {
		elbows := make([]float64, 0, len(samples))
		aligned := make([]float64, 0, len(samples))
		for _, smp := range samples {
			elbows = append(elbows, smp.Angles.RightElbow)
			if smp.Aligned {
				aligned = append(aligned, 1)
			} else {
				aligned = append(aligned, 0)
			}
		}
		s.AlignedFraction = stat.Mean(aligned, nil)
		s.ElbowRangeDeg = floats.Max(elbows) - floats.Min(elbows)
	}
	return s
}
