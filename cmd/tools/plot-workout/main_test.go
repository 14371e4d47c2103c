package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pushup.report/internal/db"
	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/session"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	database, err := db.NewDB(filepath.Join(dir, "plot.db"))
	require.NoError(t, err)
	defer database.Close()

	var out bytes.Buffer
	err = run(ctx, database, "", "u1", filepath.Join(dir, "none.png"), 90, &out)
	assert.EqualError(t, err, "no workouts recorded")

	start := time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)
	w := session.Workout{ID: "w-1", UserID: "u1", Detector: session.DetectorAccurate, Camera: pose.CameraBack, StartedAt: start}
	require.NoError(t, database.StartWorkout(ctx, w))
	for i, e := range []float64{170, 90, 80, 165} {
		require.NoError(t, database.RecordAngleSample(ctx, session.Sample{
			WorkoutID: w.ID, Seq: uint64(i), At: start.Add(time.Duration(i) * time.Second),
			Angles: pose.BodyAngles{RightElbow: e, LeftElbow: e}, Aligned: true,
		}))
	}
	require.NoError(t, database.RecordRep(ctx, session.Rep{
		WorkoutID: w.ID, Number: 1, Seq: 3, At: start.Add(3 * time.Second), DepthDeg: 80, Aligned: true,
	}))
	require.NoError(t, database.FinishWorkout(ctx, w.ID, 1, start.Add(time.Minute)))

	png := filepath.Join(dir, "w.png")
	out.Reset()
	require.NoError(t, run(ctx, database, "", "u1", png, 90, &out))
	assert.Contains(t, out.String(), `"workout_id": "w-1"`)
	assert.Contains(t, out.String(), `"deep_reps": 1`)

	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, run(ctx, database, "missing", "", filepath.Join(dir, "x.png"), 90, &out))
}
