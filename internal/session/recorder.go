package session

import (
	"context"
	"time"

	"github.com/banshee-data/pushup.report/internal/pose"
)

// Workout describes a recording opened by Start.
type Workout struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	Detector  Detector    `json:"detector"`
	Camera    pose.Camera `json:"camera"`
	StartedAt time.Time   `json:"started_at"`
}

// Rep is a single counted repetition.
type Rep struct {
	WorkoutID string          `json:"workout_id"`
	Number    int             `json:"number"`
	Seq       uint64          `json:"seq"`
	At        time.Time       `json:"at"`
	Angles    pose.BodyAngles `json:"angles"`
	// DepthDeg is the smallest right elbow angle reached since the previous
	// rep.
	DepthDeg float64 `json:"depth_deg"`
	Aligned  bool    `json:"aligned"`
}

// Sample is a periodic snapshot of the joint angles during a workout.
type Sample struct {
	WorkoutID string          `json:"workout_id"`
	Seq       uint64          `json:"seq"`
	At        time.Time       `json:"at"`
	Angles    pose.BodyAngles `json:"angles"`
	Aligned   bool            `json:"aligned"`
}

// Recorder persists workouts. It is implemented by the db package.
type Recorder interface {
	StartWorkout(ctx context.Context, w Workout) error
	RecordRep(ctx context.Context, r Rep) error
	RecordAngleSample(ctx context.Context, s Sample) error
	FinishWorkout(ctx context.Context, id string, reps int, finishedAt time.Time) error
}

// Commander sends line commands to the pose estimator.
type Commander interface {
	SendCommand(string) error
}
