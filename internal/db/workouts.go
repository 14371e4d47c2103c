package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/session"
)

// WorkoutRecord is a stored workout.
type WorkoutRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id,omitempty"`
	Detector   string     `json:"detector"`
	Camera     string     `json:"camera"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Reps       int        `json:"reps"`
}

// Duration is the elapsed time of a finished workout, or zero.
func (w WorkoutRecord) Duration() time.Duration {
	if w.FinishedAt == nil {
		return 0
	}
	return w.FinishedAt.Sub(w.StartedAt)
}

// StartWorkout implements session.Recorder.
func (db *DB) StartWorkout(ctx context.Context, w session.Workout) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO workouts (id, user_id, detector, camera, started_unix_ns) VALUES (?, ?, ?, ?, ?)`,
		w.ID, nullString(w.UserID), string(w.Detector), string(w.Camera), unixNano(w.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert workout: %w", err)
	}
	return nil
}

// FinishWorkout implements session.Recorder.
func (db *DB) FinishWorkout(ctx context.Context, id string, reps int, finishedAt time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE workouts SET finished_unix_ns = ?, reps = ? WHERE id = ?`,
		unixNano(finishedAt), reps, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRep implements session.Recorder.
func (db *DB) RecordRep(ctx context.Context, r session.Rep) error {
	a := r.Angles
	_, err := db.ExecContext(ctx,
		`INSERT INTO rep_events (
			workout_id, number, seq, at_unix_ns,
			right_hip, left_hip, right_knee, left_knee, right_elbow, left_elbow,
			depth_deg, aligned
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.WorkoutID, r.Number, int64(r.Seq), unixNano(r.At),
		a.RightHip, a.LeftHip, a.RightKnee, a.LeftKnee, a.RightElbow, a.LeftElbow,
		r.DepthDeg, boolInt(r.Aligned),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rep: %w", err)
	}
	return nil
}

// RecordAngleSample implements session.Recorder.
func (db *DB) RecordAngleSample(ctx context.Context, s session.Sample) error {
	a := s.Angles
	_, err := db.ExecContext(ctx,
		`INSERT INTO angle_samples (
			workout_id, seq, at_unix_ns,
			right_hip, left_hip, right_knee, left_knee, right_elbow, left_elbow,
			aligned
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.WorkoutID, int64(s.Seq), unixNano(s.At),
		a.RightHip, a.LeftHip, a.RightKnee, a.LeftKnee, a.RightElbow, a.LeftElbow,
		boolInt(s.Aligned),
	)
	if err != nil {
		return fmt.Errorf("failed to insert angle sample: %w", err)
	}
	return nil
}

const workoutColumns = `id, user_id, detector, camera, started_unix_ns, finished_unix_ns, reps`

func scanWorkout(row interface{ Scan(...any) error }) (WorkoutRecord, error) {
	var (
		w        WorkoutRecord
		userID   sql.NullString
		started  int64
		finished sql.NullInt64
	)
	if err := row.Scan(&w.ID, &userID, &w.Detector, &w.Camera, &started, &finished, &w.Reps); err != nil {
		return WorkoutRecord{}, err
	}
	w.UserID = userID.String
	w.StartedAt = fromUnixNano(started)
	if finished.Valid {
		t := fromUnixNano(finished.Int64)
		w.FinishedAt = &t
	}
	return w, nil
}

// Workouts lists the most recent workouts first. A non-empty userID lists
// that user's workouts plus those recorded without a user, which every user
// can see. An empty userID lists all workouts. A limit of zero or less means
// 100.
func (db *DB) Workouts(ctx context.Context, userID string, limit int) ([]WorkoutRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + workoutColumns + ` FROM workouts`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ? OR user_id IS NULL`
		args = append(args, userID)
	}
	query += ` ORDER BY started_unix_ns DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := []WorkoutRecord{}
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

// Workout returns ErrNotFound if id is unknown.
func (db *DB) Workout(ctx context.Context, id string) (WorkoutRecord, error) {
	w, err := scanWorkout(db.QueryRowContext(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return WorkoutRecord{}, ErrNotFound
	}
	return w, err
}

// RepEvent is a stored rep.
type RepEvent struct {
	Number   int             `json:"number"`
	Seq      uint64          `json:"seq"`
	At       time.Time       `json:"at"`
	Angles   pose.BodyAngles `json:"angles"`
	DepthDeg float64         `json:"depth_deg"`
	Aligned  bool            `json:"aligned"`
}

// RepEvents returns the reps of a workout in order.
func (db *DB) RepEvents(ctx context.Context, workoutID string) ([]RepEvent, error) {
	rows, err := db.QueryContext(ctx, `SELECT number, seq, at_unix_ns,
			right_hip, left_hip, right_knee, left_knee, right_elbow, left_elbow,
			depth_deg, aligned
		FROM rep_events WHERE workout_id = ? ORDER BY number`, workoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []RepEvent{}
	for rows.Next() {
		var (
			e       RepEvent
			seq, at int64
			aligned int
		)
		a := &e.Angles
		if err := rows.Scan(&e.Number, &seq, &at,
			&a.RightHip, &a.LeftHip, &a.RightKnee, &a.LeftKnee, &a.RightElbow, &a.LeftElbow,
			&e.DepthDeg, &aligned,
		); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.At = fromUnixNano(at)
		e.Aligned = aligned != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

// AngleSample is a stored angle snapshot.
type AngleSample struct {
	Seq     uint64          `json:"seq"`
	At      time.Time       `json:"at"`
	Angles  pose.BodyAngles `json:"angles"`
	Aligned bool            `json:"aligned"`
}

// AngleSamples returns the samples of a workout in time order.
func (db *DB) AngleSamples(ctx context.Context, workoutID string) ([]AngleSample, error) {
	rows, err := db.QueryContext(ctx, `SELECT seq, at_unix_ns,
			right_hip, left_hip, right_knee, left_knee, right_elbow, left_elbow, aligned
		FROM angle_samples WHERE workout_id = ? ORDER BY at_unix_ns, seq`, workoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []AngleSample{}
	for rows.Next() {
		var (
			s       AngleSample
			seq, at int64
			aligned int
		)
		a := &s.Angles
		if err := rows.Scan(&seq, &at,
			&a.RightHip, &a.LeftHip, &a.RightKnee, &a.LeftKnee, &a.RightElbow, &a.LeftElbow, &aligned,
		); err != nil {
			return nil, err
		}
		s.Seq = uint64(seq)
		s.At = fromUnixNano(at)
		s.Aligned = aligned != 0
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// DeleteWorkout removes a workout along with its reps and samples.
func (db *DB) DeleteWorkout(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ session.Recorder = (*DB)(nil)
