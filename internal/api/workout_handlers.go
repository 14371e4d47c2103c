package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/banshee-data/pushup.report/internal/db"
	"github.com/banshee-data/pushup.report/internal/httputil"
	"github.com/banshee-data/pushup.report/internal/report"
	"github.com/banshee-data/pushup.report/internal/units"
)

const maxWorkoutsLimit = 1000

type workoutDetail struct {
	Workout db.WorkoutRecord `json:"workout"`
	Reps    []db.RepEvent    `json:"reps"`
	Units   string           `json:"units"`
}

// requireUser writes 401 and returns false when nobody is signed in.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, err := s.currentUser(r)
	if err != nil {
		writeAuthError(w, err)
		return "", false
	}
	if u == nil {
		httputil.Unauthorized(w, "not signed in")
		return "", false
	}
	return u.ID, true
}

// loadWorkout fetches the workout named in the path and checks that it
// belongs to the signed in user. Workouts recorded without a user are
// visible to everyone.
func (s *Server) loadWorkout(w http.ResponseWriter, r *http.Request) (db.WorkoutRecord, bool) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return db.WorkoutRecord{}, false
	}
	rec, err := s.db.Workout(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, db.ErrNotFound) || (err == nil && rec.UserID != "" && rec.UserID != userID) {
		httputil.NotFound(w, "workout not found")
		return db.WorkoutRecord{}, false
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load workout")
		return db.WorkoutRecord{}, false
	}
	return rec, true
}

func (s *Server) listWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxWorkoutsLimit {
			httputil.BadRequest(w, "limit must be between 1 and "+strconv.Itoa(maxWorkoutsLimit))
			return
		}
		limit = n
	}
	list, err := s.db.Workouts(r.Context(), userID, limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list workouts")
		return
	}
	httputil.WriteJSONOK(w, list)
}

func (s *Server) showWorkout(w http.ResponseWriter, r *http.Request) {
	unit, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	rec, ok := s.loadWorkout(w, r)
	if !ok {
		return
	}
	events, err := s.db.RepEvents(r.Context(), rec.ID)
	if err != nil {
		httputil.InternalServerError(w, "failed to load reps")
		return
	}
	for i := range events {
		events[i].Angles = convertAngles(events[i].Angles, unit)
		events[i].DepthDeg = units.ConvertAngle(events[i].DepthDeg, unit)
	}
	httputil.WriteJSONOK(w, workoutDetail{Workout: rec, Reps: events, Units: unit})
}

func (s *Server) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadWorkout(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteWorkout(r.Context(), rec.ID); err != nil {
		httputil.InternalServerError(w, "failed to delete workout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// workoutData loads the reps and samples behind a summary or chart.
func (s *Server) workoutData(w http.ResponseWriter, r *http.Request) (db.WorkoutRecord, []db.RepEvent, []db.AngleSample, bool) {
	rec, ok := s.loadWorkout(w, r)
	if !ok {
		return rec, nil, nil, false
	}
	events, err := s.db.RepEvents(r.Context(), rec.ID)
	if err != nil {
		httputil.InternalServerError(w, "failed to load reps")
		return rec, nil, nil, false
	}
	samples, err := s.db.AngleSamples(r.Context(), rec.ID)
	if err != nil {
		httputil.InternalServerError(w, "failed to load angle samples")
		return rec, nil, nil, false
	}
	return rec, events, samples, true
}

// workoutSummary reports rep depth statistics. Angles are always degrees.
func (s *Server) workoutSummary(w http.ResponseWriter, r *http.Request) {
	rec, events, samples, ok := s.workoutData(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, report.Summarize(rec, events, samples, s.ctrl.Thresholds().DepthTarget))
}

func (s *Server) workoutChart(w http.ResponseWriter, r *http.Request) {
	rec, events, samples, ok := s.workoutData(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := report.RenderChart(&buf, rec, events, samples, report.ChartOptions{
		DepthTarget: s.ctrl.Thresholds().DepthTarget,
		AssetsHost:  s.ChartAssetsHost,
	})
	if err != nil {
		logf("failed to render chart for %s: %v", rec.ID, err)
		httputil.InternalServerError(w, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
