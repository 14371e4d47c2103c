// Package api serves the push-up counter over HTTP: account actions, the
// live camera session, pushed frames and workout history.
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/banshee-data/pushup.report/internal/auth"
	"github.com/banshee-data/pushup.report/internal/config"
	"github.com/banshee-data/pushup.report/internal/db"
	"github.com/banshee-data/pushup.report/internal/httputil"
	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/session"
	"github.com/banshee-data/pushup.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server holds the handlers' dependencies.
type Server struct {
	ctrl  *session.Controller
	auth  *auth.Service
	db    *db.DB
	cfg   *config.TuningConfig
	units string

	// ChartAssetsHost overrides where workout charts load echarts from.
	ChartAssetsHost string
}

func NewServer(ctrl *session.Controller, authSvc *auth.Service, database *db.DB, cfg *config.TuningConfig, units string) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Server{
		ctrl:  ctrl,
		auth:  authSvc,
		db:    database,
		cfg:   cfg,
		units: units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// Router returns the API routes. Wrap it in LoggingMiddleware to log
// requests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.MethodNotAllowed(w)
	})

	a := r.PathPrefix("/api").Subrouter()

	a.HandleFunc("/auth/anonymous", s.signInAnonymously).Methods(http.MethodPost)
	a.HandleFunc("/auth/signup", s.signUp).Methods(http.MethodPost)
	a.HandleFunc("/auth/signin", s.signIn).Methods(http.MethodPost)
	a.HandleFunc("/auth/signout", s.signOut).Methods(http.MethodPost)
	a.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)

	a.HandleFunc("/session", s.showSession).Methods(http.MethodGet)
	a.HandleFunc("/session/events", s.streamSession).Methods(http.MethodGet)
	a.HandleFunc("/session/start", s.startSession).Methods(http.MethodPost)
	a.HandleFunc("/session/stop", s.stopSession).Methods(http.MethodPost)
	a.HandleFunc("/session/camera", s.setCamera).Methods(http.MethodPost)
	a.HandleFunc("/session/detector", s.setDetector).Methods(http.MethodPost)
	a.HandleFunc("/session/reset", s.resetSession).Methods(http.MethodPost)
	a.HandleFunc("/frames", s.pushFrame).Methods(http.MethodPost)

	a.HandleFunc("/workouts", s.listWorkouts).Methods(http.MethodGet)
	a.HandleFunc("/workouts/{id}", s.showWorkout).Methods(http.MethodGet)
	a.HandleFunc("/workouts/{id}", s.deleteWorkout).Methods(http.MethodDelete)
	a.HandleFunc("/workouts/{id}/summary", s.workoutSummary).Methods(http.MethodGet)
	a.HandleFunc("/workouts/{id}/chart", s.workoutChart).Methods(http.MethodGet)

	a.HandleFunc("/config", s.showConfig).Methods(http.MethodGet)
	return r
}

// Handler is Router wrapped in LoggingMiddleware.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.Router())
}

// requestUnits returns the angle units for r: the "units" query parameter
// when present, otherwise the server default.
func (s *Server) requestUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, nil
	}
	if !units.IsValid(u) {
		return "", errors.New("invalid units; must be one of: " + units.GetValidUnitsString())
	}
	return u, nil
}

func convertAngles(a pose.BodyAngles, u string) pose.BodyAngles {
	return pose.BodyAngles{
		RightHip:   units.ConvertAngle(a.RightHip, u),
		LeftHip:    units.ConvertAngle(a.LeftHip, u),
		RightKnee:  units.ConvertAngle(a.RightKnee, u),
		LeftKnee:   units.ConvertAngle(a.LeftKnee, u),
		RightElbow: units.ConvertAngle(a.RightElbow, u),
		LeftElbow:  units.ConvertAngle(a.LeftElbow, u),
	}
}

// convertUpdate applies unit conversion to the angles carried by u.
func convertUpdate(u session.Update, unit string) session.Update {
	if u.Feedback != nil && unit != units.Degrees {
		fb := *u.Feedback
		fb.Angles = convertAngles(fb.Angles, unit)
		u.Feedback = &fb
	}
	return u
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"units":      s.units,
		"tuning":     s.cfg,
		"thresholds": s.ctrl.Thresholds(),
		"detector":   s.ctrl.Detector(),
		"camera":     s.ctrl.Camera(),
	})
}
