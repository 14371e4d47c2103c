package api

import (
	"errors"
	"net/http"

	"github.com/banshee-data/pushup.report/internal/httputil"
	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/reps"
	"github.com/banshee-data/pushup.report/internal/session"
)

type sessionState struct {
	Stats   session.Stats   `json:"stats"`
	Latest  *session.Update `json:"latest,omitempty"`
	Counter reps.State      `json:"counter"`
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrRunning), errors.Is(err, session.ErrNotRunning):
		httputil.Conflict(w, err.Error())
	default:
		logf("session request failed: %v", err)
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	unit, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	state := sessionState{Stats: s.ctrl.Stats(), Counter: s.ctrl.Counter()}
	if u, ok := s.ctrl.Latest(); ok {
		u = convertUpdate(u, unit)
		state.Latest = &u
	}
	httputil.WriteJSONOK(w, state)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	u, err := s.currentUser(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	userID := ""
	if u != nil {
		userID = u.ID
	}
	workout, err := s.ctrl.Start(r.Context(), userID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, workout)
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.Stop(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, res)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Reset(); err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.ctrl.Counter())
}

type cameraRequest struct {
	Camera string `json:"camera"`
}

func (s *Server) setCamera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	cam, err := pose.ParseCamera(req.Camera)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.ctrl.SetCamera(cam); err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.ctrl.Stats())
}

type detectorRequest struct {
	Detector string `json:"detector"`
}

type detectorResponse struct {
	Detector session.Detector `json:"detector"`
	Label    string           `json:"label"`
}

func (s *Server) setDetector(w http.ResponseWriter, r *http.Request) {
	var req detectorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	d, err := session.ParseDetector(req.Detector)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.ctrl.SetDetector(d); err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, detectorResponse{Detector: d, Label: d.Label()})
}

// pushFrame processes one frame synchronously and returns its update.
func (s *Server) pushFrame(w http.ResponseWriter, r *http.Request) {
	unit, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var f pose.Frame
	if err := httputil.DecodeJSON(r, &f); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	u, err := s.ctrl.Process(r.Context(), f)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, convertUpdate(u, unit))
}

// streamSession sends every published update as a server-sent event until
// the client goes away.
func (s *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	unit, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if _, ok := w.(http.Flusher); !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	id, updates := s.ctrl.Subscribe()
	defer s.ctrl.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := httputil.WriteSSE(w, "stats", s.ctrl.Stats()); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := httputil.WriteSSE(w, "update", convertUpdate(u, unit)); err != nil {
				logf("event stream write failed: %v", err)
				return
			}
		}
	}
}
