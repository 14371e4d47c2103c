package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/banshee-data/pushup.report/internal/auth"
	"github.com/banshee-data/pushup.report/internal/httputil"
	"github.com/banshee-data/pushup.report/internal/monitoring"
)

var logf = monitoring.Component("api")

type credentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

type sessionResponse struct {
	Token     string     `json:"token"`
	User      auth.User  `json:"user"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Action    string     `json:"action"`
}

type meResponse struct {
	User   *auth.User `json:"user"`
	Action string     `json:"action"`
}

func toSessionResponse(s auth.Session) sessionResponse {
	resp := sessionResponse{Token: s.Token, User: s.User, Action: auth.Action(&s.User)}
	if !s.ExpiresAt.IsZero() {
		t := s.ExpiresAt
		resp.ExpiresAt = &t
	}
	return resp
}

// writeAuthError maps auth sentinels onto HTTP status codes.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, auth.ErrAlreadyLinked):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNotSignedIn),
		errors.Is(err, auth.ErrTokenExpired):
		httputil.Unauthorized(w, err.Error())
	default:
		logf("auth request failed: %v", err)
		httputil.InternalServerError(w, "authentication failed")
	}
}

// signInAnonymously keeps the caller's session if the bearer token is still
// valid, otherwise creates an anonymous account.
func (s *Server) signInAnonymously(w http.ResponseWriter, r *http.Request) {
	sess, err := s.auth.Ensure(r.Context(), httputil.BearerToken(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httputil.WriteJSONOK(w, toSessionResponse(sess))
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sess, err := s.auth.SignUp(r.Context(), httputil.BearerToken(r), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httputil.WriteJSONOK(w, toSessionResponse(sess))
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), httputil.BearerToken(r)); err != nil {
		writeAuthError(w, err)
		return
	}
	httputil.WriteJSONOK(w, meResponse{Action: auth.Action(nil)})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Current(r.Context(), httputil.BearerToken(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	httputil.WriteJSONOK(w, meResponse{User: u, Action: auth.Action(u)})
}

// currentUser resolves the bearer token. A nil user with a nil error means
// nobody is signed in.
func (s *Server) currentUser(r *http.Request) (*auth.User, error) {
	return s.auth.Current(r.Context(), httputil.BearerToken(r))
}
