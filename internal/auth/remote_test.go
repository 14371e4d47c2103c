package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pushup.report/internal/httputil"
	"github.com/banshee-data/pushup.report/internal/timeutil"
)

func newRemote(mock *httputil.MockHTTPClient) *RemoteProvider {
	p := NewRemoteProvider(mock, "https://id.test/", "k3y")
	p.clock = timeutil.NewMockClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	return p
}

func requestBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestRemoteProvider_SignInAnonymously(t *testing.T) {
	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"idToken":"tok-1","localId":"uid-1","expiresIn":"3600","refreshToken":"r"}`)
	p := newRemote(mock)

	s, err := p.SignInAnonymously(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, User{ID: "uid-1"}, s.User)
	assert.True(t, time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC).Equal(s.ExpiresAt))

	req := mock.GetRequest(0)
	assert.Equal(t, "https://id.test/v1/accounts:signUp?key=k3y", req.URL.String())
	assert.Equal(t, map[string]any{"returnSecureToken": true}, requestBody(t, req))
}

func TestRemoteProvider_LinkEmail(t *testing.T) {
	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"localId":"uid-1","email":"pat@example.com","idToken":"tok-2","expiresIn":"3600"}`)
	p := newRemote(mock)

	s, err := p.LinkEmail(context.Background(), "tok-1", "pat@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", s.Token)
	assert.Equal(t, "pat@example.com", s.User.Email)

	req := mock.GetRequest(0)
	assert.Contains(t, req.URL.Path, "accounts:update")
	body := requestBody(t, req)
	assert.Equal(t, "tok-1", body["idToken"])
	assert.Equal(t, "pat@example.com", body["email"])

	// validation happens before any request
	_, err = p.LinkEmail(context.Background(), "tok-1", "pat@example.com", "abc")
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Equal(t, 1, mock.RequestCount())
}

func TestRemoteProvider_SignInAndLookup(t *testing.T) {
	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"localId":"uid-1","email":"pat@example.com","idToken":"tok-3","expiresIn":"3600","registered":true}`).
		AddResponse(http.StatusOK, `{"users":[{"localId":"uid-1","email":"pat@example.com"}]}`).
		AddResponse(http.StatusOK, `{"users":[]}`)
	p := newRemote(mock)
	ctx := context.Background()

	s, err := p.SignIn(ctx, "pat@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "tok-3", s.Token)
	assert.Contains(t, mock.GetRequest(0).URL.Path, "accounts:signInWithPassword")

	u, err := p.Lookup(ctx, "tok-3")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "uid-1", Email: "pat@example.com"}, u)
	assert.Contains(t, mock.GetRequest(1).URL.Path, "accounts:lookup")

	_, err = p.Lookup(ctx, "tok-3")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	assert.NoError(t, p.SignOut(ctx, "tok-3"))
	assert.Equal(t, 3, mock.RequestCount())
}

func TestRemoteProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"EMAIL_EXISTS", ErrEmailExists},
		{"INVALID_LOGIN_CREDENTIALS", ErrInvalidCredentials},
		{"EMAIL_NOT_FOUND", ErrInvalidCredentials},
		{"INVALID_PASSWORD", ErrInvalidCredentials},
		{"WEAK_PASSWORD : Password should be at least 6 characters", ErrWeakPassword},
		{"INVALID_EMAIL", ErrInvalidEmail},
		{"TOKEN_EXPIRED", ErrTokenExpired},
		{"INVALID_ID_TOKEN", ErrNotSignedIn},
		{"PROVIDER_ALREADY_LINKED", ErrAlreadyLinked},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			body := `{"error":{"code":400,"message":"` + tt.message + `"}}`
			p := newRemote(httputil.NewMockHTTPClient().AddResponse(http.StatusBadRequest, body))
			_, err := p.SignIn(context.Background(), "pat@example.com", "hunter22")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRemoteProvider_UnexpectedErrors(t *testing.T) {
	ctx := context.Background()

	p := newRemote(httputil.NewMockHTTPClient().AddResponse(http.StatusBadRequest, `{"error":{"code":400,"message":"QUOTA_EXCEEDED"}}`))
	_, err := p.SignInAnonymously(ctx)
	assert.EqualError(t, err, "identity provider error 400: QUOTA_EXCEEDED")

	p = newRemote(httputil.NewMockHTTPClient().AddResponse(http.StatusBadGateway, `<html>`))
	_, err = p.SignInAnonymously(ctx)
	assert.EqualError(t, err, "identity provider returned status 502")

	p = newRemote(httputil.NewMockHTTPClient().AddErrorResponse(errors.New("no route to host")))
	_, err = p.SignInAnonymously(ctx)
	assert.ErrorContains(t, err, "no route to host")

	p = newRemote(httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `not json`))
	_, err = p.SignInAnonymously(ctx)
	assert.ErrorContains(t, err, "failed to decode signUp response")
}

func TestNewRemoteProvider_DefaultURL(t *testing.T) {
	p := NewRemoteProvider(httputil.NewMockHTTPClient(), "", "k")
	assert.Equal(t, DefaultIdentityToolkitURL, p.baseURL)
}
