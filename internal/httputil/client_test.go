package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockHTTPClient_Queue(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"idToken":"a"}`).
		AddErrorResponse(errors.New("reset by peer"))

	req := httptest.NewRequest(http.MethodPost, "https://id.example/v1/accounts:signUp", nil)
	resp, err := mock.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"idToken":"a"}`, string(body))
	assert.Same(t, req, resp.Request)

	_, err = mock.Do(req)
	assert.EqualError(t, err, "reset by peer")

	_, err = mock.Do(req)
	assert.ErrorIs(t, err, ErrNoMockResponse)

	assert.Equal(t, 3, mock.RequestCount())
	assert.Same(t, req, mock.GetRequest(2))
	assert.Nil(t, mock.GetRequest(3))
	assert.Nil(t, mock.GetRequest(-1))
}

func TestStandardClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		w.Write(b)
	}))
	defer ts.Close()

	c := NewStandardClient(ts.Client())
	status, body, err := PostJSON(context.Background(), c, ts.URL, map[string]bool{"returnSecureToken": true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
	assert.JSONEq(t, `{"returnSecureToken":true}`, string(body))

	assert.Same(t, http.DefaultClient, NewStandardClient(nil).Client)
}
