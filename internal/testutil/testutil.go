// Package testutil provides shared test helpers and push-up frame fixtures.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/pushup.report/internal/pose"
)

// Fixture frame size and body line. Hip and knee angles sit inside the
// default alignment bands.
const (
	FrameWidth  = 640
	FrameHeight = 480
	AlignedHip  = 170
	AlignedKnee = 175
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// PushupFrame is an aligned single-pose frame with both elbows at elbow
// degrees.
func PushupFrame(seq uint64, elbow float64) pose.Frame {
	return pose.Frame{
		Seq:    seq,
		Width:  FrameWidth,
		Height: FrameHeight,
		Poses: []pose.Pose{pose.Synthesize(pose.SyntheticAngles{
			Hip: AlignedHip, Knee: AlignedKnee, RightElbow: elbow, LeftElbow: elbow,
		})},
	}
}

// SaggingFrame has the hips out of line, so no rep can be counted from it.
func SaggingFrame(seq uint64, elbow float64) pose.Frame {
	f := PushupFrame(seq, elbow)
	f.Poses[0] = pose.Synthesize(pose.SyntheticAngles{
		Hip: 100, Knee: AlignedKnee, RightElbow: elbow, LeftElbow: elbow,
	})
	return f
}

// PushupCycle returns frames for n full reps starting at seq: a top hold,
// then for each rep a descent to 80 degrees and a push back up to 170.
func PushupCycle(seq uint64, n int) []pose.Frame {
	frames := []pose.Frame{PushupFrame(seq, 175)}
	for i := 0; i < n; i++ {
		seq++
		frames = append(frames, PushupFrame(seq, 80))
		seq++
		frames = append(frames, PushupFrame(seq, 170))
	}
	return frames
}

// FrameLine encodes f as one NDJSON line without the trailing newline.
func FrameLine(t testing.TB, f pose.Frame) string {
	t.Helper()
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return string(b)
}

// NewJSONRequest builds a request with body encoded as JSON. A non-empty
// token is sent as a bearer token.
func NewJSONRequest(t testing.TB, method, path string, body any, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// DecodeResponse decodes a recorded JSON response into T.
func DecodeResponse[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}
