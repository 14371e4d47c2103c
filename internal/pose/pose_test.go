package pose

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const angleTolerance = 1e-6

func lm(t LandmarkType, x, y float64) Landmark {
	return Landmark{Type: t, X: x, Y: y}
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name             string
		first, mid, last Landmark
		want             float64
	}{
		{
			name:  "straight line",
			first: lm(LeftShoulder, 0, 0), mid: lm(LeftElbow, 1, 0), last: lm(LeftWrist, 2, 0),
			want: 180,
		},
		{
			name:  "right angle",
			first: lm(LeftShoulder, 0, 1), mid: lm(LeftElbow, 0, 0), last: lm(LeftWrist, 1, 0),
			want: 90,
		},
		{
			name:  "right angle mirrored",
			first: lm(LeftShoulder, 1, 0), mid: lm(LeftElbow, 0, 0), last: lm(LeftWrist, 0, 1),
			want: 90,
		},
		{
			name:  "reflex difference is reflected",
			first: lm(LeftShoulder, -1, -0.01), mid: lm(LeftElbow, 0, 0), last: lm(LeftWrist, -1, 0.01),
			want: 2 * 0.5729386976834859,
		},
		{
			name:  "45 degrees",
			first: lm(LeftShoulder, 1, 0), mid: lm(LeftElbow, 0, 0), last: lm(LeftWrist, 1, 1),
			want: 45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.first, tt.mid, tt.last)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 180.0)
		})
	}
}

func TestAngleIsSymmetric(t *testing.T) {
	a, b, c := lm(LeftHip, 3, 7), lm(LeftKnee, 5, 5), lm(LeftAnkle, 9, 4)
	assert.InDelta(t, Angle(a, b, c), Angle(c, b, a), angleTolerance)
}

func TestSynthesizeProducesRequestedAngles(t *testing.T) {
	cases := []SyntheticAngles{
		{Hip: 175, Knee: 178, RightElbow: 170, LeftElbow: 165},
		{Hip: 130, Knee: 165, RightElbow: 85, LeftElbow: 95},
		{Hip: 100, Knee: 120, RightElbow: 40, LeftElbow: 140},
	}

	for _, want := range cases {
		p := Synthesize(want)
		require.Len(t, p.Landmarks, NumLandmarkTypes)

		got, err := p.Angles()
		require.NoError(t, err)
		assert.InDelta(t, want.Hip, got.RightHip, angleTolerance)
		assert.InDelta(t, want.Hip, got.LeftHip, angleTolerance)
		assert.InDelta(t, want.Knee, got.RightKnee, angleTolerance)
		assert.InDelta(t, want.Knee, got.LeftKnee, angleTolerance)
		assert.InDelta(t, want.RightElbow, got.RightElbow, angleTolerance)
		assert.InDelta(t, want.LeftElbow, got.LeftElbow, angleTolerance)
	}
}

func TestAnglesMissingLandmark(t *testing.T) {
	p := Synthesize(SyntheticAngles{Hip: 170, Knee: 170, RightElbow: 170, LeftElbow: 170})
	filtered := p.Landmarks[:0:0]
	for _, l := range p.Landmarks {
		if l.Type != LeftKnee {
			filtered = append(filtered, l)
		}
	}
	p.Landmarks = filtered

	_, err := p.Angles()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingLandmark))
	assert.Contains(t, err.Error(), "left_knee")
}

func TestLandmarkTypeText(t *testing.T) {
	for i := 0; i < NumLandmarkTypes; i++ {
		lt := LandmarkType(i)
		b, err := lt.MarshalText()
		require.NoError(t, err)

		var back LandmarkType
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, lt, back)
	}

	_, err := LandmarkType(99).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "LandmarkType(99)", LandmarkType(99).String())

	var lt LandmarkType
	assert.Error(t, lt.UnmarshalText([]byte("left_tail")))
}

func TestParseFrame(t *testing.T) {
	line := []byte(`{"seq":7,"ts":"2026-03-01T10:00:00Z","width":480,"height":640,"camera":"front",
		"poses":[{"landmarks":[{"type":"left_wrist","x":10,"y":20,"likelihood":0.8}]}]}`)

	f, err := ParseFrame(line)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), f.Seq)
	assert.Equal(t, CameraFront, f.Camera)
	assert.True(t, f.HasPose())

	l, ok := f.Poses[0].Landmark(LeftWrist)
	require.True(t, ok)
	assert.Equal(t, 10.0, l.X)
	_, ok = f.Poses[0].Landmark(RightWrist)
	assert.False(t, ok)
}

func TestParseFrameRejects(t *testing.T) {
	for name, line := range map[string]string{
		"not json":         `seq=1`,
		"unknown landmark": `{"poses":[{"landmarks":[{"type":"tail","x":1,"y":1}]}]}`,
		"negative width":   `{"width":-1,"height":10,"poses":[]}`,
		"bad camera":       `{"camera":"side","poses":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFrame([]byte(line))
			assert.Error(t, err)
		})
	}
}

func TestFrameRoundTripKeepsLandmarkNames(t *testing.T) {
	f := Frame{Seq: 1, Width: 10, Height: 10, Poses: []Pose{{Landmarks: []Landmark{lm(RightHeel, 1, 2)}}}}
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"right_heel"`)
}

func TestConnectionsCopy(t *testing.T) {
	a := Connections()
	a[0] = Connection{}
	b := Connections()
	assert.Equal(t, Connection{LeftEar, LeftEyeOuter}, b[0])
	for _, c := range b {
		assert.True(t, c.From.Valid())
		assert.True(t, c.To.Valid())
	}
}
