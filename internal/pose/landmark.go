// Package pose defines the skeletal landmarks produced by the external pose
// estimator, the frames that carry them, and the joint-angle geometry used by
// the rep counter.
package pose

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// LandmarkType identifies one of the body joints reported by the estimator.
// The numeric order follows the 33-point body model.
type LandmarkType int

const (
	Nose LandmarkType = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinkyFinger
	RightPinkyFinger
	LeftIndexFinger
	RightIndexFinger
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftToe
	RightToe

	NumLandmarkTypes = int(RightToe) + 1
)

var landmarkNames = [NumLandmarkTypes]string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky_finger", "right_pinky_finger",
	"left_index_finger", "right_index_finger",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_toe", "right_toe",
}

var landmarkByName = func() map[string]LandmarkType {
	m := make(map[string]LandmarkType, NumLandmarkTypes)
	for i, name := range landmarkNames {
		m[name] = LandmarkType(i)
	}
	return m
}()

// Valid reports whether t is one of the known landmark types.
func (t LandmarkType) Valid() bool {
	return t >= 0 && int(t) < NumLandmarkTypes
}

func (t LandmarkType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("LandmarkType(%d)", int(t))
	}
	return landmarkNames[t]
}

// ParseLandmarkType looks up a landmark type by its wire name.
func ParseLandmarkType(name string) (LandmarkType, error) {
	t, ok := landmarkByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown landmark type %q", name)
	}
	return t, nil
}

// MarshalText encodes the landmark type as its wire name.
func (t LandmarkType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid landmark type %d", int(t))
	}
	return []byte(landmarkNames[t]), nil
}

// UnmarshalText decodes a wire name into a landmark type.
func (t *LandmarkType) UnmarshalText(b []byte) error {
	v, err := ParseLandmarkType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Landmark is a single estimated joint position in image pixel coordinates.
// Z is the estimator's relative depth and is not used for angles.
type Landmark struct {
	Type       LandmarkType `json:"type"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	Z          float64      `json:"z,omitempty"`
	Likelihood float64      `json:"likelihood,omitempty"`
}

// Point returns the landmark's 2D image position.
func (l Landmark) Point() r2.Point {
	return r2.Point{X: l.X, Y: l.Y}
}

// Pose is the set of landmarks detected for one person.
type Pose struct {
	Landmarks []Landmark `json:"landmarks"`
}

// Landmark returns the landmark of type t, if present.
func (p Pose) Landmark(t LandmarkType) (Landmark, bool) {
	for _, l := range p.Landmarks {
		if l.Type == t {
			return l, true
		}
	}
	return Landmark{}, false
}
