// Package reps classifies push-up form from joint angles and counts
// repetitions from elbow motion.
package reps

import "github.com/banshee-data/pushup.report/internal/pose"

// User-facing feedback strings.
const (
	MsgGoodForm      = "Nice form!"
	MsgBadForm       = "Careful, your form is off"
	MsgHipsHint      = "Bring your hips in line!"
	MsgKneesHint     = "Straighten your knees!"
	MsgGoingUp       = "Detected: Going Up"
	MsgGoingDown     = "Detected: Going Down"
	MsgKeepGoing     = "Keep going until your elbows are at least 90 deg"
	MsgGoodDepth     = "Good Job!"
	defaultPrevElbow = 180.0
)

// Thresholds holds the angle bands and motion limits, in degrees.
type Thresholds struct {
	HipMin      float64 `json:"hip_min_deg"`
	HipMax      float64 `json:"hip_max_deg"`
	KneeMin     float64 `json:"knee_min_deg"`
	KneeMax     float64 `json:"knee_max_deg"`
	Hysteresis  float64 `json:"elbow_hysteresis_deg"`
	DepthTarget float64 `json:"elbow_depth_deg"`
}

// DefaultThresholds returns the stock push-up bands: hips within
// [120, 180], knees within [160, 180], 10 degree elbow hysteresis and a
// 90 degree depth target.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HipMin:      120,
		HipMax:      180,
		KneeMin:     160,
		KneeMax:     180,
		Hysteresis:  10,
		DepthTarget: 90,
	}
}

// Alignment is the body-line classification for a single pose.
type Alignment struct {
	HipsStraight  bool `json:"hips_straight"`
	KneesStraight bool `json:"knees_straight"`
}

// Valid reports whether both hips and both knees are within their bands.
func (a Alignment) Valid() bool {
	return a.HipsStraight && a.KneesStraight
}

// Message is the overall form message shown to the user.
func (a Alignment) Message() string {
	if a.Valid() {
		return MsgGoodForm
	}
	return MsgBadForm
}

// HipHint returns the hip correction hint, or "" when the hips are fine.
func (a Alignment) HipHint() string {
	if a.HipsStraight {
		return ""
	}
	return MsgHipsHint
}

// KneeHint returns the knee correction hint, or "" when the knees are fine.
func (a Alignment) KneeHint() string {
	if a.KneesStraight {
		return ""
	}
	return MsgKneesHint
}

func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// CheckAlignment classifies the hip and knee angles against th. Bands are
// inclusive on both ends.
func CheckAlignment(a pose.BodyAngles, th Thresholds) Alignment {
	return Alignment{
		HipsStraight: within(a.RightHip, th.HipMin, th.HipMax) &&
			within(a.LeftHip, th.HipMin, th.HipMax),
		KneesStraight: within(a.RightKnee, th.KneeMin, th.KneeMax) &&
			within(a.LeftKnee, th.KneeMin, th.KneeMax),
	}
}
