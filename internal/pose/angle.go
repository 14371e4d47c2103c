package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pushup.report/internal/units"
)

// ErrMissingLandmark is returned when a pose lacks a landmark needed for a
// joint angle.
var ErrMissingLandmark = errors.New("missing landmark")

// Angle returns the angle at mid formed by the segments mid→first and
// mid→last, in degrees within [0, 180].
//
// The heading of each segment is taken with atan2 and the difference is
// reflected into the acute/obtuse range, so the result does not depend on
// which side of the joint the limbs lie.
func Angle(first, mid, last Landmark) float64 {
	m := mid.Point()
	toLast := last.Point().Sub(m)
	toFirst := first.Point().Sub(m)

	radians := math.Atan2(toLast.Y, toLast.X) - math.Atan2(toFirst.Y, toFirst.X)
	degrees := math.Abs(units.DegreesFromRadians(radians))
	if degrees > 180.0 {
		degrees = 360.0 - degrees
	}
	return degrees
}

// BodyAngles holds the six joint angles the rep counter consumes, in degrees.
type BodyAngles struct {
	RightHip   float64 `json:"right_hip"`
	LeftHip    float64 `json:"left_hip"`
	RightKnee  float64 `json:"right_knee"`
	LeftKnee   float64 `json:"left_knee"`
	RightElbow float64 `json:"right_elbow"`
	LeftElbow  float64 `json:"left_elbow"`
}

type joint struct {
	first, mid, last LandmarkType
}

var (
	rightHipJoint   = joint{RightShoulder, RightHip, RightKnee}
	leftHipJoint    = joint{LeftShoulder, LeftHip, LeftKnee}
	rightKneeJoint  = joint{RightHip, RightKnee, RightAnkle}
	leftKneeJoint   = joint{LeftHip, LeftKnee, LeftAnkle}
	rightElbowJoint = joint{RightShoulder, RightElbow, RightWrist}
	leftElbowJoint  = joint{LeftShoulder, LeftElbow, LeftWrist}
)

func (p Pose) jointAngle(j joint) (float64, error) {
	var pts [3]Landmark
	for i, t := range [3]LandmarkType{j.first, j.mid, j.last} {
		l, ok := p.Landmark(t)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingLandmark, t)
		}
		pts[i] = l
	}
	return Angle(pts[0], pts[1], pts[2]), nil
}

// Angles computes the hip, knee and elbow angles for both sides of the body.
func (p Pose) Angles() (BodyAngles, error) {
	var a BodyAngles
	for _, target := range []struct {
		j   joint
		dst *float64
	}{
		{rightHipJoint, &a.RightHip},
		{leftHipJoint, &a.LeftHip},
		{rightKneeJoint, &a.RightKnee},
		{leftKneeJoint, &a.LeftKnee},
		{rightElbowJoint, &a.RightElbow},
		{leftElbowJoint, &a.LeftElbow},
	} {
		v, err := p.jointAngle(target.j)
		if err != nil {
			return BodyAngles{}, err
		}
		*target.dst = v
	}
	return a, nil
}
