package pose

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/pushup.report/internal/units"
)

// SyntheticAngles describes the joint angles a synthesized pose should have.
type SyntheticAngles struct {
	Hip        float64
	Knee       float64
	RightElbow float64
	LeftElbow  float64
}

// segment lengths in pixels for the synthetic side-view body
const (
	torsoLen    = 150.0
	thighLen    = 120.0
	shinLen     = 110.0
	upperArmLen = 80.0
	forearmLen  = 70.0
)

func heading(deg float64) r2.Point {
	r := units.RadiansFromDegrees(deg)
	return r2.Point{X: math.Cos(r), Y: math.Sin(r)}
}

func headingOf(p r2.Point) float64 {
	return units.DegreesFromRadians(math.Atan2(p.Y, p.X))
}

// Synthesize builds a side-view pose whose hip, knee and elbow angles match a.
// It is used by the fixture generator and by tests; every landmark type is
// populated so the full skeleton can be drawn.
func Synthesize(a SyntheticAngles) Pose {
	hip := r2.Point{X: 320, Y: 300}
	shoulder := hip.Add(heading(180).Mul(torsoLen))
	knee := hip.Add(heading(180 - a.Hip).Mul(thighLen))
	kneeToHip := headingOf(hip.Sub(knee))
	ankle := knee.Add(heading(kneeToHip + a.Knee).Mul(shinLen))
	heel := ankle.Add(r2.Point{X: 6, Y: 4})
	toe := ankle.Add(r2.Point{X: 14, Y: 8})

	arm := func(elbowDeg float64) (elbow, wrist r2.Point) {
		elbow = shoulder.Add(heading(90).Mul(upperArmLen))
		elbowToShoulder := headingOf(shoulder.Sub(elbow))
		wrist = elbow.Add(heading(elbowToShoulder + elbowDeg).Mul(forearmLen))
		return elbow, wrist
	}
	rightElbow, rightWrist := arm(a.RightElbow)
	leftElbow, leftWrist := arm(a.LeftElbow)

	head := shoulder.Add(r2.Point{X: -40, Y: -10})
	at := map[LandmarkType]r2.Point{
		Nose:             head,
		LeftEyeInner:     head.Add(r2.Point{X: 2, Y: -6}),
		LeftEye:          head.Add(r2.Point{X: 4, Y: -7}),
		LeftEyeOuter:     head.Add(r2.Point{X: 6, Y: -7}),
		RightEyeInner:    head.Add(r2.Point{X: -2, Y: -6}),
		RightEye:         head.Add(r2.Point{X: -4, Y: -7}),
		RightEyeOuter:    head.Add(r2.Point{X: -6, Y: -7}),
		LeftEar:          head.Add(r2.Point{X: 14, Y: -4}),
		RightEar:         head.Add(r2.Point{X: -14, Y: -4}),
		MouthLeft:        head.Add(r2.Point{X: 3, Y: 6}),
		MouthRight:       head.Add(r2.Point{X: -3, Y: 6}),
		LeftShoulder:     shoulder,
		RightShoulder:    shoulder,
		LeftElbow:        leftElbow,
		RightElbow:       rightElbow,
		LeftWrist:        leftWrist,
		RightWrist:       rightWrist,
		LeftPinkyFinger:  leftWrist.Add(r2.Point{X: -6, Y: 6}),
		RightPinkyFinger: rightWrist.Add(r2.Point{X: -6, Y: 6}),
		LeftIndexFinger:  leftWrist.Add(r2.Point{X: -8, Y: 2}),
		RightIndexFinger: rightWrist.Add(r2.Point{X: -8, Y: 2}),
		LeftThumb:        leftWrist.Add(r2.Point{X: -4, Y: -3}),
		RightThumb:       rightWrist.Add(r2.Point{X: -4, Y: -3}),
		LeftHip:          hip,
		RightHip:         hip,
		LeftKnee:         knee,
		RightKnee:        knee,
		LeftAnkle:        ankle,
		RightAnkle:       ankle,
		LeftHeel:         heel,
		RightHeel:        heel,
		LeftToe:          toe,
		RightToe:         toe,
	}

	p := Pose{Landmarks: make([]Landmark, 0, NumLandmarkTypes)}
	for i := 0; i < NumLandmarkTypes; i++ {
		t := LandmarkType(i)
		pt := at[t]
		p.Landmarks = append(p.Landmarks, Landmark{Type: t, X: pt.X, Y: pt.Y, Likelihood: 0.99})
	}
	return p
}
