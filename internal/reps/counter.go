package reps

import (
	"sync"

	"github.com/banshee-data/pushup.report/internal/pose"
)

// Direction is the elbow motion classified for one pose.
type Direction string

const (
	// DirectionNone means form is off, so motion is not tracked.
	DirectionNone Direction = ""
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	// DirectionHold means form is fine but neither elbow moved past the
	// hysteresis; the previous direction label stays on screen.
	DirectionHold Direction = "hold"
)

// Feedback is everything the camera screen displays after one pose.
type Feedback struct {
	Angles    pose.BodyAngles `json:"angles"`
	Alignment Alignment       `json:"alignment"`
	Direction Direction       `json:"direction"`
	Counted   bool            `json:"counted"`
	Reps      int             `json:"reps"`

	FormMessage string `json:"form_message"`
	HipHint     string `json:"hip_hint"`
	KneeHint    string `json:"knee_hint"`
	MotionLabel string `json:"motion_label"`
	ElbowHint   string `json:"elbow_hint"`
}

// State is a snapshot of the counter's internal state.
type State struct {
	Reps           int     `json:"reps"`
	Up             bool    `json:"up"`
	Aligned        bool    `json:"aligned"`
	PrevRightElbow float64 `json:"prev_right_elbow"`
	PrevLeftElbow  float64 `json:"prev_left_elbow"`
}

// Counter tracks the up/down elbow motion across consecutive poses and
// counts a rep on each down→up switch made with valid alignment. It is safe
// for concurrent use.
type Counter struct {
	mu sync.Mutex
	th Thresholds

	reps      int
	up        bool
	aligned   bool
	prevRight float64
	prevLeft  float64

	motionLabel string
	elbowHint   string
}

// NewCounter creates a counter with both previous elbow angles at 180°.
func NewCounter(th Thresholds) *Counter {
	return &Counter{
		th:        th,
		prevRight: defaultPrevElbow,
		prevLeft:  defaultPrevElbow,
	}
}

// Thresholds returns the counter's configuration.
func (c *Counter) Thresholds() Thresholds {
	return c.th
}

// Observe feeds the angles of one detected pose into the state machine.
func (c *Counter) Observe(a pose.BodyAngles) Feedback {
	c.mu.Lock()
	defer c.mu.Unlock()

	align := CheckAlignment(a, c.th)
	c.aligned = align.Valid()

	fb := Feedback{
		Angles:      a,
		Alignment:   align,
		FormMessage: align.Message(),
		HipHint:     align.HipHint(),
		KneeHint:    align.KneeHint(),
	}

	rose := a.RightElbow-c.prevRight > c.th.Hysteresis || a.LeftElbow-c.prevLeft > c.th.Hysteresis
	fell := c.prevRight-a.RightElbow > c.th.Hysteresis || c.prevLeft-a.LeftElbow > c.th.Hysteresis

	switch {
	case rose && c.aligned:
		fb.Direction = DirectionUp
		c.motionLabel = MsgGoingUp
		c.elbowHint = ""
		if !c.up {
			c.up = true
			c.reps++
			fb.Counted = true
		}
	case fell && c.aligned:
		fb.Direction = DirectionDown
		c.motionLabel = MsgGoingDown
		if a.RightElbow > c.th.DepthTarget {
			c.elbowHint = MsgKeepGoing
		} else {
			c.elbowHint = MsgGoodDepth
		}
		c.up = false
	case !c.aligned:
		fb.Direction = DirectionNone
		c.motionLabel = ""
		c.elbowHint = ""
	default:
		fb.Direction = DirectionHold
	}

	c.prevRight = a.RightElbow
	c.prevLeft = a.LeftElbow

	fb.Reps = c.reps
	fb.MotionLabel = c.motionLabel
	fb.ElbowHint = c.elbowHint
	return fb
}

// ObservePose computes the joint angles of p and feeds them to Observe.
func (c *Counter) ObservePose(p pose.Pose) (Feedback, error) {
	a, err := p.Angles()
	if err != nil {
		return Feedback{}, err
	}
	return c.Observe(a), nil
}

// Reset restores the initial state: zero reps, not up, elbows at 180°.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reps = 0
	c.up = false
	c.aligned = false
	c.prevRight = defaultPrevElbow
	c.prevLeft = defaultPrevElbow
	c.motionLabel = ""
	c.elbowHint = ""
}

// Snapshot returns the current state.
func (c *Counter) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Reps:           c.reps,
		Up:             c.up,
		Aligned:        c.aligned,
		PrevRightElbow: c.prevRight,
		PrevLeftElbow:  c.prevLeft,
	}
}
