package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Camera is the capture device position the frame came from.
type Camera string

const (
	CameraBack  Camera = "back"
	CameraFront Camera = "front"
)

// ParseCamera validates a camera position name.
func ParseCamera(s string) (Camera, error) {
	switch Camera(s) {
	case CameraBack, CameraFront:
		return Camera(s), nil
	}
	return "", fmt.Errorf("unknown camera position %q", s)
}

// Frame is one estimator result: the poses found in a single video frame.
// Width and Height are the source image size in pixels; landmark coordinates
// are expressed in that space.
type Frame struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Camera    Camera    `json:"camera,omitempty"`
	Poses     []Pose    `json:"poses"`
}

// ErrInvalidFrame wraps validation failures from ParseFrame.
var ErrInvalidFrame = errors.New("invalid frame")

// ParseFrame decodes a single newline-delimited JSON frame.
func ParseFrame(line []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Frame{}, fmt.Errorf("failed to unmarshal frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks the frame dimensions and camera field.
func (f Frame) Validate() error {
	if f.Width < 0 || f.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %gx%g", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.Camera != "" {
		if _, err := ParseCamera(string(f.Camera)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
	}
	return nil
}

// HasPose reports whether at least one pose was detected.
func (f Frame) HasPose() bool {
	return len(f.Poses) > 0
}
