// Package overlay turns a detected pose into the skeleton annotation drawn on
// top of the camera preview.
package overlay

import "github.com/banshee-data/pushup.report/internal/pose"

// Drawing constants for the annotation layer.
const (
	LineWidth      = 3.0
	SmallDotRadius = 4.0
	SegmentColor   = "green"
	DotColor       = "blue"
)

// Point is a position normalised to the preview, (0,0) top-left and (1,1)
// bottom-right.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a line drawn between two landmarks.
type Segment struct {
	From  Point   `json:"from"`
	To    Point   `json:"to"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// Dot marks a single landmark.
type Dot struct {
	At     Point             `json:"at"`
	Type   pose.LandmarkType `json:"type"`
	Color  string            `json:"color"`
	Radius float64           `json:"radius"`
}

// Annotation is the complete overlay for one frame. An empty annotation
// clears whatever the previous frame drew.
type Annotation struct {
	Segments []Segment `json:"segments"`
	Dots     []Dot     `json:"dots"`
}

// Empty reports whether nothing is drawn.
func (a Annotation) Empty() bool {
	return len(a.Segments) == 0 && len(a.Dots) == 0
}

// normalize maps an image-space landmark into preview space. A zero frame
// dimension means the estimator already reports normalised coordinates. The
// front camera preview is mirrored horizontally.
func normalize(l pose.Landmark, width, height float64, mirrored bool) Point {
	p := Point{X: l.X, Y: l.Y}
	if width > 0 {
		p.X /= width
	}
	if height > 0 {
		p.Y /= height
	}
	if mirrored {
		p.X = 1 - p.X
	}
	return p
}

// Build returns the annotation for a single pose: a segment for every
// skeleton connection whose endpoints are both present, and a dot for every
// landmark.
func Build(p pose.Pose, width, height float64, mirrored bool) Annotation {
	var a Annotation
	for _, c := range pose.Connections() {
		from, ok := p.Landmark(c.From)
		if !ok {
			continue
		}
		to, ok := p.Landmark(c.To)
		if !ok {
			continue
		}
		a.Segments = append(a.Segments, Segment{
			From:  normalize(from, width, height, mirrored),
			To:    normalize(to, width, height, mirrored),
			Color: SegmentColor,
			Width: LineWidth,
		})
	}
	for _, l := range p.Landmarks {
		a.Dots = append(a.Dots, Dot{
			At:     normalize(l, width, height, mirrored),
			Type:   l.Type,
			Color:  DotColor,
			Radius: SmallDotRadius,
		})
	}
	return a
}

// ForFrame builds the annotation for every pose in f. Frames without a pose
// yield an empty annotation.
func ForFrame(f pose.Frame) Annotation {
	mirrored := f.Camera == pose.CameraFront
	var out Annotation
	for _, p := range f.Poses {
		a := Build(p, f.Width, f.Height, mirrored)
		out.Segments = append(out.Segments, a.Segments...)
		out.Dots = append(out.Dots, a.Dots...)
	}
	return out
}
