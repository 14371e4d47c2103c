// Package session drives a live push-up session: it takes frames from the
// pose estimator, rebuilds the skeleton overlay, feeds the rep counter and
// publishes the resulting updates.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pushup.report/internal/monitoring"
	"github.com/banshee-data/pushup.report/internal/overlay"
	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/reps"
	"github.com/banshee-data/pushup.report/internal/timeutil"
)

var logf = monitoring.Component("session")

// Detector is the estimator model variant.
type Detector string

const (
	DetectorFast     Detector = "fast"
	DetectorAccurate Detector = "accurate"
)

// ParseDetector validates a detector mode name.
func ParseDetector(s string) (Detector, error) {
	switch Detector(s) {
	case DetectorFast, DetectorAccurate:
		return Detector(s), nil
	}
	return "", fmt.Errorf("unknown detector mode %q", s)
}

// Label is the human readable name shown in the detector picker.
func (d Detector) Label() string {
	switch d {
	case DetectorFast:
		return "Pose, fast"
	case DetectorAccurate:
		return "Pose, accurate"
	}
	return string(d)
}

var (
	ErrRunning    = errors.New("session already running")
	ErrNotRunning = errors.New("session not running")
)

const subscriberBuffer = 8

// Update is the outcome of processing one frame.
type Update struct {
	Seq      uint64      `json:"seq"`
	At       time.Time   `json:"at"`
	Camera   pose.Camera `json:"camera"`
	Detector Detector    `json:"detector"`
	Poses    int         `json:"poses"`
	// Feedback is nil for frames without a usable pose.
	Feedback *reps.Feedback     `json:"feedback,omitempty"`
	Overlay  overlay.Annotation `json:"overlay"`
}

// Stats are running counters for the controller.
type Stats struct {
	Running         bool        `json:"running"`
	WorkoutID       string      `json:"workout_id,omitempty"`
	Detector        Detector    `json:"detector"`
	Camera          pose.Camera `json:"camera"`
	FramesReceived  uint64      `json:"frames_received"`
	FramesProcessed uint64      `json:"frames_processed"`
	FramesDropped   uint64      `json:"frames_dropped"`
	FramesInvalid   uint64      `json:"frames_invalid"`
	PosesSeen       uint64      `json:"poses_seen"`
	Reps            int         `json:"reps"`
}

// Result summarises a workout closed by Stop.
type Result struct {
	Workout    Workout   `json:"workout"`
	Reps       int       `json:"reps"`
	FinishedAt time.Time `json:"finished_at"`
}

// Options configure a Controller. Zero values fall back to defaults.
type Options struct {
	Thresholds reps.Thresholds
	Detector   Detector
	Camera     pose.Camera
	// SampleEvery records one angle sample per N poses during a workout.
	// Zero disables sampling.
	SampleEvery int
	Commands    Commander
	Recorder    Recorder
	Clock       timeutil.Clock
}

// Controller owns the rep counter for a single camera session.
type Controller struct {
	counter     *reps.Counter
	commands    Commander
	recorder    Recorder
	clock       timeutil.Clock
	sampleEvery int
	inbox       *inbox

	// processMu serialises frame processing between the loop and Process.
	processMu sync.Mutex

	mu          sync.Mutex
	detector    Detector
	camera      pose.Camera
	running     bool
	workout     *Workout
	cancel      context.CancelFunc
	done        chan struct{}
	latest      *Update
	stats       Stats
	minElbow    float64
	sinceSample int

	subMu       sync.Mutex
	subscribers map[string]chan Update
}

// New creates a stopped Controller.
func New(opts Options) *Controller {
	th := opts.Thresholds
	if th == (reps.Thresholds{}) {
		th = reps.DefaultThresholds()
	}
	if opts.Detector == "" {
		opts.Detector = DetectorAccurate
	}
	if opts.Camera == "" {
		opts.Camera = pose.CameraBack
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Controller{
		counter:     reps.NewCounter(th),
		commands:    opts.Commands,
		recorder:    opts.Recorder,
		clock:       opts.Clock,
		sampleEvery: opts.SampleEvery,
		inbox:       newInbox(),
		detector:    opts.Detector,
		camera:      opts.Camera,
		minElbow:    math.Inf(1),
		subscribers: make(map[string]chan Update),
	}
}

// Start resets the counter, opens a workout for userID (which may be empty)
// and begins processing submitted frames.
func (c *Controller) Start(ctx context.Context, userID string) (Workout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return Workout{}, ErrRunning
	}

	w := Workout{
		ID:        uuid.NewString(),
		UserID:    userID,
		Detector:  c.detector,
		Camera:    c.camera,
		StartedAt: c.clock.Now().UTC(),
	}
	if c.recorder != nil {
		if err := c.recorder.StartWorkout(ctx, w); err != nil {
			return Workout{}, fmt.Errorf("failed to start workout: %w", err)
		}
	}

	c.counter.Reset()
	c.inbox.clear()
	c.minElbow = math.Inf(1)
	c.sinceSample = 0
	c.latest = nil
	c.workout = &w
	c.running = true

	// The loop outlives the request that started it.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(loopCtx, c.done)

	logf("started workout %s (detector=%s camera=%s)", w.ID, w.Detector, w.Camera)
	return w, nil
}

// Stop halts processing and finishes the open workout.
func (c *Controller) Stop(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return Result{}, ErrNotRunning
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done

	// Frames handed to Process concurrently finish before the workout closes.
	c.processMu.Lock()
	defer c.processMu.Unlock()

	c.mu.Lock()
	w := *c.workout
	c.running = false
	c.workout = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()
	c.inbox.clear()

	res := Result{
		Workout:    w,
		Reps:       c.counter.Snapshot().Reps,
		FinishedAt: c.clock.Now().UTC(),
	}
	if c.recorder != nil {
		if err := c.recorder.FinishWorkout(ctx, w.ID, res.Reps, res.FinishedAt); err != nil {
			return res, fmt.Errorf("failed to finish workout: %w", err)
		}
	}
	logf("finished workout %s with %d reps", w.ID, res.Reps)
	return res, nil
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.inbox.ready:
			if f, ok := c.inbox.take(); ok {
				c.process(ctx, f)
			}
		}
	}
}

// Running reports whether Start has been called without a matching Stop.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Submit queues f for the processing loop. If a previous frame is still
// waiting it is discarded. Frames submitted while stopped are ignored.
func (c *Controller) Submit(f pose.Frame) bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	c.stats.FramesReceived++
	c.mu.Unlock()

	c.inbox.put(f)
	return true
}

// Feed parses estimator lines and submits each frame until lines is closed
// or ctx is done.
func (c *Controller) Feed(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			f, err := pose.ParseFrame([]byte(line))
			if err != nil {
				c.mu.Lock()
				c.stats.FramesInvalid++
				c.mu.Unlock()
				logf("skipping frame: %v", err)
				continue
			}
			c.Submit(f)
		}
	}
}

// Process handles f synchronously and returns the resulting update. It works
// whether or not the session is running; reps and samples are only recorded
// while a workout is open.
func (c *Controller) Process(ctx context.Context, f pose.Frame) (Update, error) {
	if err := f.Validate(); err != nil {
		return Update{}, err
	}
	c.mu.Lock()
	c.stats.FramesReceived++
	c.mu.Unlock()
	return c.process(ctx, f), nil
}

func (c *Controller) process(ctx context.Context, f pose.Frame) Update {
	c.processMu.Lock()
	defer c.processMu.Unlock()

	c.mu.Lock()
	camera, detector := c.camera, c.detector
	var workout *Workout
	if c.workout != nil {
		w := *c.workout
		workout = &w
	}
	c.mu.Unlock()

	if f.Camera == "" {
		f.Camera = camera
	}
	at := f.Timestamp
	if at.IsZero() {
		at = c.clock.Now().UTC()
	}

	u := Update{
		Seq:      f.Seq,
		At:       at,
		Camera:   f.Camera,
		Detector: detector,
		Poses:    len(f.Poses),
		Overlay:  overlay.ForFrame(f),
	}

	var posesSeen, invalid uint64
	for _, p := range f.Poses {
		angles, err := p.Angles()
		if err != nil {
			invalid++
			logf("frame %d: %v", f.Seq, err)
			continue
		}
		posesSeen++
		fb := c.counter.Observe(angles)
		if workout != nil {
			c.record(ctx, *workout, f.Seq, at, fb)
		}
		u.Feedback = &fb
	}

	c.mu.Lock()
	c.stats.FramesProcessed++
	c.stats.PosesSeen += posesSeen
	if invalid > 0 && posesSeen == 0 {
		c.stats.FramesInvalid++
	}
	c.latest = &u
	c.mu.Unlock()

	c.publish(u)
	return u
}

// record persists reps and periodic samples for the open workout.
func (c *Controller) record(ctx context.Context, w Workout, seq uint64, at time.Time, fb reps.Feedback) {
	c.mu.Lock()
	if fb.Angles.RightElbow < c.minElbow {
		c.minElbow = fb.Angles.RightElbow
	}
	depth := c.minElbow
	if fb.Counted {
		c.minElbow = math.Inf(1)
	}
	sample := false
	if c.sampleEvery > 0 {
		c.sinceSample++
		if c.sinceSample >= c.sampleEvery {
			c.sinceSample = 0
			sample = true
		}
	}
	c.mu.Unlock()

	if c.recorder == nil {
		return
	}
	aligned := fb.Alignment.Valid()
	if fb.Counted {
		rep := Rep{
			WorkoutID: w.ID,
			Number:    fb.Reps,
			Seq:       seq,
			At:        at,
			Angles:    fb.Angles,
			DepthDeg:  depth,
			Aligned:   aligned,
		}
		if err := c.recorder.RecordRep(ctx, rep); err != nil {
			logf("failed to record rep %d for workout %s: %v", rep.Number, w.ID, err)
		}
	}
	if sample {
		s := Sample{WorkoutID: w.ID, Seq: seq, At: at, Angles: fb.Angles, Aligned: aligned}
		if err := c.recorder.RecordAngleSample(ctx, s); err != nil {
			logf("failed to record angle sample for workout %s: %v", w.ID, err)
		}
	}
}

// SetCamera switches the capture device. Pending frames and the current
// overlay are discarded.
func (c *Controller) SetCamera(cam pose.Camera) error {
	if _, err := pose.ParseCamera(string(cam)); err != nil {
		return err
	}
	if c.commands != nil {
		if err := c.commands.SendCommand("camera " + string(cam)); err != nil {
			return fmt.Errorf("failed to switch camera: %w", err)
		}
	}

	c.inbox.clear()
	c.mu.Lock()
	c.camera = cam
	var cleared *Update
	if c.latest != nil {
		u := *c.latest
		u.Camera = cam
		u.Overlay = overlay.Annotation{}
		c.latest = &u
		cleared = &u
	}
	c.mu.Unlock()

	if cleared != nil {
		c.publish(*cleared)
	}
	return nil
}

// SetDetector selects the estimator model variant.
func (c *Controller) SetDetector(d Detector) error {
	if _, err := ParseDetector(string(d)); err != nil {
		return err
	}
	if c.commands != nil {
		if err := c.commands.SendCommand("mode " + string(d)); err != nil {
			return fmt.Errorf("failed to switch detector: %w", err)
		}
	}
	c.mu.Lock()
	c.detector = d
	c.mu.Unlock()
	return nil
}

// Camera returns the active capture device.
func (c *Controller) Camera() pose.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera
}

// Detector returns the active detector mode.
func (c *Controller) Detector() Detector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detector
}

// Reset restores the counter to its initial state. Rep numbers are unique
// within a workout, so resetting while one is open fails with ErrRunning;
// Start already begins every workout from zero.
func (c *Controller) Reset() error {
	c.processMu.Lock()
	defer c.processMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrRunning
	}
	c.counter.Reset()
	c.minElbow = math.Inf(1)
	return nil
}

// Counter exposes the counter state.
func (c *Controller) Counter() reps.State {
	return c.counter.Snapshot()
}

// Thresholds returns the counter configuration.
func (c *Controller) Thresholds() reps.Thresholds {
	return c.counter.Thresholds()
}

// Latest returns the most recent update.
func (c *Controller) Latest() (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return Update{}, false
	}
	return *c.latest, true
}

// Stats returns a copy of the controller counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	s := c.stats
	s.Running = c.running
	s.Detector = c.detector
	s.Camera = c.camera
	if c.workout != nil {
		s.WorkoutID = c.workout.ID
	}
	c.mu.Unlock()
	s.FramesDropped = c.inbox.droppedCount()
	s.Reps = c.counter.Snapshot().Reps
	return s
}

// Subscribe returns a channel of updates. Updates are dropped for
// subscribers that fall behind.
func (c *Controller) Subscribe() (string, <-chan Update) {
	id := uuid.NewString()
	ch := make(chan Update, subscriberBuffer)
	c.subMu.Lock()
	c.subscribers[id] = ch
	c.subMu.Unlock()
	return id, ch
}

// Unsubscribe closes and removes a subscriber.
func (c *Controller) Unsubscribe(id string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if ch, ok := c.subscribers[id]; ok {
		close(ch)
		delete(c.subscribers, id)
	}
}

func (c *Controller) publish(u Update) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}
