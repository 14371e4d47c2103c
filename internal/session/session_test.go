package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/reps"
	"github.com/banshee-data/pushup.report/internal/testutil"
	"github.com/banshee-data/pushup.report/internal/timeutil"
)

type fakeRecorder struct {
	mu       sync.Mutex
	started  []Workout
	reps     []Rep
	samples  []Sample
	finished map[string]int
	startErr error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{finished: map[string]int{}}
}

func (r *fakeRecorder) StartWorkout(_ context.Context, w Workout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started = append(r.started, w)
	return nil
}

func (r *fakeRecorder) RecordRep(_ context.Context, rep Rep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reps = append(r.reps, rep)
	return nil
}

func (r *fakeRecorder) RecordAngleSample(_ context.Context, s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return nil
}

func (r *fakeRecorder) FinishWorkout(_ context.Context, id string, n int, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[id] = n
	return nil
}

type fakeCommander struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (c *fakeCommander) SendCommand(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.commands = append(c.commands, cmd)
	return nil
}

func frameWithElbows(seq uint64, elbow float64) pose.Frame {
	return testutil.PushupFrame(seq, elbow)
}

func nextUpdate(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func TestParseDetector(t *testing.T) {
	d, err := ParseDetector("fast")
	require.NoError(t, err)
	assert.Equal(t, DetectorFast, d)
	assert.Equal(t, "Pose, fast", d.Label())
	assert.Equal(t, "Pose, accurate", DetectorAccurate.Label())

	_, err = ParseDetector("slow")
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DetectorAccurate, c.Detector())
	assert.Equal(t, pose.CameraBack, c.Camera())
	assert.Equal(t, reps.DefaultThresholds(), c.Thresholds())
	assert.False(t, c.Running())

	_, ok := c.Latest()
	assert.False(t, ok)
}

func TestProcess_CountsRepWithoutWorkout(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()

	u, err := c.Process(ctx, frameWithElbows(1, 175))
	require.NoError(t, err)
	require.NotNil(t, u.Feedback)
	assert.Equal(t, reps.DirectionHold, u.Feedback.Direction)
	assert.Equal(t, pose.CameraBack, u.Camera)
	assert.NotEmpty(t, u.Overlay.Segments)
	assert.Len(t, u.Overlay.Dots, pose.NumLandmarkTypes)

	u, err = c.Process(ctx, frameWithElbows(2, 80))
	require.NoError(t, err)
	assert.Equal(t, reps.DirectionDown, u.Feedback.Direction)
	assert.Equal(t, reps.MsgGoodDepth, u.Feedback.ElbowHint)

	u, err = c.Process(ctx, frameWithElbows(3, 170))
	require.NoError(t, err)
	assert.Equal(t, reps.DirectionUp, u.Feedback.Direction)
	assert.True(t, u.Feedback.Counted)
	assert.Equal(t, 1, u.Feedback.Reps)

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(3), latest.Seq)

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.FramesReceived)
	assert.Equal(t, uint64(3), stats.FramesProcessed)
	assert.Equal(t, uint64(3), stats.PosesSeen)
	assert.Equal(t, 1, stats.Reps)
	assert.False(t, stats.Running)
}

func TestProcess_NoPoseLeavesCounterAlone(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()

	_, err := c.Process(ctx, frameWithElbows(1, 120))
	require.NoError(t, err)
	before := c.Counter()

	u, err := c.Process(ctx, pose.Frame{Seq: 2})
	require.NoError(t, err)
	assert.Nil(t, u.Feedback)
	assert.True(t, u.Overlay.Empty())
	assert.Equal(t, before, c.Counter())
	assert.Equal(t, uint64(2), c.Stats().FramesProcessed)
}

func TestProcess_RejectsInvalidFrame(t *testing.T) {
	c := New(Options{})
	_, err := c.Process(context.Background(), pose.Frame{Width: -1})
	assert.ErrorIs(t, err, pose.ErrInvalidFrame)
}

func TestProcess_SkipsIncompletePose(t *testing.T) {
	c := New(Options{})
	p := pose.Synthesize(pose.SyntheticAngles{Hip: 170, Knee: 175, RightElbow: 90, LeftElbow: 90})
	p.Landmarks = p.Landmarks[:10]

	u, err := c.Process(context.Background(), pose.Frame{Seq: 1, Poses: []pose.Pose{p}})
	require.NoError(t, err)
	assert.Nil(t, u.Feedback)
	assert.Equal(t, uint64(1), c.Stats().FramesInvalid)
	assert.Equal(t, reps.State{Reps: 0, PrevRightElbow: 180, PrevLeftElbow: 180}, c.Counter())
}

func TestProcess_FrontCameraMirrorsOverlay(t *testing.T) {
	back := New(Options{})
	front := New(Options{Camera: pose.CameraFront})
	f := frameWithElbows(1, 90)

	ub, err := back.Process(context.Background(), f)
	require.NoError(t, err)
	uf, err := front.Process(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, pose.CameraFront, uf.Camera)
	assert.InDelta(t, 1-ub.Overlay.Dots[0].At.X, uf.Overlay.Dots[0].At.X, 1e-9)
}

func TestStartStop_RecordsWorkout(t *testing.T) {
	rec := newFakeRecorder()
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	c := New(Options{Recorder: rec, Clock: clock, SampleEvery: 2})
	ctx := context.Background()

	_, updates := c.Subscribe()

	w, err := c.Start(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", w.UserID)
	assert.Equal(t, DetectorAccurate, w.Detector)
	assert.True(t, c.Running())

	_, err = c.Start(ctx, "user-1")
	assert.ErrorIs(t, err, ErrRunning)

	for i, elbow := range []float64{175, 80, 170, 85} {
		require.True(t, c.Submit(frameWithElbows(uint64(i+1), elbow)))
		u := nextUpdate(t, updates)
		assert.Equal(t, uint64(i+1), u.Seq)
	}
	assert.Equal(t, w.ID, c.Stats().WorkoutID)

	res, err := c.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reps)
	assert.Equal(t, w.ID, res.Workout.ID)
	assert.False(t, c.Running())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.started, 1)
	assert.Equal(t, 1, rec.finished[w.ID])
	require.Len(t, rec.reps, 1)
	assert.Equal(t, 1, rec.reps[0].Number)
	assert.Equal(t, uint64(3), rec.reps[0].Seq)
	assert.InDelta(t, 80, rec.reps[0].DepthDeg, 0.01)
	assert.True(t, rec.reps[0].Aligned)
	assert.Len(t, rec.samples, 2)

	_, err = c.Stop(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, c.Submit(frameWithElbows(9, 170)), "frames are ignored while stopped")
}

func TestStart_ResetsCounter(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	for i, elbow := range []float64{80, 170} {
		_, err := c.Process(ctx, frameWithElbows(uint64(i), elbow))
		require.NoError(t, err)
	}
	require.Equal(t, 1, c.Counter().Reps)

	_, err := c.Start(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Counter().Reps)
	_, err = c.Stop(ctx)
	require.NoError(t, err)
}

func TestStart_RecorderError(t *testing.T) {
	rec := newFakeRecorder()
	rec.startErr = errors.New("disk full")
	c := New(Options{Recorder: rec})

	_, err := c.Start(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, c.Running())
}

func TestFeed_ParsesLines(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	_, updates := c.Subscribe()
	_, err := c.Start(ctx, "")
	require.NoError(t, err)
	defer c.Stop(ctx)

	lines := make(chan string, 2)
	lines <- "not json"
	lines <- `{"seq":42,"width":640,"height":480,"poses":[]}`
	close(lines)
	c.Feed(ctx, lines)

	u := nextUpdate(t, updates)
	assert.Equal(t, uint64(42), u.Seq)
	assert.Nil(t, u.Feedback)
	assert.Equal(t, uint64(1), c.Stats().FramesInvalid)
}

func TestSetCamera(t *testing.T) {
	cmd := &fakeCommander{}
	c := New(Options{Commands: cmd})
	_, err := c.Process(context.Background(), frameWithElbows(1, 90))
	require.NoError(t, err)
	_, updates := c.Subscribe()

	require.NoError(t, c.SetCamera(pose.CameraFront))
	assert.Equal(t, pose.CameraFront, c.Camera())
	assert.Equal(t, []string{"camera front"}, cmd.commands)

	u := nextUpdate(t, updates)
	assert.True(t, u.Overlay.Empty())
	latest, _ := c.Latest()
	assert.True(t, latest.Overlay.Empty())

	assert.Error(t, c.SetCamera("side"))

	cmd.err = errors.New("unplugged")
	assert.Error(t, c.SetCamera(pose.CameraBack))
	assert.Equal(t, pose.CameraFront, c.Camera())
}

func TestSetDetector(t *testing.T) {
	cmd := &fakeCommander{}
	c := New(Options{Commands: cmd})

	require.NoError(t, c.SetDetector(DetectorFast))
	assert.Equal(t, DetectorFast, c.Detector())
	assert.Equal(t, []string{"mode fast"}, cmd.commands)
	assert.Error(t, c.SetDetector("medium"))
}

func TestReset(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	for i, elbow := range []float64{80, 170} {
		_, err := c.Process(ctx, frameWithElbows(uint64(i), elbow))
		require.NoError(t, err)
	}
	require.NoError(t, c.Reset())
	assert.Equal(t, reps.State{PrevRightElbow: 180, PrevLeftElbow: 180}, c.Counter())
}

func TestReset_RejectedDuringWorkout(t *testing.T) {
	rec := newFakeRecorder()
	c := New(Options{Recorder: rec})
	ctx := context.Background()

	w, err := c.Start(ctx, "")
	require.NoError(t, err)
	for _, f := range testutil.PushupCycle(1, 2) {
		_, err := c.Process(ctx, f)
		require.NoError(t, err)
	}
	assert.ErrorIs(t, c.Reset(), ErrRunning)
	assert.Equal(t, 2, c.Counter().Reps, "counter survives a rejected reset")

	for _, f := range testutil.PushupCycle(10, 2) {
		_, err := c.Process(ctx, f)
		require.NoError(t, err)
	}
	res, err := c.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Reps)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 4, rec.finished[w.ID])
	numbers := make([]int, 0, len(rec.reps))
	for _, r := range rec.reps {
		numbers = append(numbers, r.Number)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, numbers)

	require.NoError(t, c.Reset(), "reset is allowed once the workout is finished")
	assert.Zero(t, c.Counter().Reps)
}

func TestUnsubscribe(t *testing.T) {
	c := New(Options{})
	id, ch := c.Subscribe()
	c.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok)
	c.Unsubscribe(id)
}

func TestInbox_KeepsNewest(t *testing.T) {
	b := newInbox()
	assert.False(t, b.put(pose.Frame{Seq: 1}))
	assert.True(t, b.put(pose.Frame{Seq: 2}))

	f, ok := b.take()
	require.True(t, ok)
	assert.Equal(t, uint64(2), f.Seq)
	assert.Equal(t, uint64(1), b.droppedCount())

	_, ok = b.take()
	assert.False(t, ok)

	b.put(pose.Frame{Seq: 3})
	b.clear()
	_, ok = b.take()
	assert.False(t, ok)
}
