package live

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veerdrishti/veerdrishti/internal/camera"
	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/vision"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		Interval:    5 * time.Millisecond,
		RetryDelay:  time.Millisecond,
		StopTimeout: 200 * time.Millisecond,
		JPEGQuality: 80,
	}
}

func grayFrame(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

// fakeSource fails the first failures reads, then returns frame.
type fakeSource struct {
	frame    image.Image
	failures atomic.Int32
	reads    atomic.Int32
	closes   atomic.Int32
}

func (s *fakeSource) Read(ctx context.Context) (image.Image, error) {
	s.reads.Add(1)
	if s.failures.Add(-1) >= 0 {
		return nil, camera.ErrNoFrame
	}
	return s.frame, nil
}

func (s *fakeSource) Close() error {
	s.closes.Add(1)
	return nil
}

type fakeLocator struct {
	boxes []image.Rectangle
	block chan struct{}
}

func (l *fakeLocator) Faces(frame image.Image) (*image.Gray, []vision.Face) {
	if l.block != nil {
		<-l.block
	}
	gray := vision.ToGray(frame)
	faces := make([]vision.Face, 0, len(l.boxes))
	for _, b := range l.boxes {
		faces = append(faces, vision.Face{Box: b, Crop: vision.Crop(gray, b)})
	}
	return gray, faces
}

// fakeMatcher hands out results in order, then unknown.
type fakeMatcher struct {
	mu      sync.Mutex
	results []domain.MatchResult
}

func (m *fakeMatcher) Match(image.Image) domain.MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.results) == 0 {
		return domain.UnknownMatch()
	}
	r := m.results[0]
	m.results = m.results[1:]
	return r
}

type recorder struct {
	mu    sync.Mutex
	snaps []*Snapshot
}

func (r *recorder) OnSnapshot(s *Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func TestProcess_BuildsEventsAndFrame(t *testing.T) {
	locator := &fakeLocator{boxes: []image.Rectangle{
		image.Rect(10, 40, 70, 100),
		image.Rect(100, 40, 160, 100),
	}}
	matcher := &fakeMatcher{results: []domain.MatchResult{
		{Label: "P1", Confidence: 42.1, IsMatch: true, Category: domain.CategoryOfficial},
		{Label: domain.UnknownLabel, Confidence: 120, IsMatch: false, Category: domain.CategoryUnknown},
	}}
	c := NewController(locator, matcher, testOptions(), testLogger())

	snap, err := c.Process(grayFrame(200, 120))
	require.NoError(t, err)

	assert.Equal(t, [2]int{200, 120}, snap.FrameSize)
	require.Len(t, snap.Detections, 2)

	official := snap.Detections[0]
	assert.Equal(t, "P1", official.Label)
	assert.True(t, official.IsMatch)
	assert.False(t, official.Alert)
	assert.Equal(t, domain.BBox{X: 10, Y: 40, Width: 60, Height: 60}, official.BBox)

	intruder := snap.Detections[1]
	assert.Equal(t, domain.UnknownLabel, intruder.Label)
	assert.Equal(t, domain.CategoryUnknown, intruder.Category)
	assert.True(t, intruder.Alert)
	assert.Equal(t, 120.0, intruder.Confidence)

	img, err := jpeg.Decode(bytes.NewReader(snap.Frame))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestProcess_NoFaces(t *testing.T) {
	c := NewController(&fakeLocator{}, &fakeMatcher{}, testOptions(), testLogger())

	snap, err := c.Process(grayFrame(64, 48))
	require.NoError(t, err)
	assert.Empty(t, snap.Detections)
	assert.NotNil(t, snap.Detections)
	assert.NotEmpty(t, snap.Frame)
}

func TestController_StartStop(t *testing.T) {
	src := &fakeSource{frame: grayFrame(64, 48)}
	rec := &recorder{}
	c := NewController(&fakeLocator{}, &fakeMatcher{}, testOptions(), testLogger())
	c.Subscribe(rec)

	assert.Nil(t, c.Latest())
	assert.Equal(t, StateStopped, c.State())

	require.True(t, c.Start(src))
	assert.Equal(t, StateRunning, c.State())

	other := &fakeSource{frame: grayFrame(8, 8)}
	assert.False(t, c.Start(other), "second start is a no-op")

	require.Eventually(t, func() bool { return c.Latest() != nil }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, time.Millisecond)

	c.Stop()
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, int32(1), src.closes.Load())
	assert.Equal(t, int32(0), other.reads.Load())
	assert.Equal(t, int32(0), other.closes.Load())

	// Stop on a stopped controller does nothing.
	c.Stop()
	assert.Equal(t, StateStopped, c.State())

	// The controller can be restarted after a stop.
	require.True(t, c.Start(other))
	c.Stop()
	assert.Equal(t, int32(1), other.closes.Load())
}

func TestController_SurvivesFrameErrors(t *testing.T) {
	src := &fakeSource{frame: grayFrame(32, 32)}
	src.failures.Store(5)

	c := NewController(&fakeLocator{}, &fakeMatcher{}, testOptions(), testLogger())
	require.True(t, c.Start(src))
	defer c.Stop()

	require.Eventually(t, func() bool { return c.Latest() != nil }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, src.reads.Load(), int32(6))
	assert.Equal(t, StateRunning, c.State())
}

func TestController_StopTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	src := &fakeSource{frame: grayFrame(32, 32)}
	opts := testOptions()
	opts.StopTimeout = 30 * time.Millisecond
	c := NewController(&fakeLocator{block: block}, &fakeMatcher{}, opts, testLogger())

	require.True(t, c.Start(src))
	require.Eventually(t, func() bool { return src.reads.Load() > 0 }, time.Second, time.Millisecond)

	started := time.Now()
	c.Stop()

	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, StateStopped, c.State())
	assert.GreaterOrEqual(t, src.closes.Load(), int32(1))
}

func TestController_LatestIsConsistent(t *testing.T) {
	src := &fakeSource{frame: grayFrame(40, 30)}
	locator := &fakeLocator{boxes: []image.Rectangle{image.Rect(0, 0, 20, 20)}}
	c := NewController(locator, &fakeMatcher{}, testOptions(), testLogger())
	require.True(t, c.Start(src))
	defer c.Stop()

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		snap := c.Latest()
		if snap == nil {
			continue
		}
		assert.Equal(t, [2]int{40, 30}, snap.FrameSize)
		assert.Len(t, snap.Detections, 1)
		assert.NotEmpty(t, snap.Frame)
	}
}

func TestController_ReadErrorAfterStop(t *testing.T) {
	src := &errSource{err: errors.New("unplugged")}
	c := NewController(&fakeLocator{}, &fakeMatcher{}, testOptions(), testLogger())
	require.True(t, c.Start(src))
	require.Eventually(t, func() bool { return src.reads.Load() > 3 }, time.Second, time.Millisecond)

	c.Stop()
	assert.Nil(t, c.Latest())
	assert.Equal(t, StateStopped, c.State())
}

// lateSource models a device that is absent for the first absent reads, then
// delivers frames, then drops for dropped reads after frames reads.
type lateSource struct {
	frame   image.Image
	absent  int32
	frames  int32
	dropped int32
	reads   atomic.Int32
}

func (s *lateSource) Read(context.Context) (image.Image, error) {
	n := s.reads.Add(1)
	switch {
	case n <= s.absent:
		return nil, camera.ErrNoFrame
	case n <= s.absent+s.frames:
		return s.frame, nil
	case n <= s.absent+s.frames+s.dropped:
		return nil, camera.ErrNoFrame
	default:
		return s.frame, nil
	}
}

func (s *lateSource) Close() error { return nil }

func TestController_CameraAppearsLateAndReconnects(t *testing.T) {
	src := &lateSource{frame: grayFrame(48, 32), absent: 20, frames: 2, dropped: 10}
	rec := &recorder{}

	c := NewController(&fakeLocator{}, &fakeMatcher{}, testOptions(), testLogger())
	c.Subscribe(rec)
	require.True(t, c.Start(src))
	defer c.Stop()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, time.Millisecond)
	assert.Greater(t, src.reads.Load(), int32(20))

	// Frames resume after the drop.
	require.Eventually(t, func() bool { return rec.count() >= 4 }, 2*time.Second, time.Millisecond)
	assert.Greater(t, src.reads.Load(), int32(32))
	assert.Equal(t, StateRunning, c.State())
}

func TestController_StartRefusedWhileAbandonedLoopRuns(t *testing.T) {
	block := make(chan struct{})

	src := &fakeSource{frame: grayFrame(32, 32)}
	opts := testOptions()
	opts.StopTimeout = 20 * time.Millisecond
	c := NewController(&fakeLocator{block: block}, &fakeMatcher{}, opts, testLogger())

	require.True(t, c.Start(src))
	require.Eventually(t, func() bool { return src.reads.Load() > 0 }, time.Second, time.Millisecond)

	c.Stop()
	require.Equal(t, StateStopped, c.State())

	next := &fakeSource{frame: grayFrame(16, 16)}
	assert.False(t, c.Start(next), "the first loop is still inside its cycle")
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, int32(0), next.reads.Load())

	close(block)

	require.Eventually(t, func() bool { return c.Start(next) }, time.Second, 5*time.Millisecond)
	defer c.Stop()
	assert.Equal(t, StateRunning, c.State())
	require.Eventually(t, func() bool { return next.reads.Load() > 0 }, time.Second, time.Millisecond)
}

type errSource struct {
	err   error
	reads atomic.Int32
}

func (s *errSource) Read(context.Context) (image.Image, error) {
	s.reads.Add(1)
	return nil, s.err
}

func (s *errSource) Close() error { return nil }

func TestAnnotate(t *testing.T) {
	frame := grayFrame(200, 150)

	events := []domain.DetectionEvent{
		{BBox: domain.BBox{X: 20, Y: 60, Width: 50, Height: 50}, Label: "C9", Confidence: 12, IsMatch: true, Category: domain.CategoryCriminal},
		{BBox: domain.BBox{X: 120, Y: 5, Width: 50, Height: 50}, Label: domain.UnknownLabel, Category: domain.CategoryUnknown},
	}

	out := Annotate(frame, events)
	require.Equal(t, frame.Bounds(), out.Bounds())

	// Box outline on the left edge, below any text plate.
	edge := out.RGBAAt(20, 90)
	assert.Greater(t, edge.R, uint8(200))
	assert.Less(t, edge.G, uint8(80))

	// Untouched pixel.
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, out.RGBAAt(100, 140))

	// The intruder sits at the top, so its plate goes below the box.
	_, belowY := plateOrigin(120, 5, 50, 13)
	assert.Greater(t, belowY, 55.0)
	_, aboveY := plateOrigin(20, 60, 50, 13)
	assert.Equal(t, 50.0, aboveY)
}

func TestLabelTextAndColor(t *testing.T) {
	tests := []struct {
		ev    domain.DetectionEvent
		text  string
		color color.RGBA
	}{
		{domain.DetectionEvent{Label: "P1", Confidence: 42.14, IsMatch: true, Category: domain.CategoryOfficial}, "Official: P1 (42.1)", colorOfficial},
		{domain.DetectionEvent{Label: "Zed", Confidence: 3, IsMatch: true, Category: domain.CategoryCitizen}, "Citizen: Zed (3.0)", colorCitizen},
		{domain.DetectionEvent{Label: "C9", Confidence: 80.05, IsMatch: true, Category: domain.CategoryCriminal}, "Criminal: C9 (80.0)", colorCriminal},
		{domain.DetectionEvent{Label: domain.UnknownLabel, Confidence: 99, Category: domain.CategoryUnknown}, "Intruder", colorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, LabelText(tt.ev))
			assert.Equal(t, tt.color, BoxColor(tt.ev))
		})
	}
}
