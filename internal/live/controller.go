// Package live runs the capture, detect, match and publish loop.
package live

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veerdrishti/veerdrishti/internal/camera"
	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/vision"
)

type State int32

const (
	StateStopped State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// errorLogInterval throttles repeated frame and pipeline errors.
const errorLogInterval = 15 * time.Second

// Locator finds faces in a frame. Implemented by vision.Pipeline.
type Locator interface {
	Faces(frame image.Image) (*image.Gray, []vision.Face)
}

// Matcher identifies a face crop. Implemented by classifier.Manager.
type Matcher interface {
	Match(crop image.Image) domain.MatchResult
}

// Subscriber is told about every published snapshot. OnSnapshot runs on the loop
// goroutine and must return quickly.
type Subscriber interface {
	OnSnapshot(s *Snapshot)
}

// Snapshot is the complete output of one cycle. It is never modified after publication.
type Snapshot struct {
	Frame      []byte                  `json:"-"`
	FrameSize  [2]int                  `json:"frame_size"`
	Detections []domain.DetectionEvent `json:"detections"`
	CapturedAt time.Time               `json:"captured_at"`
}

type Options struct {
	Interval    time.Duration
	RetryDelay  time.Duration
	StopTimeout time.Duration
	JPEGQuality int
}

func DefaultOptions() Options {
	return Options{
		Interval:    time.Second,
		RetryDelay:  200 * time.Millisecond,
		StopTimeout: 2 * time.Second,
		JPEGQuality: 80,
	}
}

type Controller struct {
	locator Locator
	matcher Matcher
	opts    Options
	logger  *slog.Logger

	// mu guards the lifecycle fields below; the snapshot is never read under it.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	source camera.Source

	state  atomic.Int32
	latest atomic.Pointer[Snapshot]

	subsMu sync.RWMutex
	subs   []Subscriber
}

func NewController(locator Locator, matcher Matcher, opts Options, logger *slog.Logger) *Controller {
	return &Controller{
		locator: locator,
		matcher: matcher,
		opts:    opts,
		logger:  logger,
	}
}

func (c *Controller) Subscribe(s Subscriber) {
	c.subsMu.Lock()
	c.subs = append(c.subs, s)
	c.subsMu.Unlock()
}

// Start launches the loop over source. It returns false, and leaves source untouched,
// when the loop is already running or a loop abandoned by a timed-out Stop is still
// finishing its cycle.
func (c *Controller) Start(source camera.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if State(c.state.Load()) != StateStopped {
		return false
	}
	if c.done != nil {
		select {
		case <-c.done:
		default:
			c.logger.Warn("previous live loop has not exited yet, start refused")
			return false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.source = source
	c.state.Store(int32(StateRunning))

	go c.loop(ctx, source, c.done)

	c.logger.Info("live loop started")
	return true
}

// Stop asks the loop to finish its current cycle and waits up to StopTimeout.
// The controller ends in Stopped either way.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if State(c.state.Load()) != StateRunning {
		return
	}
	c.state.Store(int32(StateStopping))
	c.cancel()

	select {
	case <-c.done:
		c.logger.Info("live loop stopped")
	case <-time.After(c.opts.StopTimeout):
		c.logger.Warn("live loop did not stop in time, releasing camera",
			slog.Duration("timeout", c.opts.StopTimeout),
		)
		if err := c.source.Close(); err != nil {
			c.logger.Warn("close camera", slog.String("error", err.Error()))
		}
	}

	// done is kept so Start can tell whether an abandoned loop has exited.
	c.cancel = nil
	c.source = nil
	c.state.Store(int32(StateStopped))
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Latest returns the most recent snapshot, or nil before the first cycle completes.
func (c *Controller) Latest() *Snapshot {
	return c.latest.Load()
}

func (c *Controller) loop(ctx context.Context, source camera.Source, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := source.Close(); err != nil {
			c.logger.Warn("close camera", slog.String("error", err.Error()))
		}
	}()

	var lastErrAt time.Time
	logThrottled := func(msg string, err error) {
		if time.Since(lastErrAt) > errorLogInterval {
			c.logger.Error(msg, slog.String("error", err.Error()))
			lastErrAt = time.Now()
		}
	}

	for ctx.Err() == nil {
		started := time.Now()

		frame, err := source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logThrottled("read frame", err)
			sleep(ctx, c.opts.RetryDelay)
			continue
		}

		snap, err := c.Process(frame)
		if err != nil {
			logThrottled("process frame", err)
		} else {
			c.publish(snap)
		}

		sleep(ctx, c.opts.Interval-time.Since(started))
	}
}

// Process runs one frame through detection, matching, annotation and encoding.
func (c *Controller) Process(frame image.Image) (*Snapshot, error) {
	capturedAt := time.Now().UTC()
	_, faces := c.locator.Faces(frame)

	events := make([]domain.DetectionEvent, 0, len(faces))
	for _, f := range faces {
		m := c.matcher.Match(f.Crop)
		events = append(events, domain.NewDetectionEvent(domain.BBoxFromRect(f.Box), m, capturedAt))
	}

	annotated := Annotate(frame, events)
	jpg, err := EncodeJPEG(annotated, c.opts.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	b := frame.Bounds()
	return &Snapshot{
		Frame:      jpg,
		FrameSize:  [2]int{b.Dx(), b.Dy()},
		Detections: events,
		CapturedAt: capturedAt,
	}, nil
}

func (c *Controller) publish(snap *Snapshot) {
	c.latest.Store(snap)

	c.subsMu.RLock()
	subs := c.subs
	c.subsMu.RUnlock()

	for _, s := range subs {
		s.OnSnapshot(snap)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
