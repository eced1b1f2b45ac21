package alert

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/live"
)

const DefaultQueueSize = 64

// Recorder stores alerting detections. Implemented by repository.DetectionRepository.
type Recorder interface {
	Create(ctx context.Context, record *domain.DetectionRecord) error
}

// Dispatcher subscribes to live snapshots and hands new alerts to a background worker,
// so that persistence and delivery never slow the capture loop.
type Dispatcher struct {
	engine    *Engine
	recorder  Recorder
	notifiers []Notifier
	logger    *slog.Logger

	queue   chan *Alert
	dropped atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewDispatcher builds a dispatcher. recorder may be nil when history is disabled.
func NewDispatcher(engine *Engine, recorder Recorder, logger *slog.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		engine:    engine,
		recorder:  recorder,
		notifiers: notifiers,
		logger:    logger,
		queue:     make(chan *Alert, DefaultQueueSize),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// OnSnapshot implements live.Subscriber. It never blocks: alerts are dropped when the
// queue is full.
func (d *Dispatcher) OnSnapshot(s *live.Snapshot) {
	for _, a := range d.engine.Evaluate(s.Detections, s.CapturedAt) {
		select {
		case d.queue <- a:
		default:
			if d.dropped.Add(1)%100 == 1 {
				d.logger.Warn("alert queue full, dropping alerts", "dropped", d.dropped.Load())
			}
		}
	}
}

// Dropped reports how many alerts were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	d.logger.Info("alert dispatcher started", "notifiers", len(d.notifiers), "history", d.recorder != nil)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("alert dispatcher stopped")
			return
		case <-d.stopCh:
			d.drain()
			d.logger.Info("alert dispatcher stopped")
			return
		case a := <-d.queue:
			d.process(ctx, a)
		}
	}
}

// drain delivers whatever is already queued, bounded so shutdown cannot hang.
func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case a := <-d.queue:
			d.process(ctx, a)
		default:
			return
		}
	}
}

// Stop finishes queued work and waits for the worker. Must only be called after Start.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	<-d.done
}

func (d *Dispatcher) process(ctx context.Context, a *Alert) {
	d.logger.Info("alert triggered",
		"alert_id", a.ID,
		"key", a.Key,
		"severity", a.Severity,
		"confidence", a.Event.Confidence,
	)

	if d.recorder != nil {
		record := domain.NewDetectionRecord(a.Event)
		record.ID = a.ID
		if err := d.recorder.Create(ctx, record); err != nil {
			d.logger.Error("failed to save detection",
				"alert_id", a.ID,
				"error", err,
			)
		}
	}

	for _, n := range d.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			d.logger.Error("failed to send notification",
				"alert_id", a.ID,
				"error", err,
			)
		}
	}
}
