// Package retention trims the detection history so the table does not grow without
// bound on a station that runs for months.
package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store is implemented by repository.DetectionRepository.
type Store interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// Pruner periodically deletes detection events older than maxAge
type Pruner struct {
	store    Store
	logger   *slog.Logger
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// NewPruner creates a pruner. A zero interval defaults to one hour.
func NewPruner(store Store, logger *slog.Logger, interval, maxAge time.Duration) *Pruner {
	if interval == 0 {
		interval = time.Hour
	}

	return &Pruner{
		store:    store,
		logger:   logger,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start prunes once immediately and then on every tick until ctx is cancelled or
// Stop is called. It blocks.
func (p *Pruner) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("history pruner started", "interval", p.interval, "max_age", p.maxAge)
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("history pruner stopped")
			return
		case <-p.done:
			p.logger.Info("history pruner stopped")
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// RunOnce deletes everything detected before now minus maxAge.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	return p.store.DeleteBefore(ctx, p.now().Add(-p.maxAge))
}

func (p *Pruner) prune(ctx context.Context) {
	deleted, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.Error("failed to prune detection history", "error", err)
		return
	}

	recent, err := p.store.CountSince(ctx, p.now().Add(-24*time.Hour))
	if err != nil {
		p.logger.Warn("failed to count recent detections", "error", err)
		recent = -1
	}

	if deleted > 0 {
		p.logger.Info("pruned detection history", "deleted", deleted, "last_24h", recent)
	} else {
		p.logger.Debug("detection history within retention", "last_24h", recent)
	}
}
