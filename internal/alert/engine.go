package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

// Engine turns alerting detections into alerts, at most one per key per cooldown.
type Engine struct {
	cooldown time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewEngine(cooldown time.Duration) *Engine {
	return &Engine{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

// Evaluate returns the alerts to raise for one snapshot's events.
func (e *Engine) Evaluate(events []domain.DetectionEvent, now time.Time) []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var alerts []*Alert
	for _, ev := range events {
		if !ev.Alert {
			continue
		}
		key := KeyFor(ev)
		if !e.shouldTrigger(key, now) {
			continue
		}
		e.last[key] = now
		alerts = append(alerts, &Alert{
			ID:          uuid.New(),
			Key:         key,
			Severity:    SeverityFor(ev),
			Event:       ev,
			TriggeredAt: now,
		})
	}
	e.prune(now)
	return alerts
}

func (e *Engine) shouldTrigger(key string, now time.Time) bool {
	lastTriggeredAt, ok := e.last[key]
	if !ok {
		return true
	}
	return !now.Before(lastTriggeredAt.Add(e.cooldown))
}

// prune forgets keys whose cooldown has long expired so the map stays small.
func (e *Engine) prune(now time.Time) {
	for key, at := range e.last {
		if now.Sub(at) > 2*e.cooldown {
			delete(e.last, key)
		}
	}
}
