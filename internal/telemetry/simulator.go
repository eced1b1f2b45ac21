// Package telemetry simulates the vitals and positions of a small field unit.
package telemetry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

type Activity string

const (
	ActivityRest    Activity = "rest"
	ActivityPatrol  Activity = "patrol"
	ActivityJog     Activity = "jog"
	ActivitySprint  Activity = "sprint"
	ActivityEngaged Activity = "engaged"
	ActivityInjured Activity = "injured"
)

type Status string

const (
	StatusOK       Status = "ok"
	StatusWarn     Status = "warn"
	StatusCritical Status = "critical"
)

const (
	MinHeartRate = 45
	MaxHeartRate = 200

	historyLen        = 5
	warnHeartRate     = 120
	criticalHeartRate = 160
	transitionChance  = 0.2
)

type profile struct {
	targetHR int
	// speed is the largest per-tick step in degrees of latitude/longitude.
	speed float64
}

var profiles = map[Activity]profile{
	ActivityRest:    {targetHR: 65, speed: 0},
	ActivityPatrol:  {targetHR: 95, speed: 0.00005},
	ActivityJog:     {targetHR: 130, speed: 0.00012},
	ActivitySprint:  {targetHR: 175, speed: 0.0002},
	ActivityEngaged: {targetHR: 150, speed: 0.0001},
	ActivityInjured: {targetHR: 115, speed: 0},
}

// transitions is weighted towards patrol so that the unit spends most ticks moving calmly.
var transitions = []Activity{
	ActivityRest, ActivityPatrol, ActivityPatrol, ActivityPatrol,
	ActivityJog, ActivitySprint, ActivityEngaged, ActivityInjured,
}

type Soldier struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Activity  Activity   `json:"activity"`
	Status    Status     `json:"status"`
	HeartRate int        `json:"heart_rate"`
	GPS       [2]float64 `json:"gps"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type unit struct {
	Soldier
	history []int
}

type Simulator struct {
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	units []*unit

	snapshot atomic.Pointer[[]Soldier]

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewSimulator(interval time.Duration, seed int64, logger *slog.Logger) *Simulator {
	if interval == 0 {
		interval = 3 * time.Second
	}

	now := time.Now().UTC()
	seedUnits := []Soldier{
		{ID: "S1", Name: "Alpha", HeartRate: 72, GPS: [2]float64{28.6129, 77.2295}},
		{ID: "S2", Name: "Bravo", HeartRate: 75, GPS: [2]float64{28.6130, 77.2296}},
		{ID: "S3", Name: "Charlie", HeartRate: 70, GPS: [2]float64{28.6131, 77.2297}},
		{ID: "S4", Name: "Delta", HeartRate: 73, GPS: [2]float64{28.6132, 77.2298}},
	}

	s := &Simulator{
		interval: interval,
		logger:   logger,
		rng:      rand.New(rand.NewSource(seed)),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, su := range seedUnits {
		su.Activity = ActivityPatrol
		su.Status = StatusOK
		su.UpdatedAt = now
		s.units = append(s.units, &unit{Soldier: su, history: []int{su.HeartRate}})
	}
	s.publish()
	return s
}

// Start runs the simulation until ctx is done or Stop is called.
func (s *Simulator) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Simulator) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.done)

	s.logger.Info("telemetry simulator started", "interval", s.interval, "units", len(s.units))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("telemetry simulator stopped")
			return
		case <-s.stopCh:
			s.logger.Info("telemetry simulator stopped")
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Stop ends a running simulation and waits for it. Must only be called after Start.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

// Step advances every unit by one tick and publishes a new snapshot.
func (s *Simulator) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, u := range s.units {
		if s.rng.Float64() < transitionChance {
			u.Activity = transitions[s.rng.Intn(len(transitions))]
		}
		p := profiles[u.Activity]

		hr := float64(u.HeartRate) + float64(p.targetHR-u.HeartRate)*0.3 + s.rng.NormFloat64()*1.5
		u.HeartRate = clampHeartRate(int(math.Round(hr)))

		u.GPS[0] = round6(u.GPS[0] + (s.rng.Float64()*2-1)*p.speed)
		u.GPS[1] = round6(u.GPS[1] + (s.rng.Float64()*2-1)*p.speed)

		u.history = append(u.history, u.HeartRate)
		if len(u.history) > historyLen {
			u.history = u.history[len(u.history)-historyLen:]
		}
		u.Status = statusFor(u.Activity, u.history)
		u.UpdatedAt = now
	}
	s.publish()
}

// Snapshot returns a copy of the latest state.
func (s *Simulator) Snapshot() []Soldier {
	p := s.snapshot.Load()
	out := make([]Soldier, len(*p))
	copy(out, *p)
	return out
}

func (s *Simulator) publish() {
	snap := make([]Soldier, len(s.units))
	for i, u := range s.units {
		snap[i] = u.Soldier
	}
	s.snapshot.Store(&snap)
}

func statusFor(activity Activity, history []int) Status {
	if activity == ActivityInjured {
		return StatusCritical
	}
	if len(history) == 0 {
		return StatusOK
	}
	sum := 0
	for _, hr := range history {
		sum += hr
	}
	avg := float64(sum) / float64(len(history))
	switch {
	case avg >= criticalHeartRate:
		return StatusCritical
	case avg >= warnHeartRate:
		return StatusWarn
	default:
		return StatusOK
	}
}

func clampHeartRate(hr int) int {
	return max(MinHeartRate, min(MaxHeartRate, hr))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
