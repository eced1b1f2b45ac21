package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSimulator_Units(t *testing.T) {
	s := NewSimulator(time.Second, 1, testLogger())

	units := s.Snapshot()
	require.Len(t, units, 4)

	names := map[string]string{}
	for _, u := range units {
		names[u.ID] = u.Name
		assert.Equal(t, StatusOK, u.Status)
	}
	assert.Equal(t, map[string]string{"S1": "Alpha", "S2": "Bravo", "S3": "Charlie", "S4": "Delta"}, names)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		activity Activity
		history  []int
		want     Status
	}{
		{"resting", ActivityRest, []int{60, 62, 64}, StatusOK},
		{"just below warn", ActivityJog, []int{119, 119, 119, 119, 119}, StatusOK},
		{"warn", ActivityJog, []int{118, 120, 122, 124, 126}, StatusWarn},
		{"critical", ActivitySprint, []int{160, 165, 170, 175, 180}, StatusCritical},
		{"spike is smoothed", ActivitySprint, []int{90, 90, 90, 90, 190}, StatusOK},
		{"injured is always critical", ActivityInjured, []int{70, 70}, StatusCritical},
		{"no history", ActivityPatrol, nil, StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.activity, tt.history))
		})
	}
}

func TestClampHeartRate(t *testing.T) {
	assert.Equal(t, MinHeartRate, clampHeartRate(10))
	assert.Equal(t, MaxHeartRate, clampHeartRate(250))
	assert.Equal(t, 100, clampHeartRate(100))
}

func TestStep_StaysInBounds(t *testing.T) {
	s := NewSimulator(time.Second, 42, testLogger())

	for i := 0; i < 2000; i++ {
		s.Step()
		for _, u := range s.Snapshot() {
			require.GreaterOrEqual(t, u.HeartRate, MinHeartRate)
			require.LessOrEqual(t, u.HeartRate, MaxHeartRate)
			_, ok := profiles[u.Activity]
			require.True(t, ok, "unknown activity %q", u.Activity)
			if u.Activity == ActivityInjured {
				require.Equal(t, StatusCritical, u.Status)
			}
		}
	}

	for _, u := range s.units {
		assert.LessOrEqual(t, len(u.history), historyLen)
	}
}

func TestStep_IsDeterministicForSeed(t *testing.T) {
	a := NewSimulator(time.Second, 7, testLogger())
	b := NewSimulator(time.Second, 7, testLogger())
	for i := 0; i < 50; i++ {
		a.Step()
		b.Step()
	}

	sa, sb := a.Snapshot(), b.Snapshot()
	for i := range sa {
		assert.Equal(t, sa[i].HeartRate, sb[i].HeartRate)
		assert.Equal(t, sa[i].GPS, sb[i].GPS)
		assert.Equal(t, sa[i].Activity, sb[i].Activity)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewSimulator(time.Second, 1, testLogger())

	snap := s.Snapshot()
	snap[0].Name = "changed"

	assert.Equal(t, "Alpha", s.Snapshot()[0].Name)
}

func TestStartStop(t *testing.T) {
	s := NewSimulator(time.Millisecond, 3, testLogger())
	before := s.Snapshot()[0].UpdatedAt

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return s.Snapshot()[0].UpdatedAt.After(before)
	}, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestStart_ContextCancel(t *testing.T) {
	s := NewSimulator(time.Millisecond, 3, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("simulator did not stop on context cancel")
	}
}
