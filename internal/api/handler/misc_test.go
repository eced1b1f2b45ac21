package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veerdrishti/veerdrishti/internal/classifier"
	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/live"
	"github.com/veerdrishti/veerdrishti/internal/telemetry"
)

type MockClassifierService struct {
	mock.Mock
}

func (m *MockClassifierService) Train(ctx context.Context) (classifier.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(classifier.Stats), args.Error(1)
}

func (m *MockClassifierService) Stats() classifier.Stats {
	args := m.Called()
	return args.Get(0).(classifier.Stats)
}

func TestClassifierHandler(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := classifier.Stats{Trained: true, Identities: 2, Samples: 6, TrainedAt: &at, Threshold: 85}

	t.Run("stats", func(t *testing.T) {
		svc := new(MockClassifierService)
		svc.On("Stats").Return(stats)

		app := newTestApp()
		app.Get("/api/classifier", NewClassifierHandler(svc).Stats)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/classifier", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.JSONEq(t,
			`{"trained":true,"identities":2,"samples":6,"trained_at":"2026-01-01T00:00:00Z","threshold":85}`,
			string(readBody(resp)))
	})

	t.Run("untrained", func(t *testing.T) {
		svc := new(MockClassifierService)
		svc.On("Stats").Return(classifier.Stats{Threshold: 85})

		app := newTestApp()
		app.Get("/api/classifier", NewClassifierHandler(svc).Stats)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/classifier", nil))
		require.NoError(t, err)
		assert.JSONEq(t, `{"trained":false,"identities":0,"samples":0,"threshold":85}`, string(readBody(resp)))
	})

	t.Run("train", func(t *testing.T) {
		svc := new(MockClassifierService)
		svc.On("Train", mock.Anything).Return(stats, nil)

		app := newTestApp()
		app.Post("/api/train", NewClassifierHandler(svc).Train)

		resp, err := app.Test(httptest.NewRequest("POST", "/api/train", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("train failure", func(t *testing.T) {
		svc := new(MockClassifierService)
		svc.On("Train", mock.Anything).Return(classifier.Stats{}, errors.New("write model"))

		app := newTestApp()
		app.Post("/api/train", NewClassifierHandler(svc).Train)

		resp, err := app.Test(httptest.NewRequest("POST", "/api/train", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})
}

type stubHistory struct {
	records []domain.DetectionRecord
	err     error
	limit   int
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]domain.DetectionRecord, error) {
	s.limit = limit
	return s.records, s.err
}

func TestAlertHandler_List(t *testing.T) {
	t.Run("history disabled", func(t *testing.T) {
		app := newTestApp()
		app.Get("/api/alerts", NewAlertHandler(&stubHistory{err: domain.ErrHistoryDisabled}).List)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/alerts", nil))
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
	})

	t.Run("limit is forwarded", func(t *testing.T) {
		stub := &stubHistory{records: []domain.DetectionRecord{{Label: "C9", Category: domain.CategoryCriminal}}}
		app := newTestApp()
		app.Get("/api/alerts", NewAlertHandler(stub).List)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/alerts?limit=7", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 7, stub.limit)
		assert.Contains(t, string(readBody(resp)), `"label":"C9"`)
	})

	t.Run("empty history", func(t *testing.T) {
		stub := &stubHistory{}
		app := newTestApp()
		app.Get("/api/alerts", NewAlertHandler(stub).List)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/alerts", nil))
		require.NoError(t, err)
		assert.Equal(t, 0, stub.limit)
		assert.JSONEq(t, `{"alerts":[]}`, string(readBody(resp)))
	})
}

type stubSoldiers []telemetry.Soldier

func (s stubSoldiers) Snapshot() []telemetry.Soldier { return s }

func TestSoldierHandler_List(t *testing.T) {
	app := newTestApp()
	app.Get("/api/soldiers", NewSoldierHandler(stubSoldiers{{ID: "S1", Name: "Alpha"}}).List)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/soldiers", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(readBody(resp)), `"id":"S1"`)

	app = newTestApp()
	app.Get("/api/soldiers", NewSoldierHandler(stubSoldiers(nil)).List)
	resp, err = app.Test(httptest.NewRequest("GET", "/api/soldiers", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"soldiers":[]}`, string(readBody(resp)))
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		state      live.State
		wantStatus int
		wantBody   string
	}{
		{"health", "/health", live.StateStopped, 200, `{"status":"ok","version":"0.1.0"}`},
		{"ready while running", "/ready", live.StateRunning, 200, `{"status":"ready","live":"running"}`},
		{"not ready while stopped", "/ready", live.StateStopped, 503, `{"status":"not_ready","live":"stopped"}`},
		{"not ready while stopping", "/ready", live.StateStopping, 503, `{"status":"not_ready","live":"stopping"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&stubLive{state: tt.state})
			app := newTestApp()
			app.Get("/health", h.Health)
			app.Get("/ready", h.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.JSONEq(t, tt.wantBody, string(readBody(resp)))
		})
	}
}
