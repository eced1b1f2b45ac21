package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

var detectionColumns = []string{
	"id", "label", "category", "confidence", "face_match",
	"bbox_x", "bbox_y", "bbox_w", "bbox_h", "detected_at", "created_at",
}

func TestDetectionRepository_Create(t *testing.T) {
	id := uuid.New()
	detectedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createdAt := detectedAt.Add(time.Second)

	tests := []struct {
		name      string
		record    *domain.DetectionRecord
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "intruder is stored",
			record: &domain.DetectionRecord{
				ID:         id,
				Label:      domain.UnknownLabel,
				Category:   domain.CategoryUnknown,
				Confidence: 97.5,
				BBox:       domain.BBox{X: 10, Y: 20, Width: 60, Height: 60},
				DetectedAt: detectedAt,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO detection_events`).
					WithArgs(id, domain.UnknownLabel, "unknown", 97.5, false, 10, 20, 60, 60, detectedAt).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
			},
		},
		{
			name: "missing id and timestamp are filled in",
			record: &domain.DetectionRecord{
				Label:    "C9",
				Category: domain.CategoryCriminal,
				IsMatch:  true,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO detection_events`).
					WithArgs(pgxmock.AnyArg(), "C9", "criminal", 0.0, true, 0, 0, 0, 0, pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
			},
		},
		{
			name:   "duplicate id",
			record: &domain.DetectionRecord{ID: id, Label: "C9", Category: domain.CategoryCriminal, DetectedAt: detectedAt},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO detection_events`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "detection_events_pkey" (SQLSTATE 23505)`))
			},
			wantErr: ErrDuplicateDetection,
		},
		{
			name:   "database error",
			record: &domain.DetectionRecord{ID: id, Label: "C9", Category: domain.CategoryCriminal, DetectedAt: detectedAt},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO detection_events`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: errors.New("create detection: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewDetectionRepository(mock)
			err = repo.Create(context.Background(), tt.record)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, ErrDuplicateDetection) {
					assert.ErrorIs(t, err, ErrDuplicateDetection)
				} else {
					assert.EqualError(t, err, tt.wantErr.Error())
				}
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, tt.record.ID)
				assert.False(t, tt.record.DetectedAt.IsZero())
				assert.Equal(t, createdAt, tt.record.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDetectionRepository_ListRecent(t *testing.T) {
	newer := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	older := newer.Add(-5 * time.Second)
	idA, idB := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		limit     int
		wantLimit int
		rows      func() *pgxmock.Rows
		queryErr  error
		wantLen   int
		wantErr   string
	}{
		{
			name:      "default limit",
			limit:     0,
			wantLimit: DefaultListLimit,
			rows: func() *pgxmock.Rows {
				return pgxmock.NewRows(detectionColumns).
					AddRow(idA, "C9", "criminal", 31.2, true, 1, 2, 3, 4, newer, newer).
					AddRow(idB, "unknown", "unknown", 0.0, false, 5, 6, 7, 8, older, older)
			},
			wantLen: 2,
		},
		{
			name:      "limit clamped to max",
			limit:     10_000,
			wantLimit: MaxListLimit,
			rows:      func() *pgxmock.Rows { return pgxmock.NewRows(detectionColumns) },
			wantLen:   0,
		},
		{
			name:      "explicit limit",
			limit:     1,
			wantLimit: 1,
			rows: func() *pgxmock.Rows {
				return pgxmock.NewRows(detectionColumns).
					AddRow(idA, "C9", "criminal", 31.2, true, 1, 2, 3, 4, newer, newer)
			},
			wantLen: 1,
		},
		{
			name:      "query error",
			limit:     5,
			wantLimit: 5,
			queryErr:  pgx.ErrTxClosed,
			wantErr:   "list detections",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			exp := mock.ExpectQuery(`SELECT (.+) FROM detection_events ORDER BY detected_at DESC, created_at DESC LIMIT \$1`).
				WithArgs(tt.wantLimit)
			if tt.queryErr != nil {
				exp.WillReturnError(tt.queryErr)
			} else {
				exp.WillReturnRows(tt.rows())
			}

			repo := NewDetectionRepository(mock)
			got, err := repo.ListRecent(context.Background(), tt.limit)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Len(t, got, tt.wantLen)
				if tt.wantLen > 0 {
					assert.Equal(t, idA, got[0].ID)
					assert.Equal(t, domain.CategoryCriminal, got[0].Category)
					assert.Equal(t, domain.BBox{X: 1, Y: 2, Width: 3, Height: 4}, got[0].BBox)
					assert.True(t, got[0].IsMatch)
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDetectionRepository_CountSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM detection_events WHERE detected_at >= \$1`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	repo := NewDetectionRepository(mock)
	n, err := repo.CountSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetectionRepository_DeleteBefore(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("reports deleted rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM detection_events WHERE detected_at < \$1`).
			WithArgs(cutoff).
			WillReturnResult(pgxmock.NewResult("DELETE", 12))

		n, err := NewDetectionRepository(mock).DeleteBefore(context.Background(), cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps exec error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM detection_events`).
			WithArgs(cutoff).
			WillReturnError(errors.New("connection reset"))

		_, err = NewDetectionRepository(mock).DeleteBefore(context.Background(), cutoff)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete detections")
	})
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, DefaultListLimit},
		{0, DefaultListLimit},
		{1, 1},
		{MaxListLimit, MaxListLimit},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.in), "limit %d", tt.in)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("timeout")))
	assert.True(t, isUniqueViolation(errors.New("SQLSTATE 23505")))
	assert.True(t, isUniqueViolation(errors.New("duplicate key value")))
}
