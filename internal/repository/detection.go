package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

var ErrDuplicateDetection = errors.New("detection already recorded")

type DetectionRepository struct {
	pool PgxPool
}

func NewDetectionRepository(pool PgxPool) *DetectionRepository {
	return &DetectionRepository{pool: pool}
}

func (r *DetectionRepository) Create(ctx context.Context, rec *domain.DetectionRecord) error {
	query := `
		INSERT INTO detection_events (id, label, category, confidence, face_match, bbox_x, bbox_y, bbox_w, bbox_h, detected_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.DetectedAt.IsZero() {
		rec.DetectedAt = time.Now().UTC()
	}

	err := r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.Label,
		string(rec.Category),
		rec.Confidence,
		rec.IsMatch,
		rec.BBox.X,
		rec.BBox.Y,
		rec.BBox.Width,
		rec.BBox.Height,
		rec.DetectedAt,
	).Scan(&rec.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create detection %s: %w", rec.ID, ErrDuplicateDetection)
		}
		return fmt.Errorf("create detection: %w", err)
	}

	return nil
}

// ListRecent returns the newest records first.
func (r *DetectionRepository) ListRecent(ctx context.Context, limit int) ([]domain.DetectionRecord, error) {
	query := `
		SELECT id, label, category, confidence, face_match, bbox_x, bbox_y, bbox_w, bbox_h, detected_at, created_at
		FROM detection_events
		ORDER BY detected_at DESC, created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	records := make([]domain.DetectionRecord, 0)
	for rows.Next() {
		var (
			rec      domain.DetectionRecord
			category string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Label,
			&category,
			&rec.Confidence,
			&rec.IsMatch,
			&rec.BBox.X,
			&rec.BBox.Y,
			&rec.BBox.Width,
			&rec.BBox.Height,
			&rec.DetectedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		rec.Category = domain.Category(category)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}

	return records, nil
}

func (r *DetectionRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM detection_events WHERE detected_at >= $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count detections: %w", err)
	}
	return count, nil
}

// DeleteBefore removes events detected before the cutoff and returns how many went.
func (r *DetectionRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM detection_events WHERE detected_at < $1`

	tag, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete detections: %w", err)
	}
	return tag.RowsAffected(), nil
}
