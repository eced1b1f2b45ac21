package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool the repositories use.
// pgxmock.PgxPoolIface satisfies it as well.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DetectionRepositoryInterface defines operations for the detection history
type DetectionRepositoryInterface interface {
	Create(ctx context.Context, rec *domain.DetectionRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.DetectionRecord, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
