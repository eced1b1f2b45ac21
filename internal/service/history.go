package service

import (
	"context"
	"fmt"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

// HistoryRepository is implemented by repository.DetectionRepository.
type HistoryRepository interface {
	ListRecent(ctx context.Context, limit int) ([]domain.DetectionRecord, error)
}

// HistoryService reads stored alert detections. A nil repository means history is
// not configured.
type HistoryService struct {
	repo HistoryRepository
}

func NewHistoryService(repo HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) Enabled() bool {
	return s.repo != nil
}

func (s *HistoryService) Recent(ctx context.Context, limit int) ([]domain.DetectionRecord, error) {
	if s.repo == nil {
		return nil, domain.ErrHistoryDisabled
	}
	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent detections: %w", err)
	}
	return records, nil
}
