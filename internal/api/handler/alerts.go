package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

type HistoryService interface {
	Recent(ctx context.Context, limit int) ([]domain.DetectionRecord, error)
}

type AlertHandler struct {
	history HistoryService
}

func NewAlertHandler(history HistoryService) *AlertHandler {
	return &AlertHandler{history: history}
}

type AlertsResponse struct {
	Alerts []domain.DetectionRecord `json:"alerts"`
}

// List GET /api/alerts?limit=N - stored alerting detections, newest first
func (h *AlertHandler) List(c *fiber.Ctx) error {
	records, err := h.history.Recent(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.DetectionRecord{}
	}
	return c.JSON(AlertsResponse{Alerts: records})
}
