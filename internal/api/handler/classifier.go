package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/veerdrishti/veerdrishti/internal/classifier"
)

type ClassifierService interface {
	Train(ctx context.Context) (classifier.Stats, error)
	Stats() classifier.Stats
}

type ClassifierHandler struct {
	service ClassifierService
}

func NewClassifierHandler(service ClassifierService) *ClassifierHandler {
	return &ClassifierHandler{service: service}
}

// Stats GET /api/classifier
func (h *ClassifierHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.service.Stats())
}

// Train POST /api/train - full retrain over the gallery
func (h *ClassifierHandler) Train(c *fiber.Ctx) error {
	stats, err := h.service.Train(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
