package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/veerdrishti/veerdrishti/internal/telemetry"
)

type SoldierSource interface {
	Snapshot() []telemetry.Soldier
}

type SoldierHandler struct {
	source SoldierSource
}

func NewSoldierHandler(source SoldierSource) *SoldierHandler {
	return &SoldierHandler{source: source}
}

type SoldiersResponse struct {
	Soldiers []telemetry.Soldier `json:"soldiers"`
}

// List GET /api/soldiers
func (h *SoldierHandler) List(c *fiber.Ctx) error {
	soldiers := h.source.Snapshot()
	if soldiers == nil {
		soldiers = []telemetry.Soldier{}
	}
	return c.JSON(SoldiersResponse{Soldiers: soldiers})
}
