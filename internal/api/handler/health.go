package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/veerdrishti/veerdrishti/internal/live"
)

const version = "0.1.0"

// LiveState is implemented by live.Controller.
type LiveState interface {
	State() live.State
}

type HealthHandler struct {
	live LiveState
}

func NewHealthHandler(state LiveState) *HealthHandler {
	return &HealthHandler{live: state}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Live    string `json:"live,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: version,
	})
}

// Ready reports 503 until the live loop is running.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	state := h.live.State()
	if state != live.StateRunning {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status: "not_ready",
			Live:   state.String(),
		})
	}
	return c.JSON(HealthResponse{
		Status: "ready",
		Live:   state.String(),
	})
}
