package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/live"
)

// SnapshotReader is implemented by live.Controller.
type SnapshotReader interface {
	Latest() *live.Snapshot
	State() live.State
}

type LiveHandler struct {
	live SnapshotReader
}

func NewLiveHandler(reader SnapshotReader) *LiveHandler {
	return &LiveHandler{live: reader}
}

type DetectionsResponse struct {
	FrameSize  [2]int                  `json:"frame_size"`
	Detections []domain.DetectionEvent `json:"detections"`
	CapturedAt *time.Time              `json:"captured_at,omitempty"`
	State      string                  `json:"state"`
}

// Frame GET /api/frame.jpg - last annotated frame, 204 before the first cycle
func (h *LiveHandler) Frame(c *fiber.Ctx) error {
	snap := h.live.Latest()
	if snap == nil || len(snap.Frame) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(snap.Frame)
}

// Detections GET /api/detections - detections of the last published frame
func (h *LiveHandler) Detections(c *fiber.Ctx) error {
	resp := DetectionsResponse{
		Detections: []domain.DetectionEvent{},
		State:      h.live.State().String(),
	}

	if snap := h.live.Latest(); snap != nil {
		resp.FrameSize = snap.FrameSize
		if snap.Detections != nil {
			resp.Detections = snap.Detections
		}
		at := snap.CapturedAt.UTC()
		resp.CapturedAt = &at
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(resp)
}
