package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/service"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

// FaceService interface for the service
type FaceService interface {
	Enroll(ctx context.Context, identityID, category string, raw []byte) (*service.EnrollResult, error)
	Delete(ctx context.Context, identityID string) error
	ListIDs(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]service.IdentitySummary, error)
}

// FaceHandler handles gallery requests
type FaceHandler struct {
	service FaceService
	logger  *slog.Logger
}

func NewFaceHandler(service FaceService, logger *slog.Logger) *FaceHandler {
	return &FaceHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterResponse response for register endpoint
type RegisterResponse struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	FacesSaved int    `json:"faces_saved"`
}

type ListResponse struct {
	IDs []string `json:"ids"`
}

type ListDetailResponse struct {
	Identities []service.IdentitySummary `json:"identities"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Register POST /api/register-face - enroll the faces found in an uploaded image
func (h *FaceHandler) Register(c *fiber.Ctx) error {
	identityID := strings.TrimSpace(c.FormValue("id"))
	if identityID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("id is required"))
	}

	raw, err := extractImage(c)
	if err != nil {
		return err
	}

	result, err := h.service.Enroll(c.UserContext(), identityID, c.FormValue("category"), raw)
	if err != nil {
		return err
	}

	return c.JSON(RegisterResponse{
		ID:         result.ID,
		Category:   string(result.Category),
		FacesSaved: result.FacesSaved,
	})
}

// Delete DELETE /api/faces/:id - remove an identity and retrain
func (h *FaceHandler) Delete(c *fiber.Ctx) error {
	identityID := strings.TrimSpace(c.Params("id"))
	if identityID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("id is required"))
	}

	if err := h.service.Delete(c.UserContext(), identityID); err != nil {
		return err
	}

	return c.JSON(DeleteResponse{ID: identityID, Deleted: true})
}

// List GET /api/faces - enrolled identity ids; ?detail=true adds category and crop counts
func (h *FaceHandler) List(c *fiber.Ctx) error {
	if c.QueryBool("detail") {
		identities, err := h.service.List(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(ListDetailResponse{Identities: identities})
	}

	ids, err := h.service.ListIDs(c.UserContext())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(ListResponse{IDs: ids})
}

// extractImage reads the "file" part of the form. Format checks are left to the decoder.
func extractImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrDecodeImage
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrDecodeImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrDecodeImage.WithError(err)
	}

	return raw, nil
}
