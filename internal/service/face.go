package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/veerdrishti/veerdrishti/internal/audit"
	"github.com/veerdrishti/veerdrishti/internal/classifier"
	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/ws"
)

// GalleryInterface is implemented by gallery.Store.
type GalleryInterface interface {
	Enroll(ctx context.Context, identityID string, category domain.Category, raw []byte) (int, error)
	Delete(ctx context.Context, identityID string) (bool, error)
	Snapshot() ([]domain.Identity, error)
}

// ClassifierInterface is implemented by classifier.Manager.
type ClassifierInterface interface {
	Train(ctx context.Context) error
	Stats() classifier.Stats
}

// EventPublisher is implemented by ws.Hub.
type EventPublisher interface {
	Broadcast(eventType ws.EventType, data any)
}

type EnrollResult struct {
	ID         string          `json:"id"`
	Category   domain.Category `json:"category"`
	FacesSaved int             `json:"faces_saved"`
}

type IdentitySummary struct {
	ID       string          `json:"id"`
	Category domain.Category `json:"category"`
	Crops    int             `json:"crops"`
}

type FaceService struct {
	gallery    GalleryInterface
	classifier ClassifierInterface
	events     EventPublisher
	audit      audit.Logger
	logger     *slog.Logger
}

func NewFaceService(gallery GalleryInterface, clf ClassifierInterface, logger *slog.Logger) *FaceService {
	return &FaceService{
		gallery:    gallery,
		classifier: clf,
		audit:      &audit.NoOpLogger{},
		logger:     logger,
	}
}

// WithEvents publishes gallery and training changes to websocket clients.
func (s *FaceService) WithEvents(events EventPublisher) *FaceService {
	s.events = events
	return s
}

// WithAudit records every gallery change and retrain.
func (s *FaceService) WithAudit(l audit.Logger) *FaceService {
	s.audit = l
	return s
}

// Enroll stores the faces found in raw under identityID. The gallery retrains the
// classifier before this returns whenever at least one crop was written.
func (s *FaceService) Enroll(ctx context.Context, identityID, category string, raw []byte) (*EnrollResult, error) {
	if len(raw) == 0 {
		return nil, domain.ErrDecodeImage
	}

	cat := domain.ParseCategory(category)
	added, err := s.gallery.Enroll(ctx, identityID, cat, raw)
	s.record(ctx, audit.Event{
		EventType:  audit.EventIdentityEnrolled,
		IdentityID: identityID,
		Category:   string(cat),
		Metadata:   map[string]string{"faces_saved": strconv.Itoa(added)},
	}, err)
	if err != nil {
		return nil, fmt.Errorf("enroll %s: %w", identityID, err)
	}

	result := &EnrollResult{ID: identityID, Category: cat, FacesSaved: added}
	if added > 0 {
		s.publish(ws.EventFaceRegistered, result)
		s.publish(ws.EventClassifierTrained, s.classifier.Stats())
	}
	return result, nil
}

func (s *FaceService) Delete(ctx context.Context, identityID string) error {
	removed, err := s.gallery.Delete(ctx, identityID)
	if err == nil && !removed {
		err = domain.ErrIdentityNotFound
	}
	s.record(ctx, audit.Event{EventType: audit.EventIdentityDeleted, IdentityID: identityID}, err)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", identityID, err)
	}

	s.publish(ws.EventFaceDeleted, map[string]string{"id": identityID})
	s.publish(ws.EventClassifierTrained, s.classifier.Stats())
	return nil
}

// ListIDs returns every enrolled identity id, sorted.
func (s *FaceService) ListIDs(ctx context.Context) ([]string, error) {
	identities, err := s.gallery.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	ids := make([]string, len(identities))
	for i, id := range identities {
		ids[i] = id.ID
	}
	return ids, nil
}

func (s *FaceService) List(ctx context.Context) ([]IdentitySummary, error) {
	identities, err := s.gallery.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	out := make([]IdentitySummary, len(identities))
	for i, id := range identities {
		out[i] = IdentitySummary{ID: id.ID, Category: id.Category, Crops: len(id.CropPaths)}
	}
	return out, nil
}

// Train forces a full retrain and returns the resulting stats.
func (s *FaceService) Train(ctx context.Context) (classifier.Stats, error) {
	err := s.classifier.Train(ctx)
	s.record(ctx, audit.Event{EventType: audit.EventClassifierTrained}, err)
	if err != nil {
		return classifier.Stats{}, fmt.Errorf("train classifier: %w", err)
	}
	stats := s.classifier.Stats()
	s.logger.Info("classifier retrained on request",
		"identities", stats.Identities,
		"samples", stats.Samples,
	)
	s.publish(ws.EventClassifierTrained, stats)
	return stats, nil
}

func (s *FaceService) Stats() classifier.Stats {
	return s.classifier.Stats()
}

func (s *FaceService) record(ctx context.Context, ev audit.Event, err error) {
	ev.Success = err == nil
	if err != nil {
		ev.Error = err.Error()
	}
	if logErr := s.audit.Log(ctx, ev); logErr != nil {
		s.logger.Warn("failed to write audit event", "error", logErr, "event_type", ev.EventType)
	}
}

func (s *FaceService) publish(eventType ws.EventType, data any) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(eventType, data)
}
