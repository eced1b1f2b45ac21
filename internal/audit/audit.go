// Package audit records changes to the face gallery and classifier. Every enrollment,
// deletion and retrain is written as one structured log line so operators can
// reconstruct who was added to which watch list and when.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventIdentityEnrolled  EventType = "IDENTITY_ENROLLED"
	EventIdentityDeleted   EventType = "IDENTITY_DELETED"
	EventClassifierTrained EventType = "CLASSIFIER_TRAINED"
)

type Event struct {
	ID         uuid.UUID         `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	EventType  EventType         `json:"event_type"`
	IdentityID string            `json:"identity_id,omitempty"`
	Category   string            `json:"category,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Logger is implemented by SlogLogger and NoOpLogger.
type Logger interface {
	Log(ctx context.Context, event Event) error
}

type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log fills in ID and Timestamp when unset and writes the event at Info, or at Warn
// when the change failed. The full event is attached as event_data for log shippers.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event %s: %w", event.EventType, err)
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("identity_id", event.IdentityID),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(data)),
	}
	if event.Category != "" {
		attrs = append(attrs, slog.String("category", event.Category))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	l.logger.LogAttrs(ctx, level, "audit_event", attrs...)
	return nil
}

type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
