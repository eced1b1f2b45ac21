package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one accepted alerting detection.
type Alert struct {
	ID          uuid.UUID             `json:"id"`
	Key         string                `json:"key"`
	Severity    Severity              `json:"severity"`
	Event       domain.DetectionEvent `json:"event"`
	TriggeredAt time.Time             `json:"triggered_at"`
}

// KeyFor groups events that share a cooldown: one key per watch-listed identity and
// a single key for all intruders, since unknown faces cannot be told apart.
func KeyFor(ev domain.DetectionEvent) string {
	if ev.IsMatch {
		return string(ev.Category) + ":" + ev.Label
	}
	return domain.UnknownLabel
}

func SeverityFor(ev domain.DetectionEvent) Severity {
	if ev.IsMatch && ev.Category == domain.CategoryCriminal {
		return SeverityCritical
	}
	return SeverityWarning
}
