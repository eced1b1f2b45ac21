package domain

import (
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
)

// BBox is a face box in frame pixel coordinates.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

func BBoxFromRect(r image.Rectangle) BBox {
	return BBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// MarshalJSON emits [x, y, w, h], the layout the dashboard already consumes.
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X, b.Y, b.Width, b.Height})
}

func (b *BBox) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	*b = BBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	return nil
}

// MatchResult is what the classifier reports for a single face crop.
// Confidence is a distance: lower means more similar.
type MatchResult struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	IsMatch    bool     `json:"face_match"`
	Category   Category `json:"category"`
}

// UnknownMatch is the outcome for empty input, an empty gallery or a failed prediction.
func UnknownMatch() MatchResult {
	return MatchResult{Label: UnknownLabel, Confidence: 0, IsMatch: false, Category: CategoryUnknown}
}

// DetectionEvent is one located face in a published frame.
type DetectionEvent struct {
	BBox       BBox      `json:"bbox"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Category   Category  `json:"category"`
	IsMatch    bool      `json:"face_match"`
	Alert      bool      `json:"alert"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewDetectionEvent derives the event from a match so that the label/category/alert
// fields always agree with IsMatch.
func NewDetectionEvent(box BBox, m MatchResult, at time.Time) DetectionEvent {
	ev := DetectionEvent{
		BBox:       box,
		Label:      UnknownLabel,
		Confidence: m.Confidence,
		Category:   CategoryUnknown,
		IsMatch:    m.IsMatch && m.Category.IsEnrollable(),
		Timestamp:  at.UTC(),
	}
	if ev.IsMatch {
		ev.Label = m.Label
		ev.Category = m.Category
	}
	ev.Alert = !ev.IsMatch || ev.Category == CategoryCriminal
	return ev
}

// DetectionRecord is an alerting event as stored in the detection history.
type DetectionRecord struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	Category   Category  `json:"category"`
	Confidence float64   `json:"confidence"`
	IsMatch    bool      `json:"face_match"`
	BBox       BBox      `json:"bbox"`
	DetectedAt time.Time `json:"detected_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewDetectionRecord(ev DetectionEvent) *DetectionRecord {
	return &DetectionRecord{
		ID:         uuid.New(),
		Label:      ev.Label,
		Category:   ev.Category,
		Confidence: ev.Confidence,
		IsMatch:    ev.IsMatch,
		BBox:       ev.BBox,
		DetectedAt: ev.Timestamp,
	}
}
