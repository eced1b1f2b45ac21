package ws

import (
	"time"
)

type EventType string

const (
	EventSnapshotPublished EventType = "snapshot.published"
	EventAlert             EventType = "alert.triggered"
	EventFaceRegistered    EventType = "face.registered"
	EventFaceDeleted       EventType = "face.deleted"
	EventClassifierTrained EventType = "classifier.trained"
)

type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
