package webhook

import (
	"time"
)

// Payload is the JSON body of every delivery.
type Payload struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
