package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Event types published by the predictor.
const (
	TypeModelTrained        = "model.trained"
	TypePredictionCompleted = "prediction.completed"
)

// Event is the envelope every message on the bus is wrapped in.
type Event struct {
	ID        string         `json:"event_id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent builds an envelope with a fresh id.
func NewEvent(source, typ string, at time.Time, payload map[string]any) Event {
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Source:    source,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// Validate checks required fields.
func (e *Event) Validate() bool {
	return e.ID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}
