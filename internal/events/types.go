package events

import "time"

// Event types
const (
	EventCallEnded            = "call.ended"
	EventNegotiationCompleted = "negotiation.completed"
)

const SchemaVersion = "1.0"

// Envelope wraps every published event.
type Envelope struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type"`
	SchemaVersion  string         `json:"schema_version"`
	IdempotencyKey string         `json:"idempotency_key"`
	Timestamp      time.Time      `json:"timestamp"`
	Source         string         `json:"source"`
	CallID         string         `json:"call_id"`
	Data           map[string]any `json:"data"`
}
