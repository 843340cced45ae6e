package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the create flow
const (
	TypeProjectCreated   = "project.created"
	TypeProjectCancelled = "project.cancelled"
	TypeProjectDuplicate = "project.duplicate"
	TypeProjectFailed    = "project.failed"
)

// DefaultStream is used when none is configured
const DefaultStream = "orchestrator:events"

// Event is a flow outcome published to the events stream
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	TokenRef  string         `json:"token_ref"`
	RequestID string         `json:"request_id,omitempty"`
	Payload   map[string]any `json:"payload"`
	Created   int64          `json:"created"`
}

// New creates an event with a generated ID and timestamp
func New(eventType, tokenRef string, payload map[string]any) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		TokenRef: tokenRef,
		Payload:  payload,
		Created:  time.Now().Unix(),
	}
}

// ToRedisValues converts the event to Redis stream values
func (e Event) ToRedisValues() map[string]any {
	payloadJSON, _ := json.Marshal(e.Payload)

	return map[string]any{
		"id":         e.ID,
		"type":       e.Type,
		"token_ref":  e.TokenRef,
		"request_id": e.RequestID,
		"payload":    string(payloadJSON),
		"created":    strconv.FormatInt(e.Created, 10),
	}
}

// FromRedisValues creates an Event from Redis stream values
func FromRedisValues(values map[string]any) (*Event, error) {
	e := &Event{}

	if v, ok := values["id"].(string); ok {
		e.ID = v
	}
	if v, ok := values["type"].(string); ok {
		e.Type = v
	}
	if v, ok := values["token_ref"].(string); ok {
		e.TokenRef = v
	}
	if v, ok := values["request_id"].(string); ok {
		e.RequestID = v
	}

	if v, ok := values["payload"].(string); ok && v != "" {
		if err := json.Unmarshal([]byte(v), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	if v, ok := values["created"].(string); ok {
		created, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created: %w", err)
		}
		e.Created = created
	}

	return e, nil
}
