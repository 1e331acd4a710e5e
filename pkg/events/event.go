package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic is the in-process bus topic carrying pipeline lifecycle events.
const Topic = "pipeline.events"

const (
	TypeSessionScanned      = "SESSION_SCANNED"
	TypeSessionRejected     = "SESSION_REJECTED"
	TypeSessionSummarized   = "SESSION_SUMMARIZED"
	TypeConversationUpdated = "CONVERSATION_UPDATED"
	TypePipelineFailed      = "PIPELINE_FAILED"
)

// Event is a lifecycle fact about one session.
type Event interface {
	EventID() string
	EventType() string
	SessionID() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Session    string                 `json:"sessionId"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// NewSessionEvent stamps an id and time and copies session_id into the payload.
func NewSessionEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["session_id"] = sessionID

	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Session:    sessionID,
		Data:       payload,
		OccurredAt: time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() string                 { return e.ID }
func (e BaseEvent) EventType() string               { return e.Type }
func (e BaseEvent) SessionID() string               { return e.Session }
func (e BaseEvent) Payload() map[string]interface{} { return e.Data }
func (e BaseEvent) Timestamp() time.Time            { return e.OccurredAt }

func Encode(e Event) ([]byte, error) {
	return json.Marshal(BaseEvent{
		ID:         e.EventID(),
		Type:       e.EventType(),
		Session:    e.SessionID(),
		Data:       e.Payload(),
		OccurredAt: e.Timestamp(),
	})
}

func Decode(data []byte) (BaseEvent, error) {
	var e BaseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BaseEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" || e.Session == "" {
		return BaseEvent{}, fmt.Errorf("decode event: missing type or session")
	}
	return e, nil
}
