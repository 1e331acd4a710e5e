package dto

import (
	"encoding/json"
	"time"
)

type SessionEventResponse struct {
	Id         string          `json:"id"`
	EventType  string          `json:"eventType"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type SessionEventListResponse struct {
	SessionId string                 `json:"sessionId"`
	Events    []SessionEventResponse `json:"events"`
}
