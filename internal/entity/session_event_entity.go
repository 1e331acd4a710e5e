package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionEvent is one row of the pipeline audit trail.
type SessionEvent struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId  string         `gorm:"type:varchar(36);not null;index"`
	EventType  string         `gorm:"type:varchar(64);not null;index"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt time.Time      `gorm:"not null;index"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (SessionEvent) TableName() string {
	return "session_events"
}
