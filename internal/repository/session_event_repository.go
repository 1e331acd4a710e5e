package repository

import (
	"context"

	"ai-docguard-be/internal/entity"
)

type SessionEventRepository interface {
	Create(ctx context.Context, event *entity.SessionEvent) error
	FindBySession(ctx context.Context, sessionID string, limit int) ([]entity.SessionEvent, error)
	CountByType(ctx context.Context, eventType string) (int64, error)
}
