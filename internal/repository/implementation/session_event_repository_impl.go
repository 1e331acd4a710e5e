package implementation

import (
	"context"

	"ai-docguard-be/internal/entity"
	"ai-docguard-be/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionEventRepositoryImpl struct {
	db *gorm.DB
}

func NewSessionEventRepository(db *gorm.DB) repository.SessionEventRepository {
	return &SessionEventRepositoryImpl{db: db}
}

// Create ignores a duplicate id so redelivered events are stored once.
func (r *SessionEventRepositoryImpl) Create(ctx context.Context, event *entity.SessionEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
}

func (r *SessionEventRepositoryImpl) FindBySession(ctx context.Context, sessionID string, limit int) ([]entity.SessionEvent, error) {
	var rows []entity.SessionEvent
	q := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *SessionEventRepositoryImpl) CountByType(ctx context.Context, eventType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.SessionEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error
	return count, err
}
