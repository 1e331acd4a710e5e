package service

import (
	"context"
	"testing"
	"time"

	"ai-docguard-be/internal/entity"
	"ai-docguard-be/pkg/apperror"
	"ai-docguard-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// knownSessions answers State only; the audit service needs nothing else.
type knownSessions struct {
	IPipelineService
	ids map[string]bool
}

func (k knownSessions) State(_ context.Context, id string) (entity.SessionState, error) {
	if !k.ids[id] {
		return "", apperror.SessionNotFound(id)
	}
	return entity.SessionStateScanned, nil
}

func TestAuditEvents(t *testing.T) {
	const sessionID = "3f1c2a9e-5b7d-4e8a-9c10-2d3e4f5a6b7c"
	ctx := context.Background()

	repo := &memoryEventRepo{}
	occurred := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &entity.SessionEvent{
		Id:         uuid.New(),
		SessionId:  sessionID,
		EventType:  events.TypeSessionScanned,
		Payload:    datatypes.JSON(`{"risk_level":1}`),
		OccurredAt: occurred,
	}))

	svc := NewAuditService(knownSessions{ids: map[string]bool{sessionID: true}}, repo)

	t.Run("lists stored events", func(t *testing.T) {
		resp, err := svc.Events(ctx, sessionID, 0)
		require.NoError(t, err)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, events.TypeSessionScanned, resp.Events[0].EventType)
		assert.JSONEq(t, `{"risk_level":1}`, string(resp.Events[0].Payload))
		assert.Equal(t, occurred, resp.Events[0].OccurredAt)
		assert.Equal(t, defaultEventLimit, repo.lastLimit)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		_, err := svc.Events(ctx, sessionID, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, maxEventLimit, repo.lastLimit)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Events(ctx, "0b0c2a9e-5b7d-4e8a-9c10-2d3e4f5a6b7c", 10)
		assert.Equal(t, apperror.KindSessionNotFound, apperror.KindOf(err))
	})
}
