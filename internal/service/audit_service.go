package service

import (
	"context"
	"fmt"

	"ai-docguard-be/internal/dto"
	"ai-docguard-be/internal/repository"
	"ai-docguard-be/pkg/apperror"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// IAuditService reads back the persisted lifecycle trail of a session.
type IAuditService interface {
	Events(ctx context.Context, sessionID string, limit int) (*dto.SessionEventListResponse, error)
}

type auditService struct {
	pipeline IPipelineService
	repo     repository.SessionEventRepository
}

func NewAuditService(pipeline IPipelineService, repo repository.SessionEventRepository) IAuditService {
	return &auditService{pipeline: pipeline, repo: repo}
}

func (s *auditService) Events(ctx context.Context, sessionID string, limit int) (*dto.SessionEventListResponse, error) {
	// State validates the id and answers 404 for unknown sessions.
	if _, err := s.pipeline.State(ctx, sessionID); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultEventLimit
	case limit > maxEventLimit:
		limit = maxEventLimit
	}

	rows, err := s.repo.FindBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("load session events: %w", err))
	}

	resp := &dto.SessionEventListResponse{
		SessionId: sessionID,
		Events:    make([]dto.SessionEventResponse, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Events = append(resp.Events, dto.SessionEventResponse{
			Id:         row.Id.String(),
			EventType:  row.EventType,
			Payload:    []byte(row.Payload),
			OccurredAt: row.OccurredAt,
		})
	}
	return resp, nil
}
