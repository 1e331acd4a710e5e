package service

import (
	"context"
	"fmt"

	"ai-docguard-be/internal/dto"
	"ai-docguard-be/internal/entity"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/internal/repository/memory"
	"ai-docguard-be/pkg/apperror"
	"ai-docguard-be/pkg/events"
	"ai-docguard-be/pkg/metrics"
	"ai-docguard-be/pkg/session"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ai-docguard-be/pipeline"

// Scanner is the security gate step.
type Scanner interface {
	Scan(ctx context.Context, sessionID, filePath string) (*entity.ScanReport, error)
	Load(sessionID string) (*entity.ScanReport, error)
}

// Summarizer is the remote summarization step.
type Summarizer interface {
	Summarize(ctx context.Context, sessionID, filePath string) (string, error)
	Load(sessionID string) (string, bool, error)
}

// Conversation is the per-session question/answer log.
type Conversation interface {
	Ask(ctx context.Context, sessionID, question string) ([]entity.ConversationTurn, error)
	History(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error)
}

type IPipelineService interface {
	Intake(ctx context.Context, req *dto.IntakeRequest) (*dto.IntakeResponse, error)
	Ask(ctx context.Context, sessionID, question string) (*dto.ConversationResponse, error)
	History(ctx context.Context, sessionID string) (*dto.ConversationResponse, error)
	Session(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	State(ctx context.Context, sessionID string) (entity.SessionState, error)
}

type PipelineDeps struct {
	Store        *session.Store
	Locker       session.Locker
	Scanner      Scanner
	Summarizer   Summarizer
	Conversation Conversation
	States       *memory.SessionStateRepository
	Publisher    IPublisherService
	Metrics      *metrics.Metrics
	Logger       logger.ILogger
}

type pipelineService struct {
	PipelineDeps
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewPipelineService(deps PipelineDeps) IPipelineService {
	return &pipelineService{
		PipelineDeps: deps,
		validate:     validator.New(),
		tracer:       otel.Tracer(tracerName),
	}
}

// Intake runs scan and, unless the document is rejected, summarization for one upload.
// A rejection is a normal outcome: the response has Rejected set and err is nil.
func (s *pipelineService) Intake(ctx context.Context, req *dto.IntakeRequest) (*dto.IntakeResponse, error) {
	if req == nil || req.File == nil {
		return nil, apperror.Validation("file is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "a non-empty file and a valid sessionId are required")
	}

	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := s.Store.ValidateID(sessionID); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.intake", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	resp, err := s.intake(ctx, sessionID, req)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("scan.risk_level", resp.Report.RiskLevel),
		attribute.Bool("scan.rejected", resp.Rejected),
	)
	return resp, nil
}

func (s *pipelineService) intake(ctx context.Context, sessionID string, req *dto.IntakeRequest) (*dto.IntakeResponse, error) {
	unlock, err := s.Locker.Lock(ctx, session.IntakeKey(sessionID))
	if err != nil {
		return nil, session.LockError(ctx, err)
	}
	defer unlock()

	paths, err := s.Store.Paths(sessionID)
	if err != nil {
		return nil, err
	}
	scanned, err := s.Store.FileExists(paths.Report)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("stat report: %w", err))
	}
	if scanned {
		return s.resumeSummary(ctx, sessionID, paths)
	}

	if _, err := s.Store.Ensure(sessionID); err != nil {
		return nil, err
	}
	s.transition(sessionID, entity.SessionStateCreated)

	filePath, err := s.Store.SaveUpload(sessionID, req.FileName, req.File)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Pipeline", "Document received", map[string]interface{}{
		"session_id": sessionID,
		"file":       session.SanitizeFileName(req.FileName),
		"size":       req.Size,
	})

	report, err := s.scan(ctx, sessionID, filePath)
	if err != nil {
		s.fail(ctx, sessionID, "scan", err)
		return nil, err
	}

	if report.Rejected() {
		s.transition(sessionID, entity.SessionStateRejected)
		s.emit(ctx, events.TypeSessionRejected, sessionID, reportDetails(report))
		s.Logger.Warn("Pipeline", "Document rejected by security gate", map[string]interface{}{
			"session_id": sessionID,
			"risk_level": report.RiskLevel,
			"risk_label": report.RiskLabel,
		})
		return &dto.IntakeResponse{
			Status:    dto.IntakeStatusRejected,
			SessionId: sessionID,
			Report:    report,
			Rejected:  true,
		}, nil
	}

	s.transition(sessionID, entity.SessionStateScanned)
	s.emit(ctx, events.TypeSessionScanned, sessionID, reportDetails(report))

	summary, err := s.summarize(ctx, sessionID, filePath)
	if err != nil {
		s.fail(ctx, sessionID, "summarize", err)
		return nil, err
	}

	s.transition(sessionID, entity.SessionStateSummarized)
	s.emit(ctx, events.TypeSessionSummarized, sessionID, map[string]interface{}{"length": len(summary)})

	return &dto.IntakeResponse{
		Status:    dto.IntakeStatusSuccess,
		SessionId: sessionID,
		Report:    report,
		Summary:   summary,
	}, nil
}

// resumeSummary retries summarization of the already scanned upload after an
// earlier attempt failed. The newly posted file is ignored: only scanned
// content may reach the summarizer. Rejected and summarized sessions are final.
func (s *pipelineService) resumeSummary(ctx context.Context, sessionID string, paths session.Paths) (*dto.IntakeResponse, error) {
	report, err := s.Scanner.Load(sessionID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("load report: %w", err))
	}
	if report.Rejected() {
		return nil, apperror.SessionConflict(sessionID, "the document was rejected by the security gate; start a new session")
	}

	summarized, err := s.Store.FileExists(paths.Summary)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("stat summary: %w", err))
	}
	if summarized {
		return nil, apperror.SessionConflict(sessionID, "a document was already summarized for this session; start a new session")
	}

	filePath, err := s.Store.Upload(sessionID)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Pipeline", "Retrying summarization of the scanned document", map[string]interface{}{
		"session_id": sessionID,
		"risk_level": report.RiskLevel,
	})

	summary, err := s.summarize(ctx, sessionID, filePath)
	if err != nil {
		s.fail(ctx, sessionID, "summarize", err)
		return nil, err
	}

	s.transition(sessionID, entity.SessionStateSummarized)
	s.emit(ctx, events.TypeSessionSummarized, sessionID, map[string]interface{}{"length": len(summary)})

	return &dto.IntakeResponse{
		Status:    dto.IntakeStatusSuccess,
		SessionId: sessionID,
		Report:    report,
		Summary:   summary,
	}, nil
}

func (s *pipelineService) scan(ctx context.Context, sessionID, filePath string) (*entity.ScanReport, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.scan")
	defer span.End()

	report, err := s.Scanner.Scan(ctx, sessionID, filePath)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("scan.risk_level", report.RiskLevel))
	return report, nil
}

func (s *pipelineService) summarize(ctx context.Context, sessionID, filePath string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.summarize")
	defer span.End()

	summary, err := s.Summarizer.Summarize(ctx, sessionID, filePath)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	return summary, nil
}

func (s *pipelineService) Ask(ctx context.Context, sessionID, question string) (*dto.ConversationResponse, error) {
	if err := s.requireSession(sessionID); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.ask", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	turns, err := s.Conversation.Ask(ctx, sessionID, question)
	if err != nil {
		recordSpanError(span, err)
		s.fail(ctx, sessionID, "ask", err)
		return nil, err
	}

	s.emit(ctx, events.TypeConversationUpdated, sessionID, map[string]interface{}{"turns": len(turns)})
	return &dto.ConversationResponse{SessionId: sessionID, Messages: turns}, nil
}

func (s *pipelineService) History(ctx context.Context, sessionID string) (*dto.ConversationResponse, error) {
	if err := s.requireSession(sessionID); err != nil {
		return nil, err
	}
	turns, err := s.Conversation.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.ConversationResponse{SessionId: sessionID, Messages: turns}, nil
}

func (s *pipelineService) Session(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.SessionResponse{SessionId: sessionID, State: state}
	if state == entity.SessionStateCreated {
		return resp, nil
	}

	report, err := s.Scanner.Load(sessionID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("load report: %w", err))
	}
	resp.Report = report

	summary, ok, err := s.Summarizer.Load(sessionID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("load summary: %w", err))
	}
	if ok {
		resp.Summary = &summary
	}
	return resp, nil
}

// State derives the lifecycle position from the artifacts on disk, with a cache in front.
func (s *pipelineService) State(ctx context.Context, sessionID string) (entity.SessionState, error) {
	if err := s.requireSession(sessionID); err != nil {
		return "", err
	}
	if state, ok := s.States.Get(sessionID); ok {
		return state, nil
	}

	state, err := s.deriveState(sessionID)
	if err != nil {
		return "", err
	}
	s.States.Save(sessionID, state)
	return state, nil
}

func (s *pipelineService) deriveState(sessionID string) (entity.SessionState, error) {
	paths, err := s.Store.Paths(sessionID)
	if err != nil {
		return "", err
	}

	hasReport, err := s.Store.FileExists(paths.Report)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if !hasReport {
		return entity.SessionStateCreated, nil
	}

	report, err := s.Scanner.Load(sessionID)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("load report: %w", err))
	}
	if report.Rejected() {
		return entity.SessionStateRejected, nil
	}

	hasSummary, err := s.Store.FileExists(paths.Summary)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if hasSummary {
		return entity.SessionStateSummarized, nil
	}
	return entity.SessionStateScanned, nil
}

func (s *pipelineService) requireSession(sessionID string) error {
	exists, err := s.Store.Exists(sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.SessionNotFound(sessionID)
	}
	return nil
}

func (s *pipelineService) transition(sessionID string, state entity.SessionState) {
	s.States.Save(sessionID, state)
	s.Metrics.ObserveTransition(string(state))
	s.Logger.Debug("Pipeline", "Session state changed", map[string]interface{}{
		"session_id": sessionID,
		"state":      state,
	})
}

func (s *pipelineService) fail(ctx context.Context, sessionID, stage string, err error) {
	s.Logger.Error("Pipeline", "Pipeline step failed", map[string]interface{}{
		"session_id": sessionID,
		"stage":      stage,
		"kind":       apperror.KindOf(err),
		"error":      err,
	})
	s.emit(ctx, events.TypePipelineFailed, sessionID, map[string]interface{}{
		"stage": stage,
		"kind":  string(apperror.KindOf(err)),
	})
}

// emit never fails the pipeline: events are observational.
func (s *pipelineService) emit(ctx context.Context, eventType, sessionID string, data map[string]interface{}) {
	if s.Publisher == nil {
		return
	}
	event := events.NewSessionEvent(eventType, sessionID, data)
	if err := s.Publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.Logger.Warn("Pipeline", "Failed to publish lifecycle event", map[string]interface{}{
			"session_id": sessionID,
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

func reportDetails(report *entity.ScanReport) map[string]interface{} {
	return map[string]interface{}{
		"risk_level": report.RiskLevel,
		"risk_label": report.RiskLabel,
		"decision":   report.SecurityDecision,
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperror.KindOf(err)))
}
