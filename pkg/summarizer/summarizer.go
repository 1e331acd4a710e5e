package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"
	"ai-docguard-be/pkg/session"
	"ai-docguard-be/pkg/upstream"
)

const summarizePath = "/api/summarize"

type summarizeResponse struct {
	Status   string          `json:"status"`
	Summary  *string         `json:"summary"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Summarizer uploads a document to the remote summarization endpoint and stores the text it returns.
type Summarizer struct {
	store  *session.Store
	client *upstream.Client
	logger logger.ILogger
}

func New(store *session.Store, client *upstream.Client, log logger.ILogger) *Summarizer {
	return &Summarizer{store: store, client: client, logger: log}
}

func (s *Summarizer) Summarize(ctx context.Context, sessionID, filePath string) (string, error) {
	info, err := s.store.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperror.Validation(fmt.Sprintf("file %s does not exist", filepath.Base(filePath)))
		}
		return "", apperror.Internal(fmt.Errorf("stat file: %w", err))
	}
	if !info.Mode().IsRegular() {
		return "", apperror.Validation(fmt.Sprintf("%s is not a regular file", filepath.Base(filePath)))
	}

	if _, err := s.store.Ensure(sessionID); err != nil {
		return "", err
	}
	paths, err := s.store.Paths(sessionID)
	if err != nil {
		return "", err
	}

	file, err := s.store.Open(filePath)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("open file: %w", err))
	}
	defer file.Close()

	s.logger.Info("Summarizer", "Sending document for summarization", map[string]interface{}{
		"session_id": sessionID,
		"file":       filepath.Base(filePath),
		"size":       info.Size(),
	})

	body, err := s.client.PostMultipart(ctx, upstream.CollaboratorSummarizer, summarizePath,
		map[string]string{"sessionId": sessionID}, "file", filepath.Base(filePath), file)
	if err != nil {
		s.logger.Error("Summarizer", "Summarization failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
		return "", err
	}

	var resp summarizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperror.UpstreamRejected(http.StatusBadGateway, fmt.Sprintf("summarization service returned malformed JSON: %v", err))
	}
	if resp.Summary == nil {
		return "", apperror.UpstreamRejected(http.StatusBadGateway, "summarization service returned no summary")
	}

	if err := s.store.WriteFileAtomic(paths.Summary, []byte(*resp.Summary)); err != nil {
		return "", apperror.Internal(fmt.Errorf("persist summary: %w", err))
	}

	s.logger.Info("Summarizer", "Summary stored", map[string]interface{}{
		"session_id": sessionID,
		"length":     len(*resp.Summary),
	})
	return *resp.Summary, nil
}

// Load returns a previously stored summary.
func (s *Summarizer) Load(sessionID string) (string, bool, error) {
	paths, err := s.store.Paths(sessionID)
	if err != nil {
		return "", false, err
	}
	exists, err := s.store.FileExists(paths.Summary)
	if err != nil || !exists {
		return "", false, err
	}
	data, err := s.store.ReadFile(paths.Summary)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}
