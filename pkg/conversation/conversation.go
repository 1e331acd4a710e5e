package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ai-docguard-be/internal/entity"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"
	"ai-docguard-be/pkg/session"
	"ai-docguard-be/pkg/upstream"
)

const (
	askPath = "/api/ask"

	maxQuestionLen = 4000
)

type askRequest struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
}

type answerSource struct {
	Source string          `json:"source"`
	Page   json.RawMessage `json:"page"`
}

type answerObject struct {
	Answer  *string        `json:"answer"`
	Sources []answerSource `json:"sources"`
}

// Conversation keeps the per-session question/answer log.
type Conversation struct {
	store  *session.Store
	locker session.Locker
	client *upstream.Client
	logger logger.ILogger
	now    func() time.Time
}

func New(store *session.Store, locker session.Locker, client *upstream.Client, log logger.ILogger) *Conversation {
	return &Conversation{
		store:  store,
		locker: locker,
		client: client,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ask appends the question and its answer to the session log and returns the whole log.
// A failed upstream call leaves the log exactly as it was before the call.
func (c *Conversation) Ask(ctx context.Context, sessionID, question string) ([]entity.ConversationTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperror.Validation("question is required")
	}
	if len(question) > maxQuestionLen {
		return nil, apperror.Validation(fmt.Sprintf("question exceeds %d characters", maxQuestionLen))
	}

	paths, err := c.store.Paths(sessionID)
	if err != nil {
		return nil, err
	}

	unlock, err := c.locker.Lock(ctx, session.ChatKey(sessionID))
	if err != nil {
		return nil, session.LockError(ctx, err)
	}
	defer unlock()

	if err := c.requireSession(sessionID); err != nil {
		return nil, err
	}

	previous, existed, err := c.readLog(paths.Conversation)
	if err != nil {
		return nil, err
	}

	turns := append(make([]entity.ConversationTurn, 0, len(previous)+2), previous...)
	turns = append(turns, entity.ConversationTurn{
		Role:      entity.RoleUser,
		Content:   question,
		CreatedAt: c.now(),
	})
	if err := c.writeLog(paths.Conversation, turns); err != nil {
		return nil, err
	}

	body, err := c.client.PostJSON(ctx, upstream.CollaboratorQA, askPath, askRequest{
		SessionID: sessionID,
		Question:  question,
	})
	if err == nil {
		var turn entity.ConversationTurn
		turn, err = parseAnswer(body)
		if err == nil {
			turn.CreatedAt = c.now()
			turns = append(turns, turn)
			if err := c.writeLog(paths.Conversation, turns); err != nil {
				c.rollback(sessionID, paths.Conversation, previous, existed)
				return nil, err
			}

			c.logger.Info("Conversation", "Question answered", map[string]interface{}{
				"session_id": sessionID,
				"turns":      len(turns),
				"citations":  len(turn.Citations),
			})
			return turns, nil
		}
	}

	c.logger.Error("Conversation", "Question failed, pending turn rolled back", map[string]interface{}{
		"session_id": sessionID,
		"error":      err,
	})
	c.rollback(sessionID, paths.Conversation, previous, existed)
	return nil, err
}

// History returns the persisted log without touching it.
func (c *Conversation) History(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	paths, err := c.store.Paths(sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.requireSession(sessionID); err != nil {
		return nil, err
	}
	turns, _, err := c.readLog(paths.Conversation)
	return turns, err
}

func (c *Conversation) requireSession(sessionID string) error {
	exists, err := c.store.Exists(sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.SessionNotFound(sessionID)
	}
	return nil
}

func (c *Conversation) readLog(path string) ([]entity.ConversationTurn, bool, error) {
	exists, err := c.store.FileExists(path)
	if err != nil {
		return nil, false, apperror.Internal(fmt.Errorf("stat conversation: %w", err))
	}
	if !exists {
		return []entity.ConversationTurn{}, false, nil
	}

	data, err := c.store.ReadFile(path)
	if err != nil {
		return nil, true, apperror.Internal(fmt.Errorf("read conversation: %w", err))
	}
	var turns []entity.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, true, apperror.Internal(fmt.Errorf("decode conversation: %w", err))
	}
	if turns == nil {
		turns = []entity.ConversationTurn{}
	}
	return turns, true, nil
}

func (c *Conversation) writeLog(path string, turns []entity.ConversationTurn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return apperror.Internal(fmt.Errorf("encode conversation: %w", err))
	}
	if err := c.store.WriteFileAtomic(path, data); err != nil {
		return apperror.Internal(fmt.Errorf("persist conversation: %w", err))
	}
	return nil
}

func (c *Conversation) rollback(sessionID, path string, previous []entity.ConversationTurn, existed bool) {
	var err error
	if existed {
		err = c.writeLog(path, previous)
	} else {
		err = c.store.Remove(path)
	}
	if err != nil {
		c.logger.Error("Conversation", "Rollback failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
	}
}

// parseAnswer accepts a bare JSON string, an {answer, sources} object, or plain text.
func parseAnswer(body []byte) (entity.ConversationTurn, error) {
	turn := entity.ConversationTurn{Role: entity.RoleAssistant}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return turn, apperror.UpstreamRejected(http.StatusBadGateway, "question answering service returned an empty answer")
	}

	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		turn.Content = text
		return turn, nil
	}

	var obj answerObject
	if err := json.Unmarshal(body, &obj); err != nil {
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			return turn, apperror.UpstreamRejected(http.StatusBadGateway, fmt.Sprintf("question answering service returned malformed JSON: %v", err))
		}
		turn.Content = trimmed
		return turn, nil
	}
	if obj.Answer == nil {
		return turn, apperror.UpstreamRejected(http.StatusBadGateway, "question answering service returned no answer")
	}

	turn.Content = *obj.Answer
	for _, src := range obj.Sources {
		turn.Citations = append(turn.Citations, entity.Citation{Source: src.Source, Page: parsePage(src.Page)})
	}
	return turn, nil
}

func parsePage(raw json.RawMessage) int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}
