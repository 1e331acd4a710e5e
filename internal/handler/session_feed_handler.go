package handler

import (
	"encoding/json"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/internal/service"
	internalWS "ai-docguard-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
)

// SessionFeedHandler streams lifecycle events of one session over a websocket.
type SessionFeedHandler struct {
	pipeline service.IPipelineService
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewSessionFeedHandler(pipeline service.IPipelineService, hub *internalWS.Hub, log logger.ILogger) *SessionFeedHandler {
	return &SessionFeedHandler{pipeline: pipeline, hub: hub, logger: log}
}

func (h *SessionFeedHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/sessions/:sessionId", h.ServeWs)
}

// ServeWs checks the session before upgrading and greets the client with its current state.
func (h *SessionFeedHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sessionID := utils.CopyString(c.Params("sessionId"))
	state, err := h.pipeline.State(c.UserContext(), sessionID)
	if err != nil {
		return err
	}

	greeting, _ := json.Marshal(fiber.Map{
		"type":      "SESSION_STATE",
		"sessionId": sessionID,
		"data":      fiber.Map{"state": state},
	})

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionFeed", "Watcher connected", map[string]interface{}{"session_id": sessionID})
		if err := conn.WriteMessage(websocket.TextMessage, greeting); err != nil {
			conn.Close()
			return
		}
		internalWS.ServeWs(h.hub, conn, sessionID)
		h.logger.Info("SessionFeed", "Watcher disconnected", map[string]interface{}{"session_id": sessionID})
	})(c)
}
