package dto

import "ai-docguard-be/internal/entity"

type AskRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

type ConversationResponse struct {
	SessionId string                    `json:"sessionId"`
	Messages  []entity.ConversationTurn `json:"messages"`
}
