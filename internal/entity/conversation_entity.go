package entity

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Citation struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type ConversationTurn struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
