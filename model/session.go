package model

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatSession 同一个 session token 可被不同用户复用，唯一性由 (user_id, session_token) 保证
type ChatSession struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UserID       uint      `gorm:"not null;uniqueIndex:uq_user_session" json:"user_id"`
	SessionToken string    `gorm:"not null;size:191;uniqueIndex:uq_user_session" json:"session_token"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage 建立联合索引 (session_id, created_at)
type ChatMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_session_created" json:"created_at"`
	SessionID uint      `gorm:"not null;index:idx_session_created" json:"session_id"`
	Sender    Sender    `gorm:"not null;size:16" json:"sender"`
	Content   string    `gorm:"type:text" json:"content"`

	// 本轮对话中调用过的工具名，逗号分隔；未调用工具时为 NULL
	ToolUsed *string `gorm:"type:text" json:"tool_used"`

	// 长消息的摘要，历史回放时优先使用
	Summary string `gorm:"type:text" json:"summary"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
