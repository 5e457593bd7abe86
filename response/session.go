package response

import "time"

type SessionResponse struct {
	SessionToken string    `json:"session_token"`
	CreatedAt    time.Time `json:"created_at"`
}

type GetSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type MessageResponse struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	ToolUsed  *string   `json:"tool_used"`
}

type GetSessionMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}
