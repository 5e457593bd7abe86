package request

import "strings"

type ChatRequest struct {
	Message      string `json:"message" binding:"required"`
	SessionToken string `json:"session_token"`

	// 旧版前端使用的字段名
	SessionUUID string `json:"session_uuid"`
}

// Token 返回会话标识，优先使用 session_token
func (r *ChatRequest) Token() string {
	if t := strings.TrimSpace(r.SessionToken); t != "" {
		return t
	}
	return strings.TrimSpace(r.SessionUUID)
}
