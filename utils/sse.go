package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 流式对话的事件类型
const (
	EventToolCallResult = "tool_call_result"
	EventFinalAnswer    = "final_answer"
	EventError          = "error"
	EventDone           = "done"
)

// SSEStream 客户端断开后的写入会被丢弃
type SSEStream struct {
	c *gin.Context
}

func NewSSEStream(c *gin.Context) *SSEStream {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	return &SSEStream{c: c}
}

// Send 返回 false 表示客户端已断开
func (s *SSEStream) Send(event string, data any) bool {
	if s.c.Request.Context().Err() != nil {
		return false
	}
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
	return true
}

func (s *SSEStream) Done() {
	s.Send(EventDone, "")
}
