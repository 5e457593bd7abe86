package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID       = "X-Request-ID"
	ContextKeyRequestID   = "request_id"
	maxIncomingRequestIDs = 128
)

// RequestID 为每个请求分配关联 ID，客户端传入的 ID 会被沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxIncomingRequestIDs {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
