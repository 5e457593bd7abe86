package controller

import (
	"context"
	"log/slog"
	"net/http"

	"todo-agent-backend/middleware"
	"todo-agent-backend/model"
	"todo-agent-backend/request"
	"todo-agent-backend/response"
	"todo-agent-backend/service/chat"
	"todo-agent-backend/utils"

	"github.com/gin-gonic/gin"
)

// ChatService 由 *chat.Service 实现
type ChatService interface {
	Chat(ctx context.Context, user *model.User, message, token string) (*chat.Reply, error)
	ChatStream(ctx context.Context, user *model.User, message, token string, onToolResult func(chat.ToolEvent)) (*chat.Reply, error)
}

type ChatController struct {
	service ChatService
}

func NewChatController(service ChatService) *ChatController {
	return &ChatController{service: service}
}

// bindChatRequest 解析请求，失败时已写入 400 响应
func bindChatRequest(c *gin.Context) (request.ChatRequest, bool) {
	var req request.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return req, false
	}
	if req.Token() == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrMissingSessionToken.Error(),
		})
		return req, false
	}
	return req, true
}

func chatResponse(reply *chat.Reply) response.ChatResponse {
	if reply.Upstream {
		return response.ChatResponse{Answer: reply.Answer}
	}
	return response.ChatResponse{
		Answer:       reply.Answer,
		SessionToken: reply.SessionToken,
	}
}

// Chat 模型服务出错时仍返回 200，answer 为 "API Error: ..."
func (cc *ChatController) Chat(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	reply, err := cc.service.Chat(c.Request.Context(), user, req.Message, req.Token())
	if err != nil {
		slog.Error(ErrCallAgent.Error(),
			"user_id", user.ID,
			"request_id", c.GetString(middleware.ContextKeyRequestID),
			"err", err,
		)
		abortInternal(c, ErrCallAgent)
		return
	}

	c.JSON(http.StatusOK, chatResponse(reply))
}

// ChatStream 以 SSE 推送每个工具调用的结果，最后推送最终回答
func (cc *ChatController) ChatStream(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}

	stream := utils.NewSSEStream(c)

	user := middleware.CurrentUser(c)
	reply, err := cc.service.ChatStream(c.Request.Context(), user, req.Message, req.Token(), func(e chat.ToolEvent) {
		stream.Send(utils.EventToolCallResult, e)
	})
	if err != nil {
		slog.Error(ErrCallAgent.Error(),
			"user_id", user.ID,
			"request_id", c.GetString(middleware.ContextKeyRequestID),
			"err", err,
		)
		stream.Send(utils.EventError, response.Response{
			Msg:       ErrCallAgent.Error(),
			RequestID: c.GetString(middleware.ContextKeyRequestID),
		})
		stream.Done()
		return
	}

	stream.Send(utils.EventFinalAnswer, chatResponse(reply))
	stream.Done()
}
