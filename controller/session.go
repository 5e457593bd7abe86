package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"todo-agent-backend/dao"
	"todo-agent-backend/middleware"
	"todo-agent-backend/response"

	"github.com/gin-gonic/gin"
)

func GetSessions(c *gin.Context) {
	user := middleware.CurrentUser(c)
	sessions, err := dao.GetSessionsByUser(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error(ErrGetSessions.Error(), "err", err)
		abortInternal(c, ErrGetSessions)
		return
	}

	resp := response.GetSessionsResponse{
		Sessions: make([]response.SessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, response.SessionResponse{
			SessionToken: s.SessionToken,
			CreatedAt:    s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func DeleteSession(c *gin.Context) {
	user := middleware.CurrentUser(c)
	token := c.Param("token")

	err := dao.DeleteSession(c.Request.Context(), user.ID, token)
	if errors.Is(err, dao.ErrSessionNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrSessionNotFound.Error(),
		})
		return
	}
	if err != nil {
		slog.Error(ErrDeleteSession.Error(), "err", err)
		abortInternal(c, ErrDeleteSession)
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func GetSessionMessages(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	// 会话按 (user, token) 查找，其他用户的同名会话不可见
	session, err := dao.GetSessionByToken(ctx, user.ID, c.Param("token"))
	if errors.Is(err, dao.ErrSessionNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrSessionNotFound.Error(),
		})
		return
	}
	if err != nil {
		slog.Error(ErrGetSessionMessages.Error(), "err", err)
		abortInternal(c, ErrGetSessionMessages)
		return
	}

	messages, err := dao.GetMessagesBySessionID(ctx, session.ID)
	if err != nil {
		slog.Error(ErrGetSessionMessages.Error(), "err", err)
		abortInternal(c, ErrGetSessionMessages)
		return
	}

	resp := response.GetSessionMessagesResponse{
		Messages: make([]response.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, response.MessageResponse{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			Sender:    string(m.Sender),
			Content:   m.Content,
			ToolUsed:  m.ToolUsed,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}
