package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"todo-agent-backend/middleware"
	"todo-agent-backend/request"
	"todo-agent-backend/response"
	"todo-agent-backend/service/auth"

	"github.com/gin-gonic/gin"
)

func UserRegister(c *gin.Context) {
	var req request.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	user, err := auth.UserRegister(c.Request.Context(), req)
	if errors.Is(err, auth.ErrUserExists) {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrUserExists.Error(),
		})
		return
	}
	if err != nil {
		slog.Error(ErrUserRegister.Error(), "err", err)
		abortInternal(c, ErrUserRegister)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.NewUserResponse(user),
	})
}

// UserLogin 同时接受 JSON 和表单（OAuth2 password flow）格式
func UserLogin(c *gin.Context) {
	var req request.UserLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	user, err := auth.UserLogin(c.Request.Context(), req)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		slog.Info("Login failed", "username", req.Username)
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{
			Msg: ErrUserLogin.Error(),
		})
		return
	case errors.Is(err, auth.ErrInactiveUser):
		c.AbortWithStatusJSON(http.StatusForbidden, response.Response{
			Msg: ErrInactiveUser.Error(),
		})
		return
	case err != nil:
		slog.Error("Failed to login",
			"username", req.Username,
			"err", err,
		)
		abortInternal(c, ErrUserLogin)
		return
	}

	token, err := middleware.GenerateToken(user)
	if err != nil {
		slog.Error(ErrGenerateToken.Error(),
			"user_id", user.ID,
			"err", err,
		)
		abortInternal(c, ErrGenerateToken)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.TokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
		},
	})
}

func GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, response.Response{
		Data: response.NewUserResponse(middleware.CurrentUser(c)),
	})
}

// abortInternal 500 响应附带请求关联 ID
func abortInternal(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
		Msg:       err.Error(),
		RequestID: c.GetString(middleware.ContextKeyRequestID),
	})
}
