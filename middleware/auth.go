package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"todo-agent-backend/config"
	"todo-agent-backend/dao"
	"todo-agent-backend/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextKeyUser = "user"

var ErrUnauthorized = errors.New("could not validate credentials")

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type userContextKey struct{}

func GenerateToken(user *model.User) (string, error) {
	expiration := config.Cfg.JWT.Expiration
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secretKey := []byte(config.Cfg.JWT.SecretKey)
	return token.SignedString(secretKey)
}

// ParseToken 校验签名和有效期，返回 token 中的用户 ID
func ParseToken(tokenString string) (uint, *Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Cfg.JWT.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, nil, ErrUnauthorized
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, nil, ErrUnauthorized
	}
	return uint(userID), claims, nil
}

// ResolveCurrentUser 由 Authorization 头解析出当前用户
func ResolveCurrentUser(ctx context.Context, authHeader string) (*model.User, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrUnauthorized
	}

	userID, _, err := ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}

	user, err := dao.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		// 浏览器的 WebSocket 握手无法设置请求头
		if authHeader == "" && c.IsWebsocket() {
			if token := c.Query("access_token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			slog.Info("Authorization header required")
			abortUnauthorized(c)
			return
		}

		user, err := ResolveCurrentUser(c.Request.Context(), authHeader)
		if err != nil {
			slog.Info("Invalid token", "err", err)
			abortUnauthorized(c)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"msg": ErrUnauthorized.Error(),
	})
}

// CurrentUser 必须在 AuthMiddleware 之后调用
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*model.User)
	return user, ok && user != nil
}
