package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"todo-agent-backend/config"
	"todo-agent-backend/dao/daotest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConfig(t *testing.T) {
	t.Helper()
	prev := config.Cfg
	config.Cfg = config.Default()
	config.Cfg.JWT.SecretKey = "test-secret"
	t.Cleanup(func() { config.Cfg = prev })
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		user := CurrentUser(c)
		ctxUser, ok := UserFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"username": user.Username,
			"ctx":      ok && ctxUser.ID == user.ID,
		})
	})
	return r
}

func TestAuthMiddlewareResolvesUser(t *testing.T) {
	setupConfig(t)
	daotest.Setup(t)
	alice := daotest.CreateUser(t, "alice")

	token, err := GenerateToken(alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"alice","ctx":true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestAuthMiddlewareRejectsBadCredentials(t *testing.T) {
	setupConfig(t)
	daotest.Setup(t)
	alice := daotest.CreateUser(t, "alice")
	token, err := GenerateToken(alice)
	require.NoError(t, err)

	config.Cfg.JWT.SecretKey = "rotated"

	for name, header := range map[string]string{
		"missing":   "",
		"format":    "Token abc",
		"bad-sig":   "Bearer " + token,
		"not-a-jwt": "Bearer garbage",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			newTestEngine().ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextKeyRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}
