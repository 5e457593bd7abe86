package controller

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"todo-agent-backend/config"
	"todo-agent-backend/middleware"
	"todo-agent-backend/request"
	"todo-agent-backend/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin 非浏览器客户端不带 Origin，浏览器只允许 CORS 白名单中的来源
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := config.Cfg.CORS.AllowOrigins
	return slices.Contains(allowed, "*") || slices.Contains(allowed, strings.TrimRight(origin, "/"))
}

// wsConn 串行化并发写
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// ChatWebSocket 每个文本帧是一条对话请求 {message, session_token}，按顺序逐条应答
func (cc *ChatController) ChatWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error(ErrUpgradeWebSocket.Error(), "err", err)
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	user := middleware.CurrentUser(c)
	requestID := c.GetString(middleware.ContextKeyRequestID)
	ctx := c.Request.Context()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := ws.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		// 一次对话可能超过 wsPongWait，每次读取前重新计时
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Info("WebSocket read failed", "user_id", user.ID, "err", err)
			}
			return
		}

		var req request.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Message) == "" || req.Token() == "" {
			if err := ws.writeJSON(response.Response{Msg: ErrParseRequest.Error()}); err != nil {
				return
			}
			continue
		}

		reply, err := cc.service.Chat(ctx, user, req.Message, req.Token())
		if err != nil {
			slog.Error(ErrCallAgent.Error(),
				"user_id", user.ID,
				"request_id", requestID,
				"err", err,
			)
			if werr := ws.writeJSON(response.Response{Msg: ErrCallAgent.Error(), RequestID: requestID}); werr != nil {
				return
			}
			continue
		}

		if err := ws.writeJSON(chatResponse(reply)); err != nil {
			slog.Info("WebSocket write failed", "user_id", user.ID, "err", err)
			return
		}
	}
}
