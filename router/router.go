package router

import (
	"net/http"

	"todo-agent-backend/controller"
	"todo-agent-backend/middleware"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Chat controller.ChatService

	// MCP streamable HTTP 处理器，为 nil 时不挂载
	MCP http.Handler
}

func Register(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware())

	chatController := controller.NewChatController(deps.Chat)

	api := r.Group("/api")
	{
		api.GET("/health", controller.Health)

		public := api.Group("/auth")
		{
			public.POST("/register", controller.UserRegister)
			public.POST("/login", controller.UserLogin)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/auth/me", controller.GetMe)

			protected.POST("/todo", controller.CreateTodo)
			protected.GET("/todos", controller.GetTodos)
			protected.PATCH("/todo/:id", controller.UpdateTodo)
			protected.DELETE("/todo/:id", controller.DeleteTodo)

			protected.POST("/chat", chatController.Chat)
			protected.POST("/chat/stream", chatController.ChatStream)
			protected.GET("/chat/ws", chatController.ChatWebSocket)

			protected.GET("/sessions", controller.GetSessions)
			protected.GET("/session/:token/messages", controller.GetSessionMessages)
			protected.DELETE("/session/:token", controller.DeleteSession)

			if deps.MCP != nil {
				protected.Any("/mcp", gin.WrapH(deps.MCP))
			}
		}
	}

	return r
}
