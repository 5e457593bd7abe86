// Package mcpserver 通过 MCP 协议对外暴露 todo 工具，工具调用以当前登录用户的身份执行
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"todo-agent-backend/middleware"
	"todo-agent-backend/model"
	"todo-agent-backend/service/chat"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "todo-agent"
	serverVersion = "1.0.0"

	promptSummarizeDay = "summarize_day"
)

func New(executor chat.ToolExecutor) (*server.MCPServer, error) {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	for _, spec := range chat.Registry() {
		schema, err := spec.SchemaJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to build schema for tool %s: %v", spec.Name, err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(spec.Name, spec.Description, schema), toolHandler(executor, spec.Name))
	}

	s.AddPrompt(mcp.NewPrompt(promptSummarizeDay,
		mcp.WithPromptDescription("Summarize the authenticated user's day based on their todos"),
		mcp.WithArgument("date",
			mcp.ArgumentDescription("Day to summarize in YYYY-MM-DD, defaults to today"),
		),
	), summarizeDayHandler)
	return s, nil
}

// summarizeDayHandler 提示词只针对当前登录用户，不接受指定其他用户
func summarizeDayHandler(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user not found")
	}

	day := "today"
	if date := strings.TrimSpace(req.Params.Arguments["date"]); date != "" {
		if _, err := model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("date %q is not YYYY-MM-DD", date)
		}
		day = date
	}

	text := fmt.Sprintf("Please look at my todos for %s using the %s tool and give me a friendly summary of what I need to do, %s!",
		day, chat.ToolNameGetTodos, user.Username)
	return mcp.NewGetPromptResult("Daily todo summary", []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	}), nil
}

// NewHTTPHandler 无状态的 streamable HTTP 传输，需挂载在 AuthMiddleware 之后
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if user, ok := middleware.UserFromContext(r.Context()); ok {
				return middleware.WithUser(ctx, user)
			}
			return ctx
		}),
	)
}

func toolHandler(executor chat.ToolExecutor, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, ok := middleware.UserFromContext(ctx)
		if !ok {
			return mcp.NewToolResultError("User not found!"), nil
		}

		arguments := "{}"
		if raw := req.GetRawArguments(); raw != nil {
			b, err := json.Marshal(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments for %s: %v", name, err)), nil
			}
			arguments = string(b)
		}

		res := executor.Execute(ctx, name, arguments, user.Username)
		if res.IsError() {
			slog.Info("MCP tool call failed", "tool", name, "user_id", user.ID, "err", res.Err)
			return mcp.NewToolResultError(res.Content), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}
