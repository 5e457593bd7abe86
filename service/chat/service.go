package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"todo-agent-backend/model"
)

const DefaultRequestTimeout = 120 * time.Second

var ErrLoopFailure = errors.New("chat loop failed")

// TurnObserver 在一轮对话持久化完成后被通知
type TurnObserver interface {
	TurnCompleted(ctx context.Context, userMessageID, assistantMessageID uint)
}

// Reply 一次对话请求的结果。Upstream 为 true 时 Answer 为 "API Error: ..." 文本
type Reply struct {
	Answer       any
	SessionToken string
	ToolsUsed    []string
	Upstream     bool
}

type Service struct {
	agent          *Agent
	locker         *SessionLocker
	historyLimit   int
	requestTimeout time.Duration
	observer       TurnObserver
}

type ServiceOption func(*Service)

func WithHistoryLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithRequestTimeout 整个对话请求的截止时间
func WithRequestTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.requestTimeout = d
	}
}

func WithTurnObserver(o TurnObserver) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

func NewService(agent *Agent, opts ...ServiceOption) *Service {
	s := &Service{
		agent:          agent,
		locker:         NewSessionLocker(),
		historyLimit:   DefaultHistoryLimit,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat 处理一条用户消息。模型服务出错时返回 Upstream 回复且不保存 Agent 消息；
// 其余错误（包括 panic）均以 ErrLoopFailure 返回。
func (s *Service) Chat(ctx context.Context, user *model.User, message, token string) (*Reply, error) {
	return s.chat(ctx, user, message, token, nil)
}

// ChatStream 同 Chat，并在每个工具调用完成后回调 onToolResult
func (s *Service) ChatStream(ctx context.Context, user *model.User, message, token string, onToolResult func(ToolEvent)) (*Reply, error) {
	return s.chat(ctx, user, message, token, onToolResult)
}

func (s *Service) chat(ctx context.Context, user *model.User, message, token string, onToolResult func(ToolEvent)) (reply *Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("chat loop panicked",
				"user_id", user.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			reply, err = nil, fmt.Errorf("%w: panic: %v", ErrLoopFailure, r)
		}
	}()

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	release, err := s.locker.Acquire(ctx, sessionKey(user.ID, token))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to acquire session lock: %v", ErrLoopFailure, err)
	}
	defer release()

	history := NewChatHistory(user.ID, token, s.historyLimit)
	past, err := history.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load history: %v", ErrLoopFailure, err)
	}

	if err := history.AddUserMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoopFailure, err)
	}

	result, err := s.agent.Run(ctx, RunInput{
		Username:     user.Username,
		History:      past,
		Message:      message,
		OnToolResult: onToolResult,
	})
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		slog.Warn("model provider failed", "user_id", user.ID, "err", upstreamErr.Err)
		return &Reply{
			Answer:   upstreamErr.Answer(),
			Upstream: true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoopFailure, err)
	}

	if err := history.AddAssistantMessage(ctx, result.Text, result.ToolTag()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoopFailure, err)
	}

	if s.observer != nil {
		s.observer.TurnCompleted(context.WithoutCancel(ctx), history.UserMessageID, history.AssistantMessageID)
	}

	return &Reply{
		Answer:       FormatAnswer(result.Text),
		SessionToken: token,
		ToolsUsed:    result.ToolsUsed,
	}, nil
}
