package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"todo-agent-backend/dao/daotest"
	"todo-agent-backend/model"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeLLM 按脚本返回响应，并记录每次调用的消息和选项
type fakeLLM struct {
	mu      sync.Mutex
	respond func(call int, messages []llms.MessageContent) (*llms.ContentResponse, error)
	calls   [][]llms.MessageContent
	options []llms.CallOptions
}

var _ llms.Model = &fakeLLM{}

func (m *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	m.calls = append(m.calls, append([]llms.MessageContent(nil), messages...))
	m.options = append(m.options, opts)
	n := len(m.calls) - 1
	m.mu.Unlock()

	return m.respond(n, messages)
}

func (m *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *fakeLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func scripted(responses ...*llms.ContentResponse) *fakeLLM {
	return &fakeLLM{
		respond: func(call int, _ []llms.MessageContent) (*llms.ContentResponse, error) {
			if call >= len(responses) {
				return nil, fmt.Errorf("unexpected model call %d", call)
			}
			return responses[call], nil
		},
	}
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func toolResponse(text string, calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, ToolCalls: calls}},
	}
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func textOf(msg llms.MessageContent) string {
	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

var fixedNow = time.Date(2025, 3, 9, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

type fixture struct {
	alice    *model.User
	bob      *model.User
	executor *Executor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	daotest.Setup(t)

	executor, err := NewExecutor(WithExecutorClock(fixedClock))
	require.NoError(t, err)

	return &fixture{
		alice:    daotest.CreateUser(t, "alice"),
		bob:      daotest.CreateUser(t, "bob"),
		executor: executor,
	}
}

func (f *fixture) newService(llm llms.Model, opts ...ServiceOption) *Service {
	agent := NewAgent(llm, f.executor,
		WithClock(fixedClock),
		WithRetryDelay(time.Millisecond),
	)
	return NewService(agent, opts...)
}
