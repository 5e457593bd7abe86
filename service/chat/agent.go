package chat

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tmc/langchaingo/llms"
)

const (
	DefaultMaxTurns     = 5
	DefaultCallTimeout  = 60 * time.Second
	DefaultCallAttempts = 2

	defaultRetryDelay = 500 * time.Millisecond

	invalidToolCallContent = "Invalid tool call"
)

var ErrNoChoices = errors.New("model response has no choices")

//go:embed prompts/system.txt
var systemPromptText string

var systemPromptTemplate = template.Must(template.New("system").Parse(systemPromptText))

// UpstreamError 模型服务不可用或返回了无法使用的响应
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream provider error: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Answer 返回给调用方的错误回答
func (e *UpstreamError) Answer() string {
	return fmt.Sprintf("API Error: %v", e.Err)
}

// ToolExecutor 由 *Executor 实现
type ToolExecutor interface {
	Execute(ctx context.Context, name, arguments, username string) ToolResult
}

type Agent struct {
	llm          llms.Model
	executor     ToolExecutor
	tools        []llms.Tool
	maxTurns     int
	callTimeout  time.Duration
	callAttempts uint
	retryDelay   time.Duration
	now          func() time.Time
}

type AgentOption func(*Agent)

func WithMaxTurns(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// WithCallTimeout 单次模型调用的超时时间
func WithCallTimeout(d time.Duration) AgentOption {
	return func(a *Agent) {
		if d > 0 {
			a.callTimeout = d
		}
	}
}

// WithCallAttempts 模型调用出错时的最大尝试次数
func WithCallAttempts(n uint) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.callAttempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) AgentOption {
	return func(a *Agent) {
		a.retryDelay = d
	}
}

func WithClock(now func() time.Time) AgentOption {
	return func(a *Agent) {
		a.now = now
	}
}

func NewAgent(llm llms.Model, executor ToolExecutor, opts ...AgentOption) *Agent {
	a := &Agent{
		llm:          llm,
		executor:     executor,
		tools:        LLMTools(),
		maxTurns:     DefaultMaxTurns,
		callTimeout:  DefaultCallTimeout,
		callAttempts: DefaultCallAttempts,
		retryDelay:   defaultRetryDelay,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type RunInput struct {
	// 工具调用均以该用户身份执行
	Username string

	History []llms.ChatMessage
	Message string

	// 每个工具调用完成后回调，可为 nil
	OnToolResult func(ToolEvent)
}

// ToolEvent 一次工具调用的结果
type ToolEvent struct {
	Turn    int    `json:"turn"`
	Tool    string `json:"tool"`
	Content string `json:"content"`
	Failed  bool   `json:"failed"`
}

type RunResult struct {
	Text      string
	ToolsUsed []string
	Turns     int
}

// ToolTag 逗号连接的工具名，未调用工具时为 nil
func (r *RunResult) ToolTag() *string {
	if len(r.ToolsUsed) == 0 {
		return nil
	}
	tag := strings.Join(r.ToolsUsed, ", ")
	return &tag
}

// Run 执行 Agent 循环，直到模型不再请求工具调用或达到轮数上限。
// 达到上限时以最后一次非空的模型输出作为最终回答。
func (a *Agent) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	prompt, err := a.systemPrompt()
	if err != nil {
		return nil, err
	}

	messages := make([]llms.MessageContent, 0, len(in.History)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, prompt))
	for _, msg := range in.History {
		messages = append(messages, llms.TextParts(msg.GetType(), msg.GetContent()))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, in.Message))

	result := &RunResult{}
	var lastText string

	for turn := 0; turn < a.maxTurns; turn++ {
		choice, err := a.generate(ctx, messages)
		if err != nil {
			return nil, err
		}
		result.Turns++

		if choice.Content != "" {
			lastText = choice.Content
		}
		messages = append(messages, assistantMessage(choice))

		if len(choice.ToolCalls) == 0 {
			result.Text = choice.Content
			return result, nil
		}

		for _, call := range choice.ToolCalls {
			// 每个 tool_call_id 都要有对应的工具消息
			if call.FunctionCall == nil {
				slog.Warn("model returned tool call without function", "turn", turn, "call_id", call.ID)
				messages = append(messages, toolMessage(call.ID, "", invalidToolCallContent))
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			name := call.FunctionCall.Name
			result.ToolsUsed = append(result.ToolsUsed, name)

			res := a.executor.Execute(ctx, name, call.FunctionCall.Arguments, in.Username)
			slog.Debug("tool call finished",
				"turn", turn,
				"tool", name,
				"call_id", call.ID,
				"failed", res.IsError(),
			)
			if in.OnToolResult != nil {
				in.OnToolResult(ToolEvent{
					Turn:    turn,
					Tool:    name,
					Content: res.Content,
					Failed:  res.IsError(),
				})
			}

			messages = append(messages, toolMessage(call.ID, name, res.Content))
		}
	}

	slog.Warn("agent turn budget exhausted with tool calls pending",
		"max_turns", a.maxTurns,
		"tools_used", len(result.ToolsUsed),
	)
	result.Text = lastText
	return result, nil
}

func (a *Agent) systemPrompt() (string, error) {
	now := a.now()
	var buf bytes.Buffer
	err := systemPromptTemplate.Execute(&buf, struct {
		Today   string
		Weekday string
	}{
		Today:   now.Format(time.DateOnly),
		Weekday: now.Weekday().String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute system prompt template: %v", err)
	}
	return buf.String(), nil
}

// generate 调用模型，单次调用受 callTimeout 约束，出错时按退避策略重试
func (a *Agent) generate(ctx context.Context, messages []llms.MessageContent) (*llms.ContentChoice, error) {
	var resp *llms.ContentResponse
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
			defer cancel()

			var err error
			resp, err = a.llm.GenerateContent(callCtx, messages, llms.WithTools(a.tools))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(a.callAttempts),
		retry.Delay(a.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying model call",
				"attempt", n+1,
				"err", err)
		}),
	)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, &UpstreamError{Err: ErrNoChoices}
	}
	return resp.Choices[0], nil
}

func assistantMessage(choice *llms.ContentChoice) llms.MessageContent {
	msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		msg.Parts = append(msg.Parts, llms.TextPart(choice.Content))
	}
	for _, call := range choice.ToolCalls {
		msg.Parts = append(msg.Parts, call)
	}
	return msg
}

func toolMessage(callID, name, content string) llms.MessageContent {
	return llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{
			llms.ToolCallResponse{
				ToolCallID: callID,
				Name:       name,
				Content:    content,
			},
		},
	}
}
