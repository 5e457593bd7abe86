package chat

import (
	"context"
	"fmt"

	"todo-agent-backend/dao"
	"todo-agent-backend/model"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

const DefaultHistoryLimit = 10

// ChatHistory 基于 (user, session token) 的会话消息存储
type ChatHistory struct {
	UserID       uint
	SessionToken string
	Limit        int

	session *model.ChatSession

	// 本轮对话的用户消息 ID
	UserMessageID uint

	// 本轮对话的 Agent 消息 ID
	AssistantMessageID uint
}

var _ schema.ChatMessageHistory = &ChatHistory{}

func NewChatHistory(userID uint, token string, limit int) *ChatHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ChatHistory{
		UserID:       userID,
		SessionToken: token,
		Limit:        limit,
	}
}

// Session 首次调用时创建会话
func (h *ChatHistory) Session(ctx context.Context) (*model.ChatSession, error) {
	if h.session != nil {
		return h.session, nil
	}
	session, err := dao.GetOrCreateSession(ctx, h.UserID, h.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create session: %w", err)
	}
	h.session = session
	return session, nil
}

// Messages 返回最近 Limit 条消息，优先使用消息摘要
func (h *ChatHistory) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	session, err := h.Session(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := dao.LoadRecentHistory(ctx, session.ID, h.Limit)
	if err != nil {
		return nil, err
	}

	msgs := make([]llms.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		content := msg.Content
		if msg.Summary != "" {
			content = msg.Summary
		}

		switch msg.Sender {
		case model.SenderAssistant:
			msgs = append(msgs, llms.AIChatMessage{Content: content})
		case model.SenderUser:
			msgs = append(msgs, llms.HumanChatMessage{Content: content})
		}
	}
	return msgs, nil
}

func (h *ChatHistory) AddMessage(ctx context.Context, message llms.ChatMessage) error {
	sender, err := senderOf(message.GetType())
	if err != nil {
		return err
	}
	return h.addMessage(ctx, sender, message.GetContent(), nil)
}

func (h *ChatHistory) AddAIMessage(ctx context.Context, text string) error {
	return h.addMessage(ctx, model.SenderAssistant, text, nil)
}

func (h *ChatHistory) AddUserMessage(ctx context.Context, text string) error {
	return h.addMessage(ctx, model.SenderUser, text, nil)
}

// AddAssistantMessage 记录 Agent 的最终回答及本轮调用过的工具
func (h *ChatHistory) AddAssistantMessage(ctx context.Context, text string, toolsUsed *string) error {
	return h.addMessage(ctx, model.SenderAssistant, text, toolsUsed)
}

func (h *ChatHistory) addMessage(ctx context.Context, sender model.Sender, text string, toolsUsed *string) error {
	session, err := h.Session(ctx)
	if err != nil {
		return err
	}

	msg, err := dao.AppendMessage(ctx, session.ID, sender, text, toolsUsed)
	if err != nil {
		return fmt.Errorf("failed to append %s message: %w", sender, err)
	}

	switch sender {
	case model.SenderAssistant:
		h.AssistantMessageID = msg.ID
	case model.SenderUser:
		h.UserMessageID = msg.ID
	}
	return nil
}

func (h *ChatHistory) Clear(ctx context.Context) error {
	session, err := h.Session(ctx)
	if err != nil {
		return err
	}
	return dao.DeleteMessagesBySessionID(ctx, session.ID)
}

func (h *ChatHistory) SetMessages(ctx context.Context, messages []llms.ChatMessage) error {
	session, err := h.Session(ctx)
	if err != nil {
		return err
	}

	rows := make([]model.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		sender, err := senderOf(msg.GetType())
		if err != nil {
			return err
		}
		rows = append(rows, model.ChatMessage{
			Sender:  sender,
			Content: msg.GetContent(),
		})
	}
	return dao.ReplaceMessages(ctx, session.ID, rows)
}

func senderOf(t llms.ChatMessageType) (model.Sender, error) {
	switch t {
	case llms.ChatMessageTypeHuman:
		return model.SenderUser, nil
	case llms.ChatMessageTypeAI:
		return model.SenderAssistant, nil
	default:
		return "", fmt.Errorf("unsupported chat message type: %s", t)
	}
}
