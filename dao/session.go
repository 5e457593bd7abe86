package dao

import (
	"context"
	"errors"
	"slices"

	"todo-agent-backend/model"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("chat session not found")

func getSession(ctx context.Context, userID uint, token string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := DB.WithContext(ctx).
		Where("user_id = ? AND session_token = ?", userID, token).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetOrCreateSession 并发请求同一 (user, token) 时，插入失败的一方重新查询已创建的会话
func GetOrCreateSession(ctx context.Context, userID uint, token string) (*model.ChatSession, error) {
	session, err := getSession(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session = &model.ChatSession{
		UserID:       userID,
		SessionToken: token,
	}
	createErr := DB.WithContext(ctx).Create(session).Error
	if createErr == nil {
		return session, nil
	}

	existing, err := getSession(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, createErr
	}
	return existing, nil
}

// GetSessionByToken 会话不存在时返回 ErrSessionNotFound
func GetSessionByToken(ctx context.Context, userID uint, token string) (*model.ChatSession, error) {
	session, err := getSession(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func GetSessionsByUser(ctx context.Context, userID uint) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func DeleteSession(ctx context.Context, userID uint, token string) error {
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.ChatSession
		if err := tx.Where("user_id = ? AND session_token = ?", userID, token).
			First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		// 删除会话内的对话记录
		if err := tx.Where("session_id = ?", session.ID).
			Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}

		return tx.Delete(&session).Error
	})
}

func AppendMessage(ctx context.Context, sessionID uint, sender model.Sender, text string, toolsUsed *string) (*model.ChatMessage, error) {
	msg := model.ChatMessage{
		SessionID: sessionID,
		Sender:    sender,
		Content:   text,
		ToolUsed:  toolsUsed,
	}
	if err := DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// LoadRecentHistory 返回最近 limit 条消息，按时间正序排列
func LoadRecentHistory(ctx context.Context, sessionID uint, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	if err := DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func GetMessagesBySessionID(ctx context.Context, sessionID uint) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	if err := DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func GetMessageByID(ctx context.Context, messageID uint) (*model.ChatMessage, error) {
	var message model.ChatMessage
	if err := DB.WithContext(ctx).
		Where("id = ?", messageID).
		First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func DeleteMessagesBySessionID(ctx context.Context, sessionID uint) error {
	return DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&model.ChatMessage{}).Error
}

// ReplaceMessages 在事务内清空会话并写入新的消息列表
func ReplaceMessages(ctx context.Context, sessionID uint, messages []model.ChatMessage) error {
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		for i := range messages {
			messages[i].SessionID = sessionID
		}
		return tx.CreateInBatches(messages, 100).Error
	})
}

func UpdateMessageSummaries(ctx context.Context, messages []*model.ChatMessage) error {
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, msg := range messages {
			if err := tx.Model(&model.ChatMessage{}).
				Where("id = ?", msg.ID).
				Update("summary", msg.Summary).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
