package dao

import (
	"context"
	"errors"

	"todo-agent-backend/model"

	"gorm.io/gorm"
)

var ErrUserExists = errors.New("username or email already registered")

func CreateUser(ctx context.Context, user *model.User) error {
	err := DB.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

// GetUserByUsername 用户不存在时返回 nil, nil
func GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := DB.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := DB.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := DB.WithContext(ctx).
		Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}
