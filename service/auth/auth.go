package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todo-agent-backend/dao"
	"todo-agent-backend/model"
	"todo-agent-backend/request"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = dao.ErrUserExists
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveUser       = errors.New("user is inactive")
)

// HashPassword bcrypt 默认代价
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}
	return string(hashed), nil
}

func VerifyPassword(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

func UserRegister(ctx context.Context, req request.UserRegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := dao.UserExists(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %v", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := dao.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UserLogin 用户不存在与密码错误返回同一个错误
func UserLogin(ctx context.Context, req request.UserLoginRequest) (*model.User, error) {
	user, err := dao.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	if user == nil || !VerifyPassword(req.Password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}
