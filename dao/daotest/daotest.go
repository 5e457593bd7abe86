// Package daotest opens a throwaway SQLite database for tests and installs it
// as dao.DB.
package daotest

import (
	"context"
	"path/filepath"
	"testing"

	"todo-agent-backend/config"
	"todo-agent-backend/dao"
	"todo-agent-backend/model"

	"golang.org/x/crypto/bcrypt"
)

func Setup(t testing.TB) {
	t.Helper()

	prev := dao.DB
	err := dao.Init(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := dao.DB.DB(); err == nil {
			sqlDB.Close()
		}
		dao.DB = prev
	})
}

// CreateUser 创建一个密码为 "password" 的测试用户
func CreateUser(t testing.TB, username string) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &model.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: string(hashed),
		IsActive:       true,
	}
	if err := dao.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}
