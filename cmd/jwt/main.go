// jwt 生成 JWT 密钥，或为已有用户签发访问令牌（用于调试 /api/chat 与 /api/mcp）
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"todo-agent-backend/config"
	"todo-agent-backend/dao"
	"todo-agent-backend/middleware"
)

func generateJWTSecret() (string, error) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to the YAML config file")
	username := flag.String("user", "", "issue an access token for this user instead of generating a secret")
	flag.Parse()

	if *username == "" {
		secret, err := generateJWTSecret()
		if err != nil {
			slog.Error("Error generating secret", "err", err)
			os.Exit(1)
		}
		fmt.Println(secret)
		return
	}

	if err := issueToken(*configPath, *username); err != nil {
		slog.Error("Error issuing token", "user", *username, "err", err)
		os.Exit(1)
	}
}

func issueToken(configPath, username string) error {
	if err := config.Init(configPath); err != nil {
		return err
	}
	if err := dao.Init(config.Cfg.Database); err != nil {
		return err
	}

	user, err := dao.GetUserByUsername(context.Background(), username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %q not found", username)
	}

	token, err := middleware.GenerateToken(user)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
