package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config.yaml"

// Cfg 全局配置，由 Init 加载
var Cfg = Default()

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Model      ModelConfig      `yaml:"model"`
	Agent      AgentConfig      `yaml:"agent"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	MQ         MQConfig         `yaml:"mq"`
	CORS       CORSConfig       `yaml:"cors"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	Mode string `yaml:"mode"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	// mysql 或 sqlite
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	SecretKey  string        `yaml:"secret_key"`
	Expiration time.Duration `yaml:"expiration"`
}

type ModelConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

type AgentConfig struct {
	MaxTurns       int           `yaml:"max_turns"`
	HistoryLimit   int           `yaml:"history_limit"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	CallAttempts   uint          `yaml:"call_attempts"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type SummarizerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	Workers    int    `yaml:"workers"`
	QueueSize  int    `yaml:"queue_size"`
	MinLength  int    `yaml:"min_length"`
	MaxSummary int    `yaml:"max_summary"`
}

type MQConfig struct {
	Enabled    bool     `yaml:"enabled"`
	NameServer []string `yaml:"name_server"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
			Mode: "release",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "todo.db",
		},
		JWT: JWTConfig{
			Expiration: 24 * time.Hour,
		},
		Model: ModelConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Name:    "google/gemini-2.0-flash-001",
			Timeout: 90 * time.Second,
		},
		Agent: AgentConfig{
			MaxTurns:       5,
			HistoryLimit:   10,
			CallTimeout:    60 * time.Second,
			CallAttempts:   2,
			RequestTimeout: 120 * time.Second,
		},
		Summarizer: SummarizerConfig{
			Workers:    4,
			QueueSize:  100,
			MinLength:  2500,
			MaxSummary: 500,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
				"http://localhost:8000",
				"http://127.0.0.1:8000",
			},
		},
	}
}

// Load 读取 YAML 配置文件，文件内容中的 ${VAR} 会被替换为环境变量
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init 加载配置并设置全局 Cfg
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Cfg = cfg
	return nil
}

func (c *Config) validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be positive")
	}
	if c.Agent.HistoryLimit <= 0 {
		return fmt.Errorf("agent.history_limit must be positive")
	}
	return nil
}
