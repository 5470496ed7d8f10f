package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Webhook  WebhookConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Chat     ChatConfig
	Projects ProjectsConfig
	Log      LogConfig
}

// Load 从环境变量加载配置。调用方负责预先加载 .env。
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Server.Addr(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Webhook.URL) == "" {
		return fmt.Errorf("WEBHOOK_URL is required")
	}
	if c.Webhook.Timeout <= 0 {
		return fmt.Errorf("invalid WEBHOOK_TIMEOUT value %s", c.Webhook.Timeout)
	}
	if c.Webhook.Retries < 0 {
		return fmt.Errorf("invalid WEBHOOK_RETRIES value %d", c.Webhook.Retries)
	}
	if c.Chat.ReducedHistoryLimit > c.Chat.HistoryLimit {
		c.Chat.ReducedHistoryLimit = c.Chat.HistoryLimit
	}
	if c.Chat.ReducedHistoryLimit < 1 {
		c.Chat.ReducedHistoryLimit = 1
	}
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Addr 解析服务器监听地址。
func (c ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// WebhookConfig 描述外部自动化 webhook 的调用参数。
type WebhookConfig struct {
	URL       string        `env:"WEBHOOK_URL"`
	Timeout   time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`
	Retries   int           `env:"WEBHOOK_RETRIES" envDefault:"1"`
	RateLimit float64       `env:"WEBHOOK_RATE_LIMIT" envDefault:"2"`
	RateBurst int           `env:"WEBHOOK_RATE_BURST" envDefault:"4"`
}

// AuthConfig 描述登录与会话有效期。
type AuthConfig struct {
	// PasswordHash 优先于 Password；两者都为空时使用演示口令。
	PasswordHash string        `env:"AUTH_PASSWORD_HASH"`
	Password     string        `env:"AUTH_PASSWORD" envDefault:"Communication101"`
	SessionTTL   time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`
}

// StorageConfig 描述持久化后端。
type StorageConfig struct {
	Driver        string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DSN           string `env:"STORAGE_DSN" envDefault:"briefing-buddy.db"`
	MaxValueBytes int    `env:"STORAGE_MAX_VALUE_BYTES" envDefault:"5242880"`
}

// ChatConfig 描述聊天记录的保留策略。
type ChatConfig struct {
	HistoryLimit        int `env:"CHAT_HISTORY_LIMIT" envDefault:"100"`
	ReducedHistoryLimit int `env:"CHAT_HISTORY_REDUCED_LIMIT" envDefault:"50"`
	MaxMessageLength    int `env:"CHAT_MAX_MESSAGE_LENGTH" envDefault:"250"`
}

// ProjectsConfig 描述部委项目看板。
type ProjectsConfig struct {
	Prompt       string        `env:"PROJECTS_PROMPT" envDefault:"Display the number of projects for each ministry"`
	Instruction  string        `env:"PROJECTS_INSTRUCTION" envDefault:"Answer with one line per ministry in the form 'Ministry Name: N projects'."`
	CacheTTL     time.Duration `env:"PROJECTS_CACHE_TTL" envDefault:"24h"`
	BaselineFile string        `env:"PROJECTS_BASELINE_FILE"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}
