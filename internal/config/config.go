package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const DefaultJWTSecret = "dev-secret-change-me"

type Config struct {
	Port     string `env:"APP_PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseDSN    string `env:"DATABASE_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=educonnect port=5432 sslmode=disable TimeZone=UTC"`

	JWTSecret             string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"15"`

	Chat ChatConfig
	WS   WSConfig

	RedisAddr       string        `env:"REDIS_ADDR"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"5m"`

	Blob BlobConfig

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

type ChatConfig struct {
	BacklogLimit int           `env:"CHAT_BACKLOG_LIMIT" envDefault:"50"`
	OpTimeout    time.Duration `env:"CHAT_OP_TIMEOUT" envDefault:"5s"`
}

type WSConfig struct {
	SendBuffer      int     `env:"WS_SEND_BUFFER" envDefault:"256"`
	EventsPerSecond float64 `env:"WS_EVENTS_PER_SECOND" envDefault:"10"`
	EventBurst      int     `env:"WS_EVENT_BURST" envDefault:"20"`
}

type BlobConfig struct {
	Backend   string `env:"BLOB_BACKEND" envDefault:"local"`
	UploadDir string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	NATSURL   string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	Bucket    string `env:"BLOB_BUCKET" envDefault:"voice-notes"`
}

// Load 从环境变量读取配置，未设置的项使用默认值。
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// IsDev 是否为本地开发环境。
func (c Config) IsDev() bool { return c.Env == "dev" }

// Validate 校验启动所需的配置项。
func Validate(cfg Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Port) == "" {
		errs = append(errs, errors.New("APP_PORT is empty"))
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		errs = append(errs, errors.New("DATABASE_DSN is empty"))
	}
	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not postgres or sqlite", cfg.DatabaseDriver))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is empty"))
	} else if cfg.JWTSecret == DefaultJWTSecret && !cfg.IsDev() {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be changed when APP_ENV=%s", cfg.Env))
	}
	if cfg.Chat.BacklogLimit <= 0 {
		errs = append(errs, errors.New("CHAT_BACKLOG_LIMIT must be positive"))
	}
	if cfg.Chat.OpTimeout <= 0 {
		errs = append(errs, errors.New("CHAT_OP_TIMEOUT must be positive"))
	}
	if cfg.WS.SendBuffer <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be positive"))
	}
	switch cfg.Blob.Backend {
	case "local", "nats":
	default:
		errs = append(errs, fmt.Errorf("BLOB_BACKEND %q is not local or nats", cfg.Blob.Backend))
	}
	return errors.Join(errs...)
}
