package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	Sandbox   SandboxConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          string `envconfig:"PORT" default:"3000"`
	Host          string `envconfig:"HOST" default:"0.0.0.0"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"https://collaborative-code-editor-ui.vercel.app"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds HTTP rate limiting configuration. Limits apply per
// client IP unless Global is set, in which case one bucket covers every caller.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Global            bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false"`
}

// WebSocketConfig holds event channel limits.
type WebSocketConfig struct {
	MessagesPerSecond int   `envconfig:"WS_MESSAGES_PER_SECOND" default:"50"`
	MessageBurst      int   `envconfig:"WS_MESSAGE_BURST" default:"100"`
	MaxMessageBytes   int64 `envconfig:"WS_MAX_MESSAGE_BYTES" default:"1048576"`
}

// SandboxConfig holds code execution configuration.
type SandboxConfig struct {
	Timeout         time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	PoolSize        int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
	MaxCallStack    int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	BreakerFailures uint32        `envconfig:"COMPILE_BREAKER_FAILURES" default:"3"`
	BreakerCooldown time.Duration `envconfig:"COMPILE_BREAKER_COOLDOWN" default:"30s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "3000",
			Host:          "0.0.0.0",
			AllowedOrigin: "https://collaborative-code-editor-ui.vercel.app",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		WebSocket: WebSocketConfig{
			MessagesPerSecond: 50,
			MessageBurst:      100,
			MaxMessageBytes:   1 << 20,
		},
		Sandbox: SandboxConfig{
			Timeout:         5 * time.Second,
			PoolSize:        4,
			MaxCallStack:    1024,
			BreakerFailures: 3,
			BreakerCooldown: 30 * time.Second,
		},
	}
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
