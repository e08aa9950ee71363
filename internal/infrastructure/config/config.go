package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Editor    EditorConfig
	Profiles  ProfileConfig
	Drafts    DraftConfig
	WS        WSConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"BRIDGE_PORT" default:"8085"`
	Host string `envconfig:"BRIDGE_HOST" default:"0.0.0.0"`
}

// EditorConfig holds session manager tuning. Zero durations fall back
// to the built-in defaults; profiles may still override per document
// kind.
type EditorConfig struct {
	Debounce        time.Duration `envconfig:"BRIDGE_DEBOUNCE" default:"300ms"`
	Suppression     time.Duration `envconfig:"BRIDGE_SUPPRESSION" default:"1s"`
	IdleTTL         time.Duration `envconfig:"BRIDGE_IDLE_TTL" default:"30m"`
	ClosedRetention time.Duration `envconfig:"BRIDGE_CLOSED_RETENTION" default:"5m"`
	ReapInterval    time.Duration `envconfig:"BRIDGE_REAP_INTERVAL" default:"1m"`
	MaxSessions     int           `envconfig:"BRIDGE_MAX_SESSIONS" default:"1024"`
}

// ProfileConfig holds editor profile discovery settings.
type ProfileConfig struct {
	Dir string `envconfig:"BRIDGE_PROFILE_DIR" default:""`
}

// DraftConfig holds crash-recovery journal settings.
type DraftConfig struct {
	Dir     string `envconfig:"BRIDGE_DRAFT_DIR" default:"drafts"`
	Recover bool   `envconfig:"BRIDGE_DRAFT_RECOVER" default:"true"`
}

// WSConfig holds WebSocket transport settings.
type WSConfig struct {
	MaxMessageBytes int64         `envconfig:"BRIDGE_WS_MAX_MESSAGE_BYTES" default:"1048576"`
	WriteTimeout    time.Duration `envconfig:"BRIDGE_WS_WRITE_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"BRIDGE_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"BRIDGE_LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"BRIDGE_RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"BRIDGE_RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"BRIDGE_RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds cross-origin settings for the REST surface.
type CORSConfig struct {
	Origins []string `envconfig:"BRIDGE_CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8085",
			Host: "0.0.0.0",
		},
		Editor: EditorConfig{
			Debounce:        300 * time.Millisecond,
			Suppression:     time.Second,
			IdleTTL:         30 * time.Minute,
			ClosedRetention: 5 * time.Minute,
			ReapInterval:    time.Minute,
			MaxSessions:     1024,
		},
		Profiles: ProfileConfig{
			Dir: "",
		},
		Drafts: DraftConfig{
			Dir:     "drafts",
			Recover: true,
		},
		WS: WSConfig{
			MaxMessageBytes: 1 << 20,
			WriteTimeout:    10 * time.Second,
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
		CORS: CORSConfig{
			Origins: []string{"*"},
		},
	}
}
