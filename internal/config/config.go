// Package config loads bot settings from defaults, an optional YAML file,
// an optional .env file and the process environment, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vicentereig/mediabot/internal/types"
)

// Config holds all application configuration.
type Config struct {
	Platform string         `yaml:"platform" envconfig:"BOT_PLATFORM"`
	Telegram TelegramConfig `yaml:"telegram"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Download DownloadConfig `yaml:"download"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
	Health   HealthConfig   `yaml:"health"`
}

// TelegramConfig holds Bot API settings. Token has no default and must come
// from the file or, preferably, the environment.
type TelegramConfig struct {
	Token       string `yaml:"token" envconfig:"TELEGRAM_TOKEN"`
	PollTimeout int    `yaml:"poll_timeout" envconfig:"TELEGRAM_POLL_TIMEOUT"`
	Debug       bool   `yaml:"debug" envconfig:"TELEGRAM_DEBUG"`
}

// WhatsAppConfig holds the linked-device session location.
type WhatsAppConfig struct {
	StoreDir string `yaml:"store_dir" envconfig:"WHATSAPP_STORE_DIR"`
}

// DownloadConfig holds extraction settings. A zero Timeout means none.
type DownloadConfig struct {
	WorkDir     string        `yaml:"work_dir" envconfig:"DOWNLOAD_WORK_DIR"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT"`
	YTDLPPath   string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH"`
	AutoInstall bool          `yaml:"auto_install" envconfig:"YTDLP_AUTO_INSTALL"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Count           int           `yaml:"count" envconfig:"WORKER_COUNT"`
	QueueSize       int           `yaml:"queue_size" envconfig:"WORKER_QUEUE_SIZE"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"WORKER_SHUTDOWN_TIMEOUT"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// HealthConfig controls the health endpoint. An empty Addr disables it.
type HealthConfig struct {
	Addr string `yaml:"addr" envconfig:"HEALTH_ADDR"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Platform: types.PlatformTelegram,
		Telegram: TelegramConfig{PollTimeout: 60},
		WhatsApp: WhatsAppConfig{StoreDir: filepath.Join(home, ".mediabot", "whatsapp")},
		Download: DownloadConfig{WorkDir: filepath.Join(os.TempDir(), "mediabot")},
		Worker: WorkerConfig{
			Count:           2,
			QueueSize:       32,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates configuration.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Read reads configuration from file and environment variables without
// validating it. Environment variables override file values; a .env file in
// the working directory is loaded into the environment first, without
// overriding variables that are already set.
func Read(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	switch c.Platform {
	case types.PlatformTelegram:
		if c.Telegram.Token == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required")
		}
	case types.PlatformWhatsApp:
		if c.WhatsApp.StoreDir == "" {
			return fmt.Errorf("WHATSAPP_STORE_DIR is required")
		}
	default:
		return fmt.Errorf("unknown platform %q (want %s or %s)", c.Platform, types.PlatformTelegram, types.PlatformWhatsApp)
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.Worker.QueueSize < 0 {
		return fmt.Errorf("WORKER_QUEUE_SIZE must not be negative")
	}
	return nil
}
