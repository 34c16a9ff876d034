// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lingua-telegram/internal/domain"
)

type RuntimeConfig struct {
	Dev bool
}

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type BotConfig struct {
	Token         string `yaml:"token"`
	Mode          string `yaml:"mode"` // polling | webhook
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
	APIEndpoint   string `yaml:"api_endpoint"`
	Workers       int    `yaml:"workers"` // webhook handler pool
	QueueSize     int    `yaml:"queue_size"`
	DryRun        bool   `yaml:"dry_run"`
}

// Validate reports ErrConfig when the bot cannot run. Callers treat that as
// "Telegram disabled", not as a fatal startup error.
func (b BotConfig) Validate() error {
	if strings.TrimSpace(b.Token) == "" {
		return fmt.Errorf("%w: telegram bot token is not set", domain.ErrConfig)
	}
	switch b.Mode {
	case ModePolling:
	case ModeWebhook:
		if b.WebhookURL == "" {
			return fmt.Errorf("%w: webhook mode requires webhook_url", domain.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown bot mode %q", domain.ErrConfig, b.Mode)
	}
	return nil
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL           string `yaml:"url"`
	MigrateOnBoot bool   `yaml:"migrate_on_boot"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LockPath    string `yaml:"lock_path"`
	Leader      string `yaml:"leader"` // file | redis
	TickCron    string `yaml:"tick_cron"`
	PurgeCron   string `yaml:"purge_cron"`
	Concurrency int    `yaml:"concurrency"`
}

type SiteConfig struct {
	BaseURL       string `yaml:"base_url"`
	Lang          string `yaml:"lang"`
	SessionSecret string `yaml:"session_secret"`
	SessionCookie string `yaml:"session_cookie"`
}

type LimitsConfig struct {
	GenerateCodePerMinute int `yaml:"generate_code_per_minute"`
	CommandsPerMinute     int `yaml:"commands_per_minute"`
	CallbacksPerMinute    int `yaml:"callbacks_per_minute"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Site      SiteConfig      `yaml:"site"`
	Limits    LimitsConfig    `yaml:"limits"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config/-dev flags and delegates to Load.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads an optional YAML file, applies defaults and then environment
// overrides. A missing file is not an error; a missing database URL is.
func Load(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("TELEGRAM_BOT_TOKEN", &cfg.Bot.Token)
	str("TELEGRAM_WEBHOOK_SECRET", &cfg.Bot.WebhookSecret)
	str("TELEGRAM_WEBHOOK_URL", &cfg.Bot.WebhookURL)
	str("TELEGRAM_MODE", &cfg.Bot.Mode)
	str("SITE_BASE_URL", &cfg.Site.BaseURL)
	str("DATABASE_URL", &cfg.Database.URL)
	str("SCHEDULER_LOCK_PATH", &cfg.Scheduler.LockPath)
	str("REDIS_URL", &cfg.Redis.URL)
	str("SESSION_SECRET", &cfg.Site.SessionSecret)
	str("LANG_CODE", &cfg.Site.Lang)

	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = ModePolling
	}
	cfg.Bot.Mode = strings.ToLower(cfg.Bot.Mode)
	if cfg.Bot.APIEndpoint == "" {
		cfg.Bot.APIEndpoint = "https://api.telegram.org"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.QueueSize <= 0 {
		cfg.Bot.QueueSize = 256
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Scheduler.LockPath == "" {
		cfg.Scheduler.LockPath = os.TempDir() + "/lingua-telegram-scheduler.lock"
	}
	if cfg.Scheduler.Leader == "" {
		cfg.Scheduler.Leader = "file"
	}
	if cfg.Scheduler.TickCron == "" {
		cfg.Scheduler.TickCron = "0 * * * *"
	}
	if cfg.Scheduler.PurgeCron == "" {
		cfg.Scheduler.PurgeCron = "30 3 * * *"
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = 8
	}
	if cfg.Site.Lang == "" {
		cfg.Site.Lang = "ru"
	}
	if cfg.Site.SessionCookie == "" {
		cfg.Site.SessionCookie = "session"
	}
	if cfg.Limits.GenerateCodePerMinute <= 0 {
		cfg.Limits.GenerateCodePerMinute = 3
	}
	if cfg.Limits.CommandsPerMinute <= 0 {
		cfg.Limits.CommandsPerMinute = 20
	}
	if cfg.Limits.CallbacksPerMinute <= 0 {
		cfg.Limits.CallbacksPerMinute = 30
	}
}
