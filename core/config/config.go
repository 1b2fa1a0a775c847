package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// StickersConfig describes the bot-owned sticker set that holds rendered
// stickers. The set always keeps a permanent seed sticker; rendered stickers
// pass through it transiently.
type StickersConfig struct {
	// SetName is the base name; the full set name is "<SetName>_by_<botname>".
	SetName  string `yaml:"set_name" envconfig:"STICKER_SET_NAME"`
	SetTitle string `yaml:"set_title" envconfig:"STICKER_SET_TITLE"`
	// SeedPath points to the PNG used as the permanent seed sticker.
	SeedPath string `yaml:"seed_path" envconfig:"STICKER_SEED_PATH"`
}

// RendererConfig points at the external sticker rendering service.
type RendererConfig struct {
	URL            string `yaml:"url" envconfig:"RENDERER_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"RENDERER_TIMEOUT_SECONDS"`
}

// DialogsConfig tunes the conversation engine.
type DialogsConfig struct {
	// TimeoutSeconds bounds how long a dialog state waits for input.
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"DIALOG_TIMEOUT_SECONDS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
	// UpdateInlineResult identifies chosen inline result updates for rate limit exclusions.
	UpdateInlineResult = "inline_result"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "message": standard text messages
// - "inline_query": inline query updates
// - "inline_result": chosen inline result notifications
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
// Database settings live in core/database to keep this package import-free
// of infrastructure; the application config embeds both.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Stickers  StickersConfig  `yaml:"stickers"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Dialogs   DialogsConfig   `yaml:"dialogs"`
}

// Load reads the core configuration from a YAML file and environment
// variables. Applications that embed Config in a wider struct run the same
// pipeline themselves and call Normalize directly.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required (owns the sticker set)")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	name := strings.TrimSpace(cfg.Stickers.SetName)
	if name == "" {
		return fmt.Errorf("stickers.set_name is required")
	}
	for _, r := range name {
		valid := r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !valid {
			return fmt.Errorf("stickers.set_name %q contains invalid character %q", name, r)
		}
	}
	cfg.Stickers.SetName = name
	if strings.TrimSpace(cfg.Stickers.SetTitle) == "" {
		cfg.Stickers.SetTitle = name
	}
	if strings.TrimSpace(cfg.Stickers.SeedPath) == "" {
		return fmt.Errorf("stickers.seed_path is required")
	}

	if strings.TrimSpace(cfg.Renderer.URL) == "" {
		return fmt.Errorf("renderer.url is required")
	}
	if cfg.Renderer.TimeoutSeconds < 0 {
		return fmt.Errorf("renderer.timeout_seconds must be >= 0")
	}

	if cfg.Dialogs.TimeoutSeconds <= 0 {
		cfg.Dialogs.TimeoutSeconds = 30
	}

	allowed := map[string]struct{}{
		UpdateMessage:      {},
		UpdateInlineQuery:  {},
		UpdateInlineResult: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: message, inline_query, inline_result", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
