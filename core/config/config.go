package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "storagebot/core/database"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
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
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for per-user rate limiting.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Band maps a human-readable range label to the representative value used for pricing.
type Band struct {
	Label string  `yaml:"label"`
	Value float64 `yaml:"value"`
}

// SiteConfig describes the storage site shown to self-delivery clients.
type SiteConfig struct {
	Address      string `yaml:"address"`
	Phone        string `yaml:"phone"`
	WorkingHours string `yaml:"working_hours"`
}

// StorageConfig carries the rental domain tables: bands, rent periods,
// pickup time windows and the storage site descriptor.
type StorageConfig struct {
	Site          SiteConfig `yaml:"site"`
	WeightBands   []Band     `yaml:"weight_bands"`
	VolumeBands   []Band     `yaml:"volume_bands"`
	RentPeriods   []int      `yaml:"rent_periods"`
	PickupWindows []string   `yaml:"pickup_windows"`
	// MaxSessions caps resident conversation sessions (LRU eviction).
	MaxSessions int `yaml:"max_sessions" envconfig:"STORAGE_MAX_SESSIONS"`
	// TransferListLimit bounds the open transfer list shown to the owner.
	TransferListLimit int `yaml:"transfer_list_limit"`
	// ConsentURL points to the personal data processing agreement.
	ConsentURL string `yaml:"consent_url"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// Config aggregates the full application configuration.
type Config struct {
	Telegram  TelegramConfig      `yaml:"telegram"`
	Webhook   WebhookConfig       `yaml:"webhook"`
	Logging   LoggingConfig       `yaml:"logging"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Database  coredatabase.Config `yaml:"database"`
	Storage   StorageConfig       `yaml:"storage"`
}

// Load reads configuration from a YAML file and environment variables.
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

// DefaultStorage returns the built-in rental tables used when the YAML file
// omits the storage section.
func DefaultStorage() StorageConfig {
	return StorageConfig{
		Site: SiteConfig{
			Address:      "г. Москва, ул. Ленина 104",
			Phone:        "+7 495 432 31 90",
			WorkingHours: "с 10 до 20",
		},
		WeightBands: []Band{
			{Label: "до 10кг", Value: 10},
			{Label: "от 10 до 25кг", Value: 25},
			{Label: "от 25 до 40кг", Value: 40},
			{Label: "от 40 до 70кг", Value: 70},
			{Label: "от 70 до 100кг", Value: 100},
			{Label: "больше 100кг", Value: 200},
			{Label: "Я не знаю :(", Value: 0},
		},
		VolumeBands: []Band{
			{Label: "до 0.1м³", Value: 0.1},
			{Label: "от 0.1 до 0.5м³", Value: 0.5},
			{Label: "от 0.5 до 1м³", Value: 1},
			{Label: "от 1 до 2м³", Value: 2},
			{Label: "от 2 до 4м³", Value: 4},
			{Label: "больше 4 м³", Value: 8},
			{Label: "Я не знаю :(", Value: 0},
		},
		RentPeriods:       []int{1, 3, 6, 12},
		PickupWindows:     []string{"9-13", "13-18", "18-22"},
		MaxSessions:       8192,
		TransferListLimit: 8,
		ConsentURL:        "http://some.url/text.pdf",
	}
}

// Normalize validates required configuration fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
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

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	def := DefaultStorage()
	st := &cfg.Storage
	if st.Site == (SiteConfig{}) {
		st.Site = def.Site
	}
	if len(st.WeightBands) == 0 {
		st.WeightBands = def.WeightBands
	}
	if len(st.VolumeBands) == 0 {
		st.VolumeBands = def.VolumeBands
	}
	if len(st.RentPeriods) == 0 {
		st.RentPeriods = def.RentPeriods
	}
	if len(st.PickupWindows) == 0 {
		st.PickupWindows = def.PickupWindows
	}
	if st.MaxSessions <= 0 {
		st.MaxSessions = def.MaxSessions
	}
	if st.TransferListLimit <= 0 {
		st.TransferListLimit = def.TransferListLimit
	}
	if strings.TrimSpace(st.ConsentURL) == "" {
		st.ConsentURL = def.ConsentURL
	}
	return nil
}
