package domain

import (
	"fmt"
	"time"
)

// BotMode selects how updates reach the bot
type BotMode string

const (
	// BotModePolling long-polls getUpdates, for local development
	BotModePolling BotMode = "polling"
	// BotModeWebhook serves POST /api/webhook
	BotModeWebhook BotMode = "webhook"
)

// CatalogBackend selects where the catalog is persisted
type CatalogBackend string

const (
	CatalogBackendJSON   CatalogBackend = "json"
	CatalogBackendSQLite CatalogBackend = "sqlite"
	CatalogBackendMongo  CatalogBackend = "mongo"
)

type Config struct {
	BaseURL           string         `toml:"base_url" mapstructure:"base_url"`
	TelegramToken     string         `toml:"telegram_token" mapstructure:"telegram_token"`
	TelegramAPIRoot   string         `toml:"telegram_api_root" mapstructure:"telegram_api_root"`
	BotMode           BotMode        `toml:"bot_mode" mapstructure:"bot_mode"`
	ListenAddr        string         `toml:"listen_addr" mapstructure:"listen_addr"`
	WebhookURL        string         `toml:"webhook_url" mapstructure:"webhook_url"`
	WebhookSecret     string         `toml:"webhook_secret" mapstructure:"webhook_secret"`
	CatalogBackend    CatalogBackend `toml:"catalog_backend" mapstructure:"catalog_backend"`
	CatalogPath       string         `toml:"catalog_path" mapstructure:"catalog_path"`
	DatabaseDir       string         `toml:"database_dir" mapstructure:"database_dir"`
	MongoURI          string         `toml:"mongo_uri" mapstructure:"mongo_uri"`
	MongoDatabase     string         `toml:"mongo_database" mapstructure:"mongo_database"`
	LabelsFile        string         `toml:"labels_file" mapstructure:"labels_file"`
	DiscordWebhookURL string         `toml:"discord_webhook_url" mapstructure:"discord_webhook_url"`
	LogLevel          string         `toml:"log_level" mapstructure:"log_level"`
	LogFile           string         `toml:"log_file" mapstructure:"log_file"`
	UserAgent         string         `toml:"user_agent" mapstructure:"user_agent"`
	FetchTimeout      time.Duration  `toml:"fetch_timeout" mapstructure:"fetch_timeout"`
	FetchRetries      int            `toml:"fetch_retries" mapstructure:"fetch_retries"`
	FetchRetryDelay   time.Duration  `toml:"fetch_retry_delay" mapstructure:"fetch_retry_delay"`
	CatalogDebounce   time.Duration  `toml:"catalog_debounce" mapstructure:"catalog_debounce"`
	SeedThreshold     int            `toml:"seed_threshold" mapstructure:"seed_threshold"`
	SeedDelay         time.Duration  `toml:"seed_delay" mapstructure:"seed_delay"`
	SeedKeywords      []string       `toml:"seed_keywords" mapstructure:"seed_keywords"`
	PerPage           int            `toml:"per_page" mapstructure:"per_page"`
}

// LocalBotAPI reports whether uploads go through a self-hosted Bot API server,
// which lifts the upload limit from 50 MB to 2 GB.
func (c *Config) LocalBotAPI() bool {
	return c.TelegramAPIRoot != ""
}

// ValidateBot checks the settings only the bot needs.
func (c *Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram_token is required (set via config file, VINIME_TELEGRAM_TOKEN or TELEGRAM_TOKEN)")
	}
	if c.BotMode == BotModeWebhook && c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required in webhook mode")
	}
	return nil
}
