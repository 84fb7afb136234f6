package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/varoOP/vinime/internal/domain"
)

const (
	DefaultBaseURL = "https://otakudesu.cloud"
	EnvPrefix      = "VINIME"
)

// SetDefaults registers the default for every key.
func SetDefaults() {
	viper.SetDefault("base_url", DefaultBaseURL)
	viper.SetDefault("bot_mode", string(domain.BotModePolling))
	viper.SetDefault("listen_addr", ":3000")
	viper.SetDefault("catalog_backend", string(domain.CatalogBackendJSON))
	viper.SetDefault("catalog_path", "data/anime-catalog.json")
	viper.SetDefault("database_dir", "data")
	viper.SetDefault("mongo_database", "vinime")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("fetch_timeout", 20*time.Second)
	viper.SetDefault("fetch_retries", 2)
	viper.SetDefault("fetch_retry_delay", 2*time.Second)
	viper.SetDefault("catalog_debounce", 5*time.Second)
	viper.SetDefault("seed_threshold", 50)
	viper.SetDefault("seed_delay", 1500*time.Millisecond)
	viper.SetDefault("per_page", 5)

	// the bare names are what hosting dashboards usually set
	_ = viper.BindEnv("telegram_token", EnvPrefix+"_TELEGRAM_TOKEN", "TELEGRAM_TOKEN", "BOT_TOKEN")
	_ = viper.BindEnv("telegram_api_root", EnvPrefix+"_TELEGRAM_API_ROOT", "TELEGRAM_API_ROOT")
}

// Load loads configuration from multiple sources:
// 1. Config file (config.yaml or .vinime.yaml, optional)
// 2. Environment variables (VINIME_*, plus TELEGRAM_TOKEN and TELEGRAM_API_ROOT)
// 3. Defaults
func Load() (*domain.Config, error) {
	SetDefaults()

	cfg := &domain.Config{
		BaseURL:           strings.TrimRight(strings.TrimSpace(viper.GetString("base_url")), "/"),
		TelegramToken:     strings.TrimSpace(viper.GetString("telegram_token")),
		TelegramAPIRoot:   strings.TrimRight(strings.TrimSpace(viper.GetString("telegram_api_root")), "/"),
		BotMode:           domain.BotMode(strings.ToLower(viper.GetString("bot_mode"))),
		ListenAddr:        viper.GetString("listen_addr"),
		WebhookURL:        viper.GetString("webhook_url"),
		WebhookSecret:     viper.GetString("webhook_secret"),
		CatalogBackend:    domain.CatalogBackend(strings.ToLower(viper.GetString("catalog_backend"))),
		CatalogPath:       viper.GetString("catalog_path"),
		DatabaseDir:       viper.GetString("database_dir"),
		MongoURI:          viper.GetString("mongo_uri"),
		MongoDatabase:     viper.GetString("mongo_database"),
		LabelsFile:        viper.GetString("labels_file"),
		DiscordWebhookURL: viper.GetString("discord_webhook_url"),
		LogLevel:          viper.GetString("log_level"),
		LogFile:           viper.GetString("log_file"),
		UserAgent:         viper.GetString("user_agent"),
		FetchTimeout:      viper.GetDuration("fetch_timeout"),
		FetchRetries:      viper.GetInt("fetch_retries"),
		FetchRetryDelay:   viper.GetDuration("fetch_retry_delay"),
		CatalogDebounce:   viper.GetDuration("catalog_debounce"),
		SeedThreshold:     viper.GetInt("seed_threshold"),
		SeedDelay:         viper.GetDuration("seed_delay"),
		SeedKeywords:      viper.GetStringSlice("seed_keywords"),
		PerPage:           viper.GetInt("per_page"),
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url must not be empty")
	}

	switch cfg.BotMode {
	case domain.BotModePolling, domain.BotModeWebhook:
	default:
		return nil, fmt.Errorf("invalid bot_mode: %s (must be 'polling' or 'webhook')", cfg.BotMode)
	}

	switch cfg.CatalogBackend {
	case domain.CatalogBackendJSON, domain.CatalogBackendSQLite:
	case domain.CatalogBackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongo_uri is required when catalog_backend is 'mongo' (set via config file or VINIME_MONGO_URI)")
		}
	default:
		return nil, fmt.Errorf("invalid catalog_backend: %s (must be 'json', 'sqlite', or 'mongo')", cfg.CatalogBackend)
	}

	if cfg.PerPage <= 0 {
		return nil, fmt.Errorf("per_page must be positive, got %d", cfg.PerPage)
	}
	if cfg.FetchRetries < 0 {
		return nil, fmt.Errorf("fetch_retries must not be negative, got %d", cfg.FetchRetries)
	}

	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment. Variables
// already set win, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
