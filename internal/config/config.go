package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// YandexConfig holds credentials for the YandexGPT and YandexART APIs.
type YandexConfig struct {
	FolderID  string
	GPTModel  string
	GPTAPIURL string
	GPTAPIKey string
	ArtModel  string
	ArtAPIURL string
	ArtAPIKey string
}

// OpenAIConfig holds credentials for an OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	APIKey    string
	APIURL    string
	Model     string
	MaxTokens int
}

// Config holds the application configuration.
type Config struct {
	AppEnv      string
	Debug       bool
	Version     string
	BotToken    string
	ChannelID   int64
	AdminIDs    []int64
	Timezone    *time.Location
	SentryDSN   string
	DatabaseURI string
	MediaDir    string

	// TextBackend selects the text generation backend: "yandex" or "openai".
	TextBackend string
	Yandex      YandexConfig
	OpenAI      OpenAIConfig

	// StatsAPIURL points at the stats sidecar; empty disables the stats poller.
	StatsAPIURL   string
	StatsSchedule string
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	channelIDStr := getEnv("TELEGRAM_CHANNEL_ID", "")
	channelID, err := strconv.ParseInt(channelIDStr, 10, 64)
	if err != nil && channelIDStr != "" {
		return nil, fmt.Errorf("invalid TELEGRAM_CHANNEL_ID: %w", err)
	}

	adminIDs, err := parseAdminIDs(getEnv("TELEGRAM_ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_IDS: %w", err)
	}

	tzName := getEnv("TIME_ZONE", "Europe/Moscow")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", tzName, err)
	}

	maxTokens, err := strconv.Atoi(getEnv("OPENAI_MAX_TOKEN_COUNT", "4096"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPENAI_MAX_TOKEN_COUNT: %w", err)
	}

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Debug:       debug,
		Version:     getEnv("VERSION", "dev"),
		BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChannelID:   channelID,
		AdminIDs:    adminIDs,
		Timezone:    loc,
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		DatabaseURI: getEnv("DATABASE_URI", ""),
		MediaDir:    getEnv("MEDIA_DIR", "media"),
		TextBackend: getEnv("TEXT_BACKEND", "yandex"),
		Yandex: YandexConfig{
			FolderID:  getEnv("YANDEX_FOLDER_ID", ""),
			GPTModel:  getEnv("YANDEX_GPT_MODEL", "yandexgpt/latest"),
			GPTAPIURL: getEnv("YANDEX_GPT_API_URL", "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"),
			GPTAPIKey: getEnv("YANDEX_GPT_API_KEY", ""),
			ArtModel:  getEnv("YANDEX_ART_MODEL", "yandex-art/latest"),
			ArtAPIURL: getEnv("YANDEX_ART_API_URL", "https://llm.api.cloud.yandex.net/foundationModels/v1/imageGenerationAsync"),
			ArtAPIKey: getEnv("YANDEX_ART_API_KEY", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			APIURL:    getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
			Model:     getEnv("OPENAI_GPT_MODEL", "gpt-4o-mini"),
			MaxTokens: maxTokens,
		},
		StatsAPIURL:   getEnv("STATS_API_URL", ""),
		StatsSchedule: getEnv("STATS_SCHEDULE", "@every 24h"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.ChannelID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHANNEL_ID is required")
	}
	if len(cfg.AdminIDs) == 0 {
		return nil, fmt.Errorf("TELEGRAM_ADMIN_IDS is required")
	}
	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("DATABASE_URI is required")
	}
	if cfg.TextBackend != "yandex" && cfg.TextBackend != "openai" {
		return nil, fmt.Errorf("TEXT_BACKEND must be \"yandex\" or \"openai\", got %q", cfg.TextBackend)
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}

	return cfg, nil
}

// parseAdminIDs parses a comma-separated list of Telegram user IDs.
func parseAdminIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
