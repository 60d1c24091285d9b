package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Placeholder values shipped as defaults. A deployment must override every one.
const (
	PlaceholderBotToken = "YOUR_BOT_TOKEN"
	PlaceholderChatID   = "YOUR_CHAT_ID"
	PlaceholderAPIKey   = "YOUR_API_KEY"
	PlaceholderAPIURL   = "https://your-keitaro-domain/admin_api/v1/report/build"
)

// Application settings
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Telegram TelegramConfig
	Keitaro  KeitaroConfig
	Outbound OutboundConfig
	Messages MessagesConfig
}

// Server settings
type ServerConfig struct {
	Port            string
	Banner          string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type TelegramConfig struct {
	Token       string
	ChatID      string
	APIEndpoint string
	PollTimeout int
	// chats allowed to issue bot commands
	AllowedChats []string
}

type KeitaroConfig struct {
	APIKey    string
	ReportURL string
}

// limits for calls leaving the process (Telegram and the reporting API)
type OutboundConfig struct {
	Timeout            time.Duration
	RateLimitPerSecond int
	RateLimitBurst     int
}

type MessagesConfig struct {
	Variant       string
	TemplatesFile string
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	chatID := getEnv("TELEGRAM_CHAT_ID", PlaceholderChatID)

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Banner:          getEnv("SERVICE_BANNER", "Keitaro Postback Bot is running!"),
			RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", "15s"),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", "10s"),
		},
		Telegram: TelegramConfig{
			Token:        getEnv("TELEGRAM_TOKEN", PlaceholderBotToken),
			ChatID:       chatID,
			APIEndpoint:  getEnv("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
			PollTimeout:  getIntEnv("TELEGRAM_POLL_TIMEOUT", 60),
			AllowedChats: getListEnv("STATS_ALLOWED_CHATS", []string{chatID}),
		},
		Keitaro: KeitaroConfig{
			APIKey:    getEnv("KEITARO_API_KEY", PlaceholderAPIKey),
			ReportURL: getEnv("KEITARO_API_URL", PlaceholderAPIURL),
		},
		Outbound: OutboundConfig{
			Timeout:            getDurationEnv("HTTP_TIMEOUT", "5s"),
			RateLimitPerSecond: getIntEnv("RATE_LIMIT_PER_SECOND", 25),
			RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 5),
		},
		Messages: MessagesConfig{
			Variant:       getEnv("MESSAGE_VARIANT", "postback"),
			TemplatesFile: getEnv("MESSAGE_TEMPLATES_FILE", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid PORT %q: %w", c.Server.Port, err)
	}
	if c.Outbound.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.Outbound.RateLimitPerSecond <= 0 || c.Outbound.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}
	if strings.Count(c.Telegram.APIEndpoint, "%s") != 2 {
		return fmt.Errorf("TELEGRAM_API_ENDPOINT must contain two %%s verbs (token, method)")
	}
	if c.Telegram.PollTimeout < 0 {
		return fmt.Errorf("TELEGRAM_POLL_TIMEOUT must not be negative")
	}
	return nil
}

// Placeholders lists the settings still carrying their placeholder default.
func (c *Config) Placeholders() []string {
	var names []string
	if c.Telegram.Token == PlaceholderBotToken {
		names = append(names, "TELEGRAM_TOKEN")
	}
	if c.Telegram.ChatID == PlaceholderChatID {
		names = append(names, "TELEGRAM_CHAT_ID")
	}
	if c.Keitaro.APIKey == PlaceholderAPIKey {
		names = append(names, "KEITARO_API_KEY")
	}
	if c.Keitaro.ReportURL == PlaceholderAPIURL {
		names = append(names, "KEITARO_API_URL")
	}
	return names
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
