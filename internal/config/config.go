package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит конфигурацию приложения, получаемую из окружения.
type Config struct {
	SlackBotToken    string
	SlackAPIURL      string
	TelegramBotToken string
	HTTPAddr         string

	PollInterval    time.Duration
	DeliveryTimeout time.Duration
	Location        *time.Location

	TasksDatabasePath    string
	DeliveryLogPath      string
	DeliveryLogRetention time.Duration

	LogLevel string
}

// SlackEnabled true, если задан токен Slack-бота.
func (c Config) SlackEnabled() bool { return c.SlackBotToken != "" }

// TelegramEnabled true, если задан токен Telegram-бота.
func (c Config) TelegramEnabled() bool { return c.TelegramBotToken != "" }

// Load загружает конфигурацию из переменных окружения.
func Load() (Config, error) {
	slackToken := strings.TrimSpace(os.Getenv("SLACK_BOT_TOKEN"))
	tgToken := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if slackToken == "" && tgToken == "" {
		return Config{}, fmt.Errorf("SLACK_BOT_TOKEN or TELEGRAM_BOT_TOKEN must be set")
	}

	addr := ":8000"
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		addr = v
	}

	// POLL_INTERVAL_MS: int, по умолчанию раз в секунду
	poll := time.Second
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			poll = time.Duration(n) * time.Millisecond
		}
	}

	// DELIVERY_TIMEOUT_SEC: int
	timeout := 10 * time.Second
	if v := os.Getenv("DELIVERY_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	// REMINDER_TIMEZONE: IANA имя, в котором трактуются дата и время из формы
	loc := time.Local
	if v := strings.TrimSpace(os.Getenv("REMINDER_TIMEZONE")); v != "" {
		l, err := time.LoadLocation(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REMINDER_TIMEZONE: %w", err)
		}
		loc = l
	}

	logPath := "data/deliveries.db"
	if v := strings.TrimSpace(os.Getenv("DELIVERY_LOG_PATH")); v != "" {
		logPath = v
	}

	retentionDays := 30
	if v := os.Getenv("DELIVERY_LOG_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			retentionDays = n
		}
	}

	// LOG_LEVEL: string (debug, info, warn, error)
	logLevel := "info"
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "debug" || v == "info" || v == "warn" || v == "error" {
			logLevel = v
		}
	}

	return Config{
		SlackBotToken:        slackToken,
		SlackAPIURL:          strings.TrimSpace(os.Getenv("SLACK_API_URL")),
		TelegramBotToken:     tgToken,
		HTTPAddr:             addr,
		PollInterval:         poll,
		DeliveryTimeout:      timeout,
		Location:             loc,
		TasksDatabasePath:    strings.TrimSpace(os.Getenv("TASKS_DATABASE_PATH")),
		DeliveryLogPath:      logPath,
		DeliveryLogRetention: time.Duration(retentionDays) * 24 * time.Hour,
		LogLevel:             logLevel,
	}, nil
}
