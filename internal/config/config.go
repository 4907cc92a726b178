// Package config loads process settings from the environment and the rule catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultAlertURL       = "https://www.oref.org.il/WarningMessages/alert/alerts.json"
	DefaultProxyPrimary   = "https://api.allorigins.win/get?url="
	DefaultProxySecondary = "https://api.allorigins.win/raw?url="
	DefaultUserAgent      = "sitrep/1.0 (+https://github.com/deusflow/sitrep)"
)

type Config struct {
	// Rules
	CatalogPath string

	// Schedules
	FetchInterval     time.Duration
	AlertPollInterval time.Duration

	// Alert channels
	AlertURL           string
	LiveAlertURL       string
	LiveReconnectDelay time.Duration
	AlertLogCapacity   int

	// Transport
	ProxyPrimaryURL    string
	ProxySecondaryURL  string
	RequestTimeout     time.Duration
	UserAgent          string
	ProxyRatePerSecond float64
	ProxyBurst         int

	// Strike detection
	StrikeDedupWindow time.Duration
	StrikeTTL         time.Duration

	// HTTP surface
	EnableHTTP bool
	HTTPPort   string

	// Telegram notifier, enabled when both are set
	TelegramToken  string
	TelegramChatID string

	// App settings
	Debug    bool
	LogLevel string
}

// Load reads .env when present, then the environment, then validates.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		CatalogPath: os.Getenv("CATALOG_PATH"),

		FetchInterval:     getEnvDurationOrDefault("FETCH_INTERVAL", 5*time.Minute),
		AlertPollInterval: getEnvDurationOrDefault("ALERT_POLL_INTERVAL", 5*time.Second),

		AlertURL:           getEnvOrDefault("ALERT_URL", DefaultAlertURL),
		LiveAlertURL:       os.Getenv("LIVE_ALERT_URL"),
		LiveReconnectDelay: getEnvDurationOrDefault("LIVE_RECONNECT_DELAY", 5*time.Second),
		AlertLogCapacity:   getEnvIntOrDefault("ALERT_LOG_CAPACITY", 20),

		ProxyPrimaryURL:    getEnvOrDefault("PROXY_PRIMARY_URL", DefaultProxyPrimary),
		ProxySecondaryURL:  getEnvOrDefault("PROXY_SECONDARY_URL", DefaultProxySecondary),
		RequestTimeout:     getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		UserAgent:          getEnvOrDefault("USER_AGENT", DefaultUserAgent),
		ProxyRatePerSecond: getEnvFloatOrDefault("PROXY_RATE_PER_SECOND", 2),
		ProxyBurst:         getEnvIntOrDefault("PROXY_BURST", 4),

		StrikeDedupWindow: getEnvDurationOrDefault("STRIKE_DEDUP_WINDOW", time.Hour),
		StrikeTTL:         getEnvDurationOrDefault("STRIKE_TTL", 6*time.Hour),

		EnableHTTP: os.Getenv("ENABLE_HTTP") == "true",
		HTTPPort:   getEnvOrDefault("HTTP_PORT", "8080"),

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),

		Debug:    os.Getenv("DEBUG") == "true",
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

func (c *Config) Validate() error {
	var errs []error
	if c.FetchInterval < time.Second {
		errs = append(errs, fmt.Errorf("FETCH_INTERVAL must be at least 1s, got %s", c.FetchInterval))
	}
	if c.AlertPollInterval < time.Second {
		errs = append(errs, fmt.Errorf("ALERT_POLL_INTERVAL must be at least 1s, got %s", c.AlertPollInterval))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.StrikeDedupWindow <= 0 {
		errs = append(errs, errors.New("STRIKE_DEDUP_WINDOW must be positive"))
	}
	if c.StrikeTTL < c.StrikeDedupWindow {
		errs = append(errs, fmt.Errorf("STRIKE_TTL (%s) must not be shorter than STRIKE_DEDUP_WINDOW (%s)", c.StrikeTTL, c.StrikeDedupWindow))
	}
	if c.AlertLogCapacity <= 0 {
		errs = append(errs, errors.New("ALERT_LOG_CAPACITY must be positive"))
	}
	if err := validateURL("ALERT_URL", c.AlertURL); err != nil {
		errs = append(errs, err)
	}
	if c.LiveAlertURL != "" {
		if err := validateURL("LIVE_ALERT_URL", c.LiveAlertURL); err != nil {
			errs = append(errs, err)
		}
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		errs = append(errs, errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}
	if p, err := strconv.Atoi(c.HTTPPort); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be a valid port, got %q", c.HTTPPort))
	}
	return errors.Join(errs...)
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
