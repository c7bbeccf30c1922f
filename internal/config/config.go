// Package config loads the alert pipeline configuration from a JSON file,
// an optional .env file and environment variable overrides for secrets.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"pumpfun-alerts/internal/dispatch"
	"pumpfun-alerts/internal/filter"
	"pumpfun-alerts/internal/ratelimit"
)

// Config is the full operator-facing configuration.
type Config struct {
	// WSEndpoint is the Solana websocket RPC endpoint.
	WSEndpoint string `json:"ws_endpoint"`
	// Commitment is the subscription commitment level.
	Commitment string `json:"commitment"`

	PostgresDSN   string `json:"postgres_dsn"`
	ClickhouseDSN string `json:"clickhouse_dsn"`
	MetricsAddr   string `json:"metrics_addr"`

	Filters   Filters   `json:"filters"`
	RateLimit RateLimit `json:"rate_limit"`
	Retry     Retry     `json:"retry"`
	Dedup     Dedup     `json:"dedup"`
	Channels  Channels  `json:"channels"`
}

// Filters mirrors filter.Config with JSON tags.
type Filters struct {
	NameContains     []string `json:"name_contains"`
	SymbolContains   []string `json:"symbol_contains"`
	BlockedWords     []string `json:"blocked_words"`
	CreatorAllowlist []string `json:"creator_allowlist"`
	MinNameLength    int      `json:"min_name_length"`
	MaxNameLength    int      `json:"max_name_length"`
}

// RateLimit holds the outbound alert volume caps. Durations are seconds.
type RateLimit struct {
	MaxAlertsPerMinute int     `json:"max_alerts_per_minute"`
	MinSecondsBetween  float64 `json:"min_seconds_between_alerts"`
}

// Retry holds the per-channel delivery retry policy. Durations are seconds.
type Retry struct {
	MaxAttempts      int     `json:"max_attempts"`
	BaseDelaySeconds float64 `json:"base_delay_seconds"`
	MaxDelaySeconds  float64 `json:"max_delay_seconds"`
}

// Dedup holds the suppression windows. Durations are seconds.
type Dedup struct {
	SignatureWindowSeconds int `json:"signature_window_seconds"`
	MintCooldownSeconds    int `json:"mint_cooldown_seconds"`
}

// Channels configures the notification targets.
type Channels struct {
	Telegram Telegram  `json:"telegram"`
	Discord  Discord   `json:"discord"`
	Webhooks []Webhook `json:"webhooks"`
}

// Telegram configures the Telegram bot channel. The token and chat ID may
// come from TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID instead of the file.
type Telegram struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// Discord configures the Discord webhook channel. The URL may come from
// DISCORD_WEBHOOK_URL instead of the file.
type Discord struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
	Username   string `json:"username"`
}

// Webhook configures one generic JSON webhook target.
type Webhook struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Load reads the configuration file, loads .env if present and applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	// Missing .env is fine; real deployments often use plain env vars.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WS_ENDPOINT"); v != "" {
		c.WSEndpoint = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.ClickhouseDSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Channels.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Channels.Telegram.ChatID = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Channels.Discord.WebhookURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.WSEndpoint == "" {
		c.WSEndpoint = "wss://api.mainnet-beta.solana.com"
	}
	if c.Commitment == "" {
		c.Commitment = "processed"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.RateLimit.MaxAlertsPerMinute == 0 {
		c.RateLimit.MaxAlertsPerMinute = 60
	}
	if c.RateLimit.MinSecondsBetween == 0 {
		c.RateLimit.MinSecondsBetween = 1
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelaySeconds == 0 {
		c.Retry.BaseDelaySeconds = 1
	}
	if c.Retry.MaxDelaySeconds == 0 {
		c.Retry.MaxDelaySeconds = 30
	}
	if c.Dedup.SignatureWindowSeconds == 0 {
		c.Dedup.SignatureWindowSeconds = 300
	}
	if c.Dedup.MintCooldownSeconds == 0 {
		c.Dedup.MintCooldownSeconds = 3600
	}
}

func (c *Config) validate() error {
	if c.Channels.Telegram.Enabled {
		if c.Channels.Telegram.BotToken == "" {
			return fmt.Errorf("telegram enabled but bot token missing (set TELEGRAM_BOT_TOKEN)")
		}
		if c.Channels.Telegram.ChatID == "" {
			return fmt.Errorf("telegram enabled but chat id missing (set TELEGRAM_CHAT_ID)")
		}
	}
	if c.Channels.Discord.Enabled && c.Channels.Discord.WebhookURL == "" {
		return fmt.Errorf("discord enabled but webhook url missing (set DISCORD_WEBHOOK_URL)")
	}
	for _, w := range c.Channels.Webhooks {
		if w.URL == "" {
			return fmt.Errorf("webhook %q has no url", w.Name)
		}
	}
	return nil
}

// FilterConfig converts to the filter package config, normalized.
func (c *Config) FilterConfig() filter.Config {
	fc := filter.Config{
		NameContains:     c.Filters.NameContains,
		SymbolContains:   c.Filters.SymbolContains,
		BlockedWords:     c.Filters.BlockedWords,
		CreatorAllowlist: c.Filters.CreatorAllowlist,
		MinNameLength:    c.Filters.MinNameLength,
		MaxNameLength:    c.Filters.MaxNameLength,
	}
	fc.Normalize()
	return fc
}

// LimiterConfig converts to the ratelimit package config.
func (c *Config) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		WindowDuration: time.Minute,
		MaxPerWindow:   c.RateLimit.MaxAlertsPerMinute,
		MinSpacing:     time.Duration(c.RateLimit.MinSecondsBetween * float64(time.Second)),
	}
}

// RetryConfig converts to the dispatch package retry config.
func (c *Config) RetryConfig() dispatch.RetryConfig {
	return dispatch.RetryConfig{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Retry.BaseDelaySeconds * float64(time.Second)),
		MaxDelay:    time.Duration(c.Retry.MaxDelaySeconds * float64(time.Second)),
		Factor:      2.0,
		JitterFrac:  0.2,
	}
}

// SignatureWindow returns the dedup window as a duration.
func (c *Config) SignatureWindow() time.Duration {
	return time.Duration(c.Dedup.SignatureWindowSeconds) * time.Second
}

// MintCooldown returns the mint cooldown as a duration.
func (c *Config) MintCooldown() time.Duration {
	return time.Duration(c.Dedup.MintCooldownSeconds) * time.Second
}

// BuildChannels instantiates the enabled notification channels.
func (c *Config) BuildChannels() []dispatch.Channel {
	var channels []dispatch.Channel
	if c.Channels.Telegram.Enabled {
		channels = append(channels, dispatch.NewTelegramChannel(
			c.Channels.Telegram.BotToken, c.Channels.Telegram.ChatID, nil))
	}
	if c.Channels.Discord.Enabled {
		channels = append(channels, dispatch.NewDiscordChannel(
			c.Channels.Discord.WebhookURL, c.Channels.Discord.Username, nil))
	}
	for _, w := range c.Channels.Webhooks {
		channels = append(channels, dispatch.NewWebhookChannel(w.URL, w.Name, nil))
	}
	return channels
}
