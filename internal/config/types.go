package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	MQTT    MQTTConfig    `json:"mqtt"`
	Discord DiscordConfig `json:"discord"`
	Logging LoggingConfig `json:"logging"`
	Bridge  BridgeConfig  `json:"bridge,omitempty"`
	Archive ArchiveConfig `json:"archive,omitempty"`
	Report  ReportConfig  `json:"report,omitempty"`
}

// MQTTConfig describes the broker connection.
//
// Defaults (when fields are omitted/zero):
//   - broker: "localhost"
//   - port: 1883
//   - topic: "meshtastic/#"
//   - client_id: "meshbridge"
type MQTTConfig struct {
	Broker   string `json:"broker,omitempty"`
	Port     int    `json:"port,omitempty"`
	Topic    string `json:"topic,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// DiscordConfig describes the outbound webhooks.
//
// WebhookURL is required; the process refuses to start without it.
// TelemetryWebhookURL is optional; when empty, position/telemetry/nodeinfo
// events are dropped with a warning.
//
// All durations are Go duration strings (e.g. "500ms", "10s").
type DiscordConfig struct {
	WebhookURL          string `json:"webhook_url"`
	TelemetryWebhookURL string `json:"telemetry_webhook_url,omitempty"`

	RatePerSec int    `json:"rate_per_sec,omitempty"` // default 5
	RetryMax   int    `json:"retry_max,omitempty"`    // default 2 (429 retries)
	Timeout    string `json:"timeout,omitempty"`      // per-request, default "10s"
}

type LoggingConfig struct {
	Level   string         `json:"level,omitempty"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file,omitempty"`
	Discord LoggingDiscord `json:"discord,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// LoggingDiscord forwards warn+ log lines to the primary webhook.
type LoggingDiscord struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// BridgeConfig tunes the pipeline itself.
type BridgeConfig struct {
	// SeenCacheSize bounds the duplicate-suppression set. Default 1000.
	SeenCacheSize int `json:"seen_cache_size,omitempty"`
}

// ArchiveConfig controls the optional delivered-message archive.
//
// Driver values: "none" (default, disabled) or "sqlite".
type ArchiveConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// ReportConfig controls the periodic status digest.
//
// Schedule is a cron expression (e.g. "0 9 * * *"). Empty disables the digest.
type ReportConfig struct {
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// ApplyDefaults fills zero fields in place.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.MQTT.Broker) == "" {
		c.MQTT.Broker = "localhost"
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if strings.TrimSpace(c.MQTT.Topic) == "" {
		c.MQTT.Topic = "meshtastic/#"
	}
	if strings.TrimSpace(c.MQTT.ClientID) == "" {
		c.MQTT.ClientID = "meshbridge"
	}
	if c.Discord.RatePerSec == 0 {
		c.Discord.RatePerSec = 5
	}
	if c.Discord.RetryMax == 0 {
		c.Discord.RetryMax = 2
	}
	if c.Bridge.SeenCacheSize == 0 {
		c.Bridge.SeenCacheSize = 1000
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "INFO"
	}
}

// Validate rejects configs the bridge cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.WebhookURL) == "" {
		return errors.New("discord.webhook_url is required (or set DISCORD_WEBHOOK_URL)")
	}
	if c.MQTT.Port < 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt.port out of range: %d", c.MQTT.Port)
	}
	if c.Bridge.SeenCacheSize < 0 {
		return errors.New("bridge.seen_cache_size must be >= 0")
	}
	if _, err := ParseDurationField("discord.timeout", c.Discord.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("archive.busy_timeout", c.Archive.BusyTimeout); err != nil {
		return err
	}
	switch d := strings.ToLower(strings.TrimSpace(c.Archive.Driver)); d {
	case "", "none", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("archive.driver: unknown driver %q", d)
	}
	if tz := strings.TrimSpace(c.Report.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("report.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}
