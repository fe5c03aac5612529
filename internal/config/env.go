package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment surface. Values here override the config file, matching how the
// bridge is usually deployed (a unit file with a handful of variables and no
// config file at all).
const (
	EnvBroker              = "MQTT_BROKER"
	EnvPort                = "MQTT_PORT"
	EnvTopic               = "MQTT_TOPIC"
	EnvWebhookURL          = "DISCORD_WEBHOOK_URL"
	EnvTelemetryWebhookURL = "DISCORD_TELEMETRY_WEBHOOK_URL"
)

// applyEnvOverrides merges recognized environment variables into cfg.
func applyEnvOverrides(cfg *Config) error {
	if v, ok := lookup(EnvBroker); ok {
		cfg.MQTT.Broker = v
	}
	if v, ok := lookup(EnvPort); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q: %w", EnvPort, v, err)
		}
		cfg.MQTT.Port = p
	}
	if v, ok := lookup(EnvTopic); ok {
		cfg.MQTT.Topic = v
	}
	if v, ok := lookup(EnvWebhookURL); ok {
		cfg.Discord.WebhookURL = v
	}
	if v, ok := lookup(EnvTelemetryWebhookURL); ok {
		cfg.Discord.TelemetryWebhookURL = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}
