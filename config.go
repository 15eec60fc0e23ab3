package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Devices        []string   `env:"BEATBOX_DEVICES"         envDefault:"beatbox"               envSeparator:","`
	BrokerUrl      url.URL    `env:"BEATBOX_BROKER_URL"      envDefault:"mqtt://localhost:1883"`
	MqttUsername   string     `env:"BEATBOX_MQTT_USERNAME"`
	MqttPassword   string     `env:"BEATBOX_MQTT_PASSWORD"`
	TopicPrefix    string     `env:"BEATBOX_TOPIC_PREFIX"    envDefault:"beatbox"`
	HttpAddr       string     `env:"BEATBOX_HTTP_ADDR"       envDefault:":8080"`
	EmbedBroker    bool       `env:"BEATBOX_EMBED_BROKER"    envDefault:"false"`
	BrokerAddr     string     `env:"BEATBOX_BROKER_ADDR"     envDefault:":1883"`
	DevicePassword string     `env:"BEATBOX_DEVICE_PASSWORD" envDefault:"password1"`
	Simulate       bool       `env:"BEATBOX_SIMULATE"        envDefault:"false"`
	LogLevel       slog.Level `env:"BEATBOX_LOG_LEVEL"       envDefault:"info"`
}

// ParseConfig loads the configuration from environment variables.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.Devices) == 0 {
		return cfg, errors.New("parse env: BEATBOX_DEVICES names no device")
	}
	if cfg.Simulate && cfg.EmbedBroker {
		return cfg, errors.New("parse env: BEATBOX_SIMULATE and BEATBOX_EMBED_BROKER are mutually exclusive")
	}
	return cfg, nil
}
