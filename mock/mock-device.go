package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/ilievs/beatbox/device"
	"github.com/ilievs/beatbox/mqtt"
	"github.com/ilievs/beatbox/system"
)

type config struct {
	DeviceId    string     `env:"BEATBOX_DEVICE_ID"       envDefault:"beatbox"`
	Password    string     `env:"BEATBOX_DEVICE_PASSWORD" envDefault:"password1"`
	BrokerUrl   url.URL    `env:"BEATBOX_BROKER_URL"      envDefault:"mqtt://localhost:1883"`
	TopicPrefix string     `env:"BEATBOX_TOPIC_PREFIX"    envDefault:"beatbox"`
	LogLevel    slog.Level `env:"BEATBOX_LOG_LEVEL"       envDefault:"info"`
}

// A simulated beatbox that answers commands over MQTT until it is told to quit.
func main() {
	var cfg config
	system.ExitOnError(slog.Default(), "invalid configuration", env.Parse(&cfg))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	// App will run until cancelled by user (e.g. ctrl-c) or a quit command
	ctx, stop := system.ContextUntilSignal(context.Background())
	defer stop()

	err := device.Serve(ctx, device.ServeConfig{
		ServerUrl: &cfg.BrokerUrl,
		DeviceId:  cfg.DeviceId,
		Password:  cfg.Password,
		Topics:    mqtt.NewTopics(cfg.TopicPrefix, cfg.DeviceId),
		Logger:    logger,
	}, device.NewBeatbox())
	system.ExitOnError(logger, "device stopped", err)
}
