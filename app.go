package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"

	"github.com/ilievs/beatbox/core"
	"github.com/ilievs/beatbox/device"
	"github.com/ilievs/beatbox/mqtt"
	"github.com/ilievs/beatbox/web"
)

const shutdownTimeout = 5 * time.Second

// RunApplication starts one session per configured device behind the HTTP
// server and blocks until ctx is cancelled or the server fails.
func RunApplication(ctx context.Context, cfg Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serverOpts []web.Option
	var broker *mqtt.MochiBroker
	if cfg.EmbedBroker {
		presence := new(mqtt.PresenceHook)
		broker = mqtt.NewMochiBroker(mqtt.NewMochiServer(logger.With("component", "broker")))
		brokerCfg := mqtt.BrokerConfig{
			Address:        cfg.BrokerAddr,
			TopicPrefix:    cfg.TopicPrefix,
			DeviceIds:      cfg.Devices,
			DevicePassword: cfg.DevicePassword,
			ClientUsername: cfg.MqttUsername,
			ClientPassword: cfg.MqttPassword,
		}
		hookOptions := &mqtt.HookOptions{DeviceIds: cfg.Devices, Logger: logger}
		if err := broker.Start(brokerCfg, []mochi.Hook{presence}, []any{hookOptions}); err != nil {
			return fmt.Errorf("start broker: %w", err)
		}
		defer broker.Close()
		serverOpts = append(serverOpts, web.WithPresence(presence))
	}

	sessions := core.NewBasicSessionManager()
	for _, deviceId := range cfg.Devices {
		transport, err := newTransport(ctx, cfg, deviceId, broker, logger)
		if err != nil {
			return err
		}
		session := core.NewSession(deviceId, transport, core.WithLogger(logger))
		if err := sessions.AddSession(session); err != nil {
			return fmt.Errorf("add device %s: %w", deviceId, err)
		}
	}

	server := web.NewServer(sessions, logger, serverOpts...)

	var running sync.WaitGroup
	for _, session := range sessions.ListSessions() {
		server.Track(session)
		running.Add(1)
		go func() {
			defer running.Done()
			if err := session.Run(ctx); err != nil {
				logger.Error("session failed", "device", session.Id(), "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.HttpAddr)
	}()

	var err error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serverErr:
		if err != nil {
			err = fmt.Errorf("http server: %w", err)
		}
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		logger.Warn("http server shutdown", "error", shutdownErr)
	}
	running.Wait()

	return err
}

func newTransport(ctx context.Context, cfg Config, deviceId string, broker *mqtt.MochiBroker, logger *slog.Logger) (core.Transport, error) {
	topics := mqtt.NewTopics(cfg.TopicPrefix, deviceId)
	switch {
	case cfg.Simulate:
		logger.Info("simulating device", "device", deviceId)
		return device.NewLoopback(device.NewBeatbox(), logger.With("device", deviceId)), nil

	case broker != nil:
		return mqtt.NewMochiTransport(broker, topics, logger), nil

	default:
		transport, err := mqtt.NewPahoTransport(ctx, mqtt.PahoConfig{
			ServerUrl: &cfg.BrokerUrl,
			Username:  cfg.MqttUsername,
			Password:  cfg.MqttPassword,
			Topics:    topics,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", deviceId, err)
		}
		return transport, nil
	}
}
