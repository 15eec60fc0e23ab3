package device

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/ilievs/beatbox/core"
	"github.com/ilievs/beatbox/mqtt"
)

type ServeConfig struct {
	ServerUrl *url.URL
	DeviceId  string
	Password  string
	Topics    mqtt.Topics
	Logger    *slog.Logger
}

// Serve connects the simulated beatbox to a broker and answers commands until
// ctx is cancelled or the beatbox receives quit.
func Serve(ctx context.Context, cfg ServeConfig, beatbox *Beatbox) error {
	logger := cfg.Logger.With("device", cfg.DeviceId)
	commands := make(chan *core.Command, 64)

	cliCfg := autopaho.ClientConfig{
		ConnectUsername: cfg.DeviceId,
		ConnectPassword: []byte(cfg.Password),
		ServerUrls:      []*url.URL{cfg.ServerUrl},
		KeepAlive:       20, // Keepalive message should be sent every 20 seconds

		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			logger.Info("mqtt connection up")
			// Subscribing in the OnConnectionUp callback ensures the subscription is
			// reestablished if the connection drops
			if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{
					{Topic: cfg.Topics.CommandFilter(), QoS: 0},
				},
			}); err != nil {
				logger.Error("failed to subscribe to commands", "error", err)
				return
			}
			logger.Info("mqtt subscription made", "filter", cfg.Topics.CommandFilter())
		},
		OnConnectError: func(err error) {
			logger.Warn("error whilst attempting connection", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: mqtt.NewClientId(cfg.DeviceId),
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					name, ok := cfg.Topics.ParseCommand(pr.Packet.Topic)
					if !ok {
						return false, nil
					}
					// Handled on the serve loop: publishing from inside this
					// callback would block the client's read loop.
					select {
					case commands <- &core.Command{Name: name, Argument: string(pr.Packet.Payload)}:
					default:
						logger.Warn("command buffer full, dropping command", "command", name)
					}
					return true, nil
				}},
			OnClientError: func(err error) {
				logger.Error("client error", "error", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					logger.Warn("server requested disconnect", "reason", d.Properties.ReasonString)
				} else {
					logger.Warn("server requested disconnect", "reasonCode", d.ReasonCode)
				}
			},
		},
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cm, err := autopaho.NewConnection(runCtx, cliCfg) // will reconnect until context cancelled
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.ServerUrl, err)
	}
	defer func() {
		<-cm.Done()
	}()

	for {
		select {
		case command := <-commands:
			logger.Info("received command", "command", command.String())
			reply := beatbox.Handle(command)
			if reply == nil {
				continue
			}
			_, err := cm.Publish(runCtx, &paho.Publish{
				QoS:     0,
				Topic:   cfg.Topics.Reply(reply.Name),
				Payload: []byte(reply.Payload),
			})
			if err != nil && runCtx.Err() == nil {
				logger.Warn("failed to publish reply", "reply", reply.Name, "error", err)
			}

		case <-beatbox.Quit():
			logger.Info("quit requested, shutting down")
			cancel()
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}
