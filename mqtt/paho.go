package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/ilievs/beatbox/core"
)

type PahoConfig struct {
	ServerUrl *url.URL
	Username  string
	Password  string
	// ClientId defaults to a random id when empty.
	ClientId string
	Topics   Topics
	Logger   *slog.Logger
}

// PahoTransport talks to a device through a remote broker. autopaho keeps the
// connection up and re-subscribes after every reconnect.
type PahoTransport struct {
	cm      *autopaho.ConnectionManager
	topics  Topics
	logger  *slog.Logger
	replies chan *core.Reply
}

func NewClientId(role string) string {
	return role + "-" + uuid.NewString()
}

// NewPahoTransport starts connecting in the background; it does not wait for
// the connection to come up. The connection lives until ctx is cancelled.
func NewPahoTransport(ctx context.Context, cfg PahoConfig) (*PahoTransport, error) {
	if cfg.ClientId == "" {
		cfg.ClientId = NewClientId("beatbox-ui")
	}
	logger := cfg.Logger.With("transport", "paho", "device", cfg.Topics.DeviceId)

	t := &PahoTransport{
		topics:  cfg.Topics,
		logger:  logger,
		replies: make(chan *core.Reply, replyBuffer),
	}

	cliCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{cfg.ServerUrl},
		ConnectUsername: cfg.Username,
		ConnectPassword: []byte(cfg.Password),
		KeepAlive:       20,

		// Replies are not queued by the broker across reconnects.
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         0,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			logger.Info("mqtt connection up")
			// Subscribing here re-establishes the subscription after a reconnect
			if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{
					{Topic: t.topics.ReplyFilter(), QoS: 0},
				},
			}); err != nil {
				logger.Error("failed to subscribe to replies", "filter", t.topics.ReplyFilter(), "error", err)
			}
		},
		OnConnectError: func(err error) {
			logger.Warn("error whilst attempting connection", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientId,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				t.onPublishReceived,
			},
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

	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.ServerUrl, err)
	}
	t.cm = cm
	return t, nil
}

func (t *PahoTransport) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	name, ok := t.topics.ParseReply(pr.Packet.Topic)
	if !ok {
		return false, nil
	}
	select {
	case t.replies <- &core.Reply{Name: name, Payload: string(pr.Packet.Payload)}:
	default:
		t.logger.Warn("reply buffer full, dropping reply", "reply", name)
	}
	return true, nil
}

// AwaitConnection blocks until the first connection is up or ctx is done.
func (t *PahoTransport) AwaitConnection(ctx context.Context) error {
	return t.cm.AwaitConnection(ctx)
}

func (t *PahoTransport) Emit(ctx context.Context, command *core.Command) error {
	_, err := t.cm.Publish(ctx, &paho.Publish{
		QoS:     0,
		Topic:   t.topics.Command(command.Name),
		Payload: []byte(command.Argument),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", t.topics.Command(command.Name), err)
	}
	return nil
}

func (t *PahoTransport) SubscribeToReplies() (<-chan *core.Reply, error) {
	return t.replies, nil
}

// Done is closed once the connection manager has shut down.
func (t *PahoTransport) Done() <-chan struct{} {
	return t.cm.Done()
}

func (t *PahoTransport) Disconnect(ctx context.Context) error {
	return t.cm.Disconnect(ctx)
}
