package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/ilievs/beatbox/core"
)

const replyBuffer = 64

// MochiTransport talks to a device through the embedded broker's inline
// client.
type MochiTransport struct {
	broker         *MochiBroker
	topics         Topics
	logger         *slog.Logger
	subscribeMutex sync.Mutex
	replies        chan *core.Reply
}

func NewMochiTransport(broker *MochiBroker, topics Topics, logger *slog.Logger) *MochiTransport {
	return &MochiTransport{
		broker: broker,
		topics: topics,
		logger: logger.With("transport", "mochi", "device", topics.DeviceId),
	}
}

func (t *MochiTransport) Emit(ctx context.Context, command *core.Command) error {
	topic := t.topics.Command(command.Name)
	if err := t.broker.Publish(topic, []byte(command.Argument)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// SubscribeToReplies subscribes to the device's reply topics on first use;
// later calls return the same channel.
func (t *MochiTransport) SubscribeToReplies() (<-chan *core.Reply, error) {
	t.subscribeMutex.Lock()
	defer t.subscribeMutex.Unlock()
	if t.replies != nil {
		return t.replies, nil
	}

	replies := make(chan *core.Reply, replyBuffer)
	_, err := t.broker.Subscribe(t.topics.ReplyFilter(), func(cl *mochi.Client, sub packets.Subscription, pk packets.Packet) {
		t.forward(replies, pk.TopicName, pk.Payload)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", t.topics.ReplyFilter(), err)
	}
	t.replies = replies
	return replies, nil
}

func (t *MochiTransport) forward(replies chan *core.Reply, topic string, payload []byte) {
	name, ok := t.topics.ParseReply(topic)
	if !ok {
		t.logger.Debug("ignoring message on unexpected topic", "topic", topic)
		return
	}
	select {
	case replies <- &core.Reply{Name: name, Payload: string(payload)}:
	default:
		t.logger.Warn("reply buffer full, dropping reply", "reply", name)
	}
}
