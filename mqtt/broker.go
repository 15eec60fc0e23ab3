package mqtt

import (
	"fmt"
	"log/slog"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

type Subscription struct {
	topicFilter string
}

type BrokerConfig struct {
	// Address of the TCP listener. Empty means inline clients only.
	Address        string
	TopicPrefix    string
	DeviceIds      []string
	DevicePassword string
	ClientUsername string
	ClientPassword string
}

type MochiBroker struct {
	server              *mochi.Server
	subscriberIdCounter int
	subscriptionsById   map[int]*Subscription
	subscriberMutex     sync.Mutex
}

// NewMochiServer creates a mochi server with the inline client enabled, which
// the broker's Publish and Subscribe rely on.
func NewMochiServer(logger *slog.Logger) *mochi.Server {
	return mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       logger,
	})
}

func NewMochiBroker(server *mochi.Server) *MochiBroker {
	return &MochiBroker{
		server:              server,
		subscriberIdCounter: 1,
		subscriptionsById:   make(map[int]*Subscription),
	}
}

// Ledger builds the auth rules: each device may log in with its id and only
// touch its own topics; local connections and the configured client user are
// allowed everything under the prefix.
func Ledger(cfg BrokerConfig) *auth.Ledger {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}

	ledger := &auth.Ledger{
		Auth: auth.AuthRules{
			{Remote: "127.0.0.1:*", Allow: true},
			{Remote: "localhost:*", Allow: true},
		},
		ACL: auth.ACLRules{
			{Remote: "127.0.0.1:*"}, // local superuser allow all
		},
	}

	if cfg.ClientUsername != "" {
		ledger.Auth = append(ledger.Auth, auth.AuthRule{
			Username: auth.RString(cfg.ClientUsername),
			Password: auth.RString(cfg.ClientPassword),
			Allow:    true,
		})
		ledger.ACL = append(ledger.ACL, auth.ACLRule{
			Username: auth.RString(cfg.ClientUsername),
			Filters: auth.Filters{
				auth.RString(prefix + "/#"): auth.ReadWrite,
			},
		})
	}

	for _, id := range cfg.DeviceIds {
		ledger.Auth = append(ledger.Auth, auth.AuthRule{
			Username: auth.RString(id),
			Password: auth.RString(cfg.DevicePassword),
			Allow:    true,
		})
		ledger.ACL = append(ledger.ACL, auth.ACLRule{
			Username: auth.RString(id),
			Filters: auth.Filters{
				auth.RString(NewTopics(prefix, id).DeviceFilter()): auth.ReadWrite,
			},
		})
	}

	// Otherwise, nobody can read or publish anything
	ledger.ACL = append(ledger.ACL, auth.ACLRule{
		Filters: auth.Filters{
			"#": auth.Deny,
		},
	})

	return ledger
}

func (m *MochiBroker) Start(cfg BrokerConfig, hooks []mochi.Hook, hookConfigs []any) error {
	err := m.server.AddHook(new(auth.Hook), &auth.Options{Ledger: Ledger(cfg)})
	if err != nil {
		return fmt.Errorf("add auth hook: %w", err)
	}

	for i, hook := range hooks {
		if err := m.server.AddHook(hook, hookConfigs[i]); err != nil {
			return fmt.Errorf("add hook %s: %w", hook.ID(), err)
		}
	}

	if cfg.Address != "" {
		tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: cfg.Address})
		if err := m.server.AddListener(tcp); err != nil {
			return fmt.Errorf("add listener %s: %w", cfg.Address, err)
		}
	}

	return m.server.Serve()
}

func (m *MochiBroker) Close() error {
	return m.server.Close()
}

// Subscribe registers an inline subscription and returns its id.
func (m *MochiBroker) Subscribe(topicFilter string, callbackFn mochi.InlineSubFn) (int, error) {
	m.subscriberMutex.Lock()
	defer m.subscriberMutex.Unlock()
	id := m.subscriberIdCounter
	err := m.server.Subscribe(topicFilter, id, callbackFn)
	if err != nil {
		return 0, err
	}

	m.subscriptionsById[id] = &Subscription{topicFilter}
	m.subscriberIdCounter += 1

	return id, nil
}

func (m *MochiBroker) Unsubscribe(id int) error {
	m.subscriberMutex.Lock()
	defer m.subscriberMutex.Unlock()
	sub, ok := m.subscriptionsById[id]
	if !ok {
		return nil
	}
	delete(m.subscriptionsById, id)
	return m.server.Unsubscribe(sub.topicFilter, id)
}

// Publish sends a non-retained QoS 0 message from the inline client.
func (m *MochiBroker) Publish(topic string, payload []byte) error {
	return m.server.Publish(topic, payload, false, 0)
}
