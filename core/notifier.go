package core

import (
	"log/slog"
	"sync"
)

type NotificationKind string

const (
	NotifyMode   NotificationKind = "mode"
	NotifyVolume NotificationKind = "volume"
	NotifyTempo  NotificationKind = "tempo"
	NotifyUptime NotificationKind = "uptime"
	NotifyError  NotificationKind = "error"
)

// Notification is pushed to the presentation layer whenever the mirrored
// state changes or an error has to be shown.
type Notification struct {
	Kind  NotificationKind `json:"kind"`
	Value any              `json:"value"`
}

const notificationBuffer = 32

// Notifier fans notifications out to any number of subscribers. Publish never
// blocks: a subscriber that is not keeping up loses notifications.
type Notifier struct {
	logger           *slog.Logger
	subscribersMutex sync.RWMutex
	subscribers      map[int]chan *Notification
	nextId           int
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger:      logger,
		subscribers: make(map[int]chan *Notification),
	}
}

// Subscribe returns a channel of notifications and a function that
// unsubscribes and closes it.
func (n *Notifier) Subscribe() (<-chan *Notification, func()) {
	n.subscribersMutex.Lock()
	defer n.subscribersMutex.Unlock()

	id := n.nextId
	n.nextId++
	ch := make(chan *Notification, notificationBuffer)
	n.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.subscribersMutex.Lock()
			defer n.subscribersMutex.Unlock()
			delete(n.subscribers, id)
			close(ch)
		})
	}
}

func (n *Notifier) Publish(notification *Notification) {
	n.subscribersMutex.RLock()
	defer n.subscribersMutex.RUnlock()
	for id, ch := range n.subscribers {
		select {
		case ch <- notification:
		default:
			n.logger.Warn("dropping notification for slow subscriber",
				"subscriber", id, "kind", notification.Kind)
		}
	}
}

func (n *Notifier) publishError(err error) {
	n.Publish(&Notification{Kind: NotifyError, Value: err.Error()})
}
