package device

import (
	"context"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/ilievs/beatbox/core"
	"github.com/ilievs/beatbox/mqtt"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("Failed to find a free port", err)
	}
	defer l.Close()
	return l.Addr().String()
}

// waitFor reads notifications until match returns true or the deadline passes.
func waitFor(t *testing.T, notifications <-chan *core.Notification, what string, match func(n *core.Notification) bool) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case n := <-notifications:
			if match(n) {
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for", what)
		}
	}
}

func TestServeOverBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a TCP broker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	address := freeAddress(t)
	broker := mqtt.NewMochiBroker(mqtt.NewMochiServer(discard))
	err := broker.Start(mqtt.BrokerConfig{
		Address:        address,
		DeviceIds:      []string{"beatbox"},
		DevicePassword: "password1",
	}, nil, nil)
	if err != nil {
		t.Fatal("Failed to start broker", err)
	}
	defer broker.Close()

	serverUrl, _ := url.Parse("mqtt://" + address)
	topics := mqtt.NewTopics("", "beatbox")

	beatbox := NewBeatbox()
	served := make(chan error, 1)
	go func() {
		served <- Serve(ctx, ServeConfig{
			ServerUrl: serverUrl,
			DeviceId:  "beatbox",
			Password:  "password1",
			Topics:    topics,
			Logger:    discard,
		}, beatbox)
	}()

	transport, err := mqtt.NewPahoTransport(ctx, mqtt.PahoConfig{
		ServerUrl: serverUrl,
		Topics:    topics,
		Logger:    discard,
	})
	if err != nil {
		t.Fatal("Failed to create transport", err)
	}
	awaitCtx, awaitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer awaitCancel()
	if err := transport.AwaitConnection(awaitCtx); err != nil {
		t.Fatal("Transport did not connect", err)
	}

	session := core.NewSession("beatbox", transport, core.WithLogger(discard))
	notifications, unsubscribe := session.Subscribe()
	defer unsubscribe()
	sessionCtx, stopSession := context.WithCancel(ctx)
	go session.Run(sessionCtx)
	defer func() {
		stopSession()
		<-session.Done()
	}()

	// Polling retries until both ends have subscribed.
	waitFor(t, notifications, "polled volume", func(n *core.Notification) bool {
		return n.Kind == core.NotifyVolume
	})

	if err := session.SetVolume(ctx, 55); err != nil {
		t.Fatal("Unexpected error", err)
	}
	waitFor(t, notifications, "volume 55", func(n *core.Notification) bool {
		return n.Kind == core.NotifyVolume && n.Value == 55
	})

	if err := session.SetMode(ctx, core.ModeNone); err != nil {
		t.Fatal("Unexpected error", err)
	}
	waitFor(t, notifications, "mode none", func(n *core.Notification) bool {
		return n.Kind == core.NotifyMode && n.Value == core.ModeNone
	})

	if err := session.Quit(ctx); err != nil {
		t.Fatal("Unexpected error", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Fatal("Expected Serve to stop cleanly, got", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for the device to quit")
	}
}
