package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/ilievs/beatbox/device"
	"github.com/ilievs/beatbox/mqtt"
)

var discard = slog.New(slog.DiscardHandler)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("Failed to find a free port", err)
	}
	defer l.Close()
	return l.Addr().String()
}

// pollState fetches the device state until match accepts it.
func pollState(t *testing.T, address, deviceId string, match func(state map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		var state map[string]any
		resp, err := http.Get(fmt.Sprintf("http://%s/devices/%s/state", address, deviceId))
		if err == nil {
			if resp.StatusCode == http.StatusOK {
				_ = json.NewDecoder(resp.Body).Decode(&state)
			}
			resp.Body.Close()
		}
		if state != nil && match(state) {
			return state
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for state, last:", state, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func runApplication(t *testing.T, cfg Config) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunApplication(ctx, cfg, discard)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Error("Expected a clean shutdown, got", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("Timed out waiting for the application to stop")
		}
	})
}

func TestRunApplicationSimulated(t *testing.T) {
	httpAddr := freeAddress(t)
	runApplication(t, Config{
		Devices:     []string{"kitchen", "garage"},
		TopicPrefix: "beatbox",
		HttpAddr:    httpAddr,
		Simulate:    true,
	})

	for _, id := range []string{"kitchen", "garage"} {
		state := pollState(t, httpAddr, id, func(state map[string]any) bool {
			return state["mode"] == "rock"
		})
		if state["volume"] != float64(80) || state["tempo"] != float64(120) {
			t.Fatal("Unexpected state", state)
		}
		if _, ok := state["online"]; ok {
			t.Fatal("Expected no presence without the embedded broker", state)
		}
	}
}

func TestRunApplicationEmbeddedBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a TCP broker")
	}

	httpAddr := freeAddress(t)
	brokerAddr := freeAddress(t)
	runApplication(t, Config{
		Devices:        []string{"beatbox"},
		TopicPrefix:    "beatbox",
		HttpAddr:       httpAddr,
		EmbedBroker:    true,
		BrokerAddr:     brokerAddr,
		DevicePassword: "password1",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverUrl, _ := url.Parse("mqtt://" + brokerAddr)
	go device.Serve(ctx, device.ServeConfig{
		ServerUrl: serverUrl,
		DeviceId:  "beatbox",
		Password:  "password1",
		Topics:    mqtt.NewTopics("beatbox", "beatbox"),
		Logger:    discard,
	}, device.NewBeatbox())

	pollState(t, httpAddr, "beatbox", func(state map[string]any) bool {
		return state["online"] == true && state["mode"] == "rock"
	})

	resp, err := http.Post(fmt.Sprintf("http://%s/devices/beatbox/volume/up", httpAddr), "", nil)
	if err != nil {
		t.Fatal("Unexpected error", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatal("Unexpected status", resp.StatusCode)
	}

	pollState(t, httpAddr, "beatbox", func(state map[string]any) bool {
		return state["volume"] == float64(85)
	})
}
