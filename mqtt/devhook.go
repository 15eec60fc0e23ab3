package mqtt

import (
	"bytes"
	"log/slog"
	"slices"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

type HookOptions struct {
	DeviceIds []string
	Logger    *slog.Logger
}

// PresenceHook tracks which of the known devices currently have a session
// on the embedded broker. Devices log in with their id as username.
type PresenceHook struct {
	mochi.HookBase
	deviceIds   []string
	logger      *slog.Logger
	onlineMutex sync.RWMutex
	online      map[string]bool
}

// ID returns the ID of the hook.
func (h *PresenceHook) ID() string {
	return "PresenceHook"
}

// Provides indicates which methods a hook provides.
func (h *PresenceHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mochi.OnSessionEstablished,
		mochi.OnDisconnect,
	}, []byte{b})
}

// Init performs any pre-start initializations for the hook.
func (h *PresenceHook) Init(config any) error {
	if _, ok := config.(*HookOptions); !ok && config != nil {
		return mochi.ErrInvalidConfigType
	}

	if config == nil {
		config = new(HookOptions)
	}

	opt := config.(*HookOptions)
	h.deviceIds = opt.DeviceIds
	h.logger = opt.Logger
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.online = make(map[string]bool)

	return nil
}

func (h *PresenceHook) deviceId(cl *mochi.Client) (string, bool) {
	id := string(cl.Properties.Username)
	return id, slices.Contains(h.deviceIds, id)
}

// OnSessionEstablished is called when a new client establishes a session (after OnConnect).
func (h *PresenceHook) OnSessionEstablished(cl *mochi.Client, pk packets.Packet) {
	id, ok := h.deviceId(cl)
	if !ok {
		return
	}
	h.onlineMutex.Lock()
	h.online[id] = true
	h.onlineMutex.Unlock()
	h.logger.Info("device connected", "device", id, "client", cl.ID)
}

// OnDisconnect is called when a client is disconnected for any reason.
func (h *PresenceHook) OnDisconnect(cl *mochi.Client, err error, expire bool) {
	id, ok := h.deviceId(cl)
	if !ok {
		return
	}
	h.onlineMutex.Lock()
	delete(h.online, id)
	h.onlineMutex.Unlock()
	h.logger.Info("device disconnected", "device", id, "client", cl.ID, "error", err)
}

func (h *PresenceHook) Online(deviceId string) bool {
	h.onlineMutex.RLock()
	defer h.onlineMutex.RUnlock()
	return h.online[deviceId]
}
