package web

import (
	"sync"
	"time"

	"github.com/ilievs/beatbox/core"
)

// ErrorBox holds the one error currently on display. Showing a new error
// replaces the old one and restarts the hide timer.
type ErrorBox struct {
	mutex      sync.Mutex
	hideAfter  time.Duration
	message    string
	visible    bool
	timer      *time.Timer
	generation uint64
}

func NewErrorBox(hideAfter time.Duration) *ErrorBox {
	return &ErrorBox{hideAfter: hideAfter}
}

func (b *ErrorBox) Show(message string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.message = message
	b.visible = true
	b.generation++
	gen := b.generation
	b.timer = time.AfterFunc(b.hideAfter, func() {
		b.hide(gen)
	})
}

func (b *ErrorBox) hide(gen uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	// a newer error owns the box now
	if gen != b.generation {
		return
	}
	b.visible = false
	b.timer = nil
}

// Current returns the displayed message, if any.
func (b *ErrorBox) Current() (string, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if !b.visible {
		return "", false
	}
	return b.message, true
}

// Watch shows every error notification until the channel is closed.
func (b *ErrorBox) Watch(notifications <-chan *core.Notification) {
	for n := range notifications {
		if n.Kind != core.NotifyError {
			continue
		}
		if message, ok := n.Value.(string); ok {
			b.Show(message)
		}
	}
	b.Stop()
}

func (b *ErrorBox) Stop() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.generation++
}
