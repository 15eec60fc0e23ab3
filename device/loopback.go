package device

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/ilievs/beatbox/core"
)

// Loopback is an in-process core.Transport wired straight to a Beatbox.
// It stands in for the broker during development and tests.
type Loopback struct {
	beatbox *Beatbox
	logger  *slog.Logger
	replies chan *core.Reply
	muted   atomic.Bool
}

func NewLoopback(beatbox *Beatbox, logger *slog.Logger) *Loopback {
	return &Loopback{
		beatbox: beatbox,
		logger:  logger,
		replies: make(chan *core.Reply, 64),
	}
}

// Mute makes the simulated device swallow commands without answering.
func (l *Loopback) Mute(muted bool) {
	l.muted.Store(muted)
}

func (l *Loopback) Emit(ctx context.Context, command *core.Command) error {
	if l.muted.Load() {
		return nil
	}
	reply := l.beatbox.Handle(command)
	if reply == nil {
		return nil
	}
	select {
	case l.replies <- reply:
	default:
		l.logger.Warn("loopback reply buffer full, dropping reply", "reply", reply.Name)
	}
	return nil
}

func (l *Loopback) SubscribeToReplies() (<-chan *core.Reply, error) {
	return l.replies, nil
}
