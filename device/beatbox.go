package device

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ilievs/beatbox/core"
)

const beatCount = 3

// Beatbox simulates the drum machine's side of the protocol: it applies
// commands to its own state and answers with the matching reply.
type Beatbox struct {
	mutex    sync.Mutex
	beat     int
	volume   int
	tempo    int
	started  time.Time
	played   []core.Sound
	quit     chan struct{}
	quitOnce sync.Once
}

func NewBeatbox() *Beatbox {
	return &Beatbox{
		beat:    0,
		volume:  core.DefaultVolume,
		tempo:   core.DefaultTempo,
		started: time.Now(),
		quit:    make(chan struct{}),
	}
}

// Quit is closed once a quit command has been handled.
func (b *Beatbox) Quit() <-chan struct{} {
	return b.quit
}

// Played returns the sounds triggered so far, oldest first.
func (b *Beatbox) Played() []core.Sound {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]core.Sound(nil), b.played...)
}

// Handle applies command and returns the reply to send back, or nil when the
// command has no reply.
func (b *Beatbox) Handle(command *core.Command) *core.Reply {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch command.Name {
	case core.CommandVolume:
		return b.setOrGet(command, &b.volume, core.MinVolume, core.MaxVolume, core.ReplyNameVolume)

	case core.CommandTempo:
		return b.setOrGet(command, &b.tempo, core.MinTempo, core.MaxTempo, core.ReplyNameTempo)

	case core.CommandBeat:
		return b.setOrGet(command, &b.beat, 0, beatCount-1, core.ReplyNameBeat)

	case core.CommandPlay:
		sound := core.Sound(command.Argument)
		if !sound.Valid() {
			return errorReply("unknown sound %q", command.Argument)
		}
		b.played = append(b.played, sound)
		return &core.Reply{Name: core.ReplyNamePlay, Payload: string(sound)}

	case core.CommandReadUptime:
		seconds := time.Since(b.started).Seconds()
		return &core.Reply{
			Name:    core.ReplyNameUptime,
			Payload: fmt.Sprintf("%.2f %.2f", seconds, seconds),
		}

	case core.CommandQuit:
		b.quitOnce.Do(func() {
			close(b.quit)
		})
		return nil

	default:
		return errorReply("unknown command %q", command.Name)
	}
}

// setOrGet stores the clamped argument in value unless the argument is the
// query sentinel, then reports the current value.
func (b *Beatbox) setOrGet(command *core.Command, value *int, lo, hi int, reply string) *core.Reply {
	arg := strings.TrimSpace(command.Argument)
	if arg != core.QueryArgument {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return errorReply("%s: invalid argument %q", command.Name, command.Argument)
		}
		*value = min(max(v, lo), hi)
	}
	return &core.Reply{Name: reply, Payload: strconv.Itoa(*value)}
}

func errorReply(format string, args ...any) *core.Reply {
	return &core.Reply{Name: core.ReplyNameError, Payload: fmt.Sprintf(format, args...)}
}
