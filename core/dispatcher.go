package core

import (
	"context"
	"fmt"
	"strconv"
)

// dispatch sends command right away and arms the liveness monitor if it is
// idle. Must run on the session goroutine.
func (s *Session) dispatch(ctx context.Context, command *Command) {
	if s.liveness.Arm() {
		s.logger.Debug("liveness monitor armed", "command", command.Name)
	}

	s.logger.Debug("sending command", "command", command.String())
	if err := s.transport.Emit(ctx, command); err != nil {
		s.logger.Error("failed to send command", "command", command.String(), "error", err)
		s.notifier.publishError(fmt.Errorf("send %s: %w", command.Name, err))
	}
}

// Send dispatches command as-is. The argument is passed through untouched.
func (s *Session) Send(ctx context.Context, command *Command) error {
	return s.do(ctx, func(loopCtx context.Context) {
		s.dispatch(loopCtx, command)
	})
}

func ClampVolume(volume int) int {
	return clamp(volume, MinVolume, MaxVolume)
}

func ClampTempo(tempo int) int {
	return clamp(tempo, MinTempo, MaxTempo)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func VolumeCommand(volume int) *Command {
	return &Command{Name: CommandVolume, Argument: strconv.Itoa(ClampVolume(volume))}
}

func TempoCommand(tempo int) *Command {
	return &Command{Name: CommandTempo, Argument: strconv.Itoa(ClampTempo(tempo))}
}

func ModeCommand(mode Mode) (*Command, error) {
	code, err := mode.Code()
	if err != nil {
		return nil, err
	}
	return &Command{Name: CommandBeat, Argument: strconv.Itoa(code)}, nil
}

func PlayCommand(sound Sound) *Command {
	return &Command{Name: CommandPlay, Argument: string(sound)}
}

// adjust computes a command from the mirrored state on the session goroutine,
// so steps are always relative to the latest reply.
func (s *Session) adjust(ctx context.Context, build func(state State) *Command) error {
	return s.do(ctx, func(loopCtx context.Context) {
		s.dispatch(loopCtx, build(s.state))
	})
}

func (s *Session) VolumeUp(ctx context.Context) error {
	return s.adjust(ctx, func(state State) *Command {
		return VolumeCommand(state.Volume + VolumeStep)
	})
}

func (s *Session) VolumeDown(ctx context.Context) error {
	return s.adjust(ctx, func(state State) *Command {
		return VolumeCommand(state.Volume - VolumeStep)
	})
}

func (s *Session) SetVolume(ctx context.Context, volume int) error {
	return s.Send(ctx, VolumeCommand(volume))
}

func (s *Session) TempoUp(ctx context.Context) error {
	return s.adjust(ctx, func(state State) *Command {
		return TempoCommand(state.Tempo + TempoStep)
	})
}

func (s *Session) TempoDown(ctx context.Context) error {
	return s.adjust(ctx, func(state State) *Command {
		return TempoCommand(state.Tempo - TempoStep)
	})
}

func (s *Session) SetTempo(ctx context.Context, tempo int) error {
	return s.Send(ctx, TempoCommand(tempo))
}

func (s *Session) SetMode(ctx context.Context, mode Mode) error {
	command, err := ModeCommand(mode)
	if err != nil {
		return err
	}
	return s.Send(ctx, command)
}

func (s *Session) Play(ctx context.Context, sound Sound) error {
	return s.Send(ctx, PlayCommand(sound))
}

func (s *Session) ReadUptime(ctx context.Context) error {
	return s.Send(ctx, &Command{Name: CommandReadUptime})
}

func (s *Session) Quit(ctx context.Context) error {
	return s.Send(ctx, &Command{Name: CommandQuit, Argument: "0"})
}
