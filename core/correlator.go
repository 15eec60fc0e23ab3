package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var errOutOfRange = errors.New("value out of range")

// handleReply applies one reply to the mirrored state. Any reply at all is
// proof that the device is alive, so the liveness monitor is cleared before
// the payload is even looked at.
func (s *Session) handleReply(reply *Reply) {
	s.liveness.Clear()
	s.logger.Debug("received reply", "reply", reply.Name, "payload", reply.Payload)

	switch reply.Kind() {
	case ReplyVolume:
		volume, err := parseInt(reply, MinVolume, MaxVolume)
		if err != nil {
			s.dropMalformed(err)
			return
		}
		s.state.Volume = volume
		s.stateChanged(NotifyVolume, volume)

	case ReplyTempo:
		tempo, err := parseInt(reply, MinTempo, MaxTempo)
		if err != nil {
			s.dropMalformed(err)
			return
		}
		s.state.Tempo = tempo
		s.stateChanged(NotifyTempo, tempo)

	case ReplyBeat:
		code, err := parseInt(reply, math.MinInt, math.MaxInt)
		if err != nil {
			s.dropMalformed(err)
			return
		}
		s.state.Mode = DecodeMode(code)
		s.stateChanged(NotifyMode, s.state.Mode)

	case ReplyPlay:
		// liveness pulse only

	case ReplyUptime:
		seconds, err := ParseUptime(reply.Payload)
		if err != nil {
			s.dropMalformed(&ParseError{Reply: reply.Name, Payload: reply.Payload, Err: err})
			return
		}
		s.state.UptimeSeconds = seconds
		s.stateChanged(NotifyUptime, NewUptime(seconds).String())

	case ReplyError:
		s.logger.Warn("device reported an error", "message", reply.Payload)
		s.notifier.publishError(&DeviceError{Message: reply.Payload})

	case ReplyUnknown:
		s.logger.Warn("ignoring unknown reply", "reply", reply.Name)
	}
}

func (s *Session) stateChanged(kind NotificationKind, value any) {
	s.publishSnapshot()
	s.notifier.Publish(&Notification{Kind: kind, Value: value})
}

func (s *Session) dropMalformed(err error) {
	s.logger.Warn("dropping malformed reply", "error", err)
}

func parseInt(reply *Reply, lo, hi int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(reply.Payload))
	if err != nil {
		return 0, &ParseError{Reply: reply.Name, Payload: reply.Payload, Err: err}
	}
	if v < lo || v > hi {
		return 0, &ParseError{Reply: reply.Name, Payload: reply.Payload, Err: errOutOfRange}
	}
	return v, nil
}

// ParseUptime reads the seconds from an uptime payload of the form
// "<seconds> <extra>". Fractional seconds are truncated.
func ParseUptime(payload string) (int, error) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return 0, errors.New("empty uptime")
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	if seconds < 0 || math.IsNaN(seconds) || seconds > math.MaxInt32 {
		return 0, errOutOfRange
	}
	return int(seconds), nil
}
