package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	LivenessWindow = 1000 * time.Millisecond
	PollPeriod     = 1000 * time.Millisecond
	ErrorAutoHide  = 5000 * time.Millisecond
	DefaultVolume  = 80
	DefaultTempo   = 120
	VolumeStep     = 5
	TempoStep      = 5
	MinVolume      = 0
	MaxVolume      = 100
	MinTempo       = 40
	MaxTempo       = 300
)

// Session is the client side of the command/reply protocol for one device.
//
// All protocol state (the mirrored device state and the liveness flag) is
// owned by the goroutine running Run. Everything else talks to it through
// channels, so none of that state needs a lock.
type Session struct {
	id        string
	transport Transport
	notifier  *Notifier
	liveness  *LivenessMonitor
	poller    *Poller
	logger    *slog.Logger

	state    State
	snapshot atomic.Pointer[State]

	intents chan func(ctx context.Context)
	done    chan struct{}
	started atomic.Bool
}

type SessionOption func(*Session)

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithLivenessWindow(window time.Duration) SessionOption {
	return func(s *Session) {
		s.liveness = NewLivenessMonitor(window)
	}
}

func WithPoller(poller *Poller) SessionOption {
	return func(s *Session) {
		s.poller = poller
	}
}

func NewSession(id string, transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		transport: transport,
		liveness:  NewLivenessMonitor(LivenessWindow),
		poller:    NewPoller(PollPeriod, DefaultQueries()...),
		logger:    slog.Default(),
		state:     DefaultState(),
		intents:   make(chan func(ctx context.Context)),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("device", id)
	s.notifier = NewNotifier(s.logger)
	s.publishSnapshot()
	return s
}

func (s *Session) Id() string {
	return s.id
}

// Snapshot returns a copy of the mirrored device state.
func (s *Session) Snapshot() State {
	return *s.snapshot.Load()
}

func (s *Session) Subscribe() (<-chan *Notification, func()) {
	return s.notifier.Subscribe()
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run drives the session until ctx is cancelled. It may only be called once.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	defer close(s.done)
	defer s.liveness.Stop()

	replies, err := s.transport.SubscribeToReplies()
	if err != nil {
		return err
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	var pollers sync.WaitGroup
	pollers.Add(1)
	go func() {
		defer pollers.Done()
		s.poller.Run(pollCtx, s.Send)
	}()
	defer func() {
		stopPolling()
		pollers.Wait()
	}()

	s.logger.Info("session started")
	for _, query := range InitialQueries() {
		s.dispatch(ctx, query)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopped")
			return nil

		case intent := <-s.intents:
			intent(ctx)

		case reply, ok := <-replies:
			if !ok {
				s.logger.Warn("transport closed the reply stream")
				replies = nil
				continue
			}
			s.handleReply(reply)

		case gen := <-s.liveness.Expired():
			if s.liveness.Expire(gen) {
				s.logger.Warn("no reply from device within liveness window")
				s.notifier.publishError(ErrDeviceUnresponsive)
			}
		}
	}
}

// do runs intent on the session goroutine.
func (s *Session) do(ctx context.Context, intent func(ctx context.Context)) error {
	select {
	case s.intents <- intent:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) publishSnapshot() {
	snapshot := s.state
	s.snapshot.Store(&snapshot)
}
