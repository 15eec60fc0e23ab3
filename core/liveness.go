package core

import (
	"sync"
	"time"
)

// LivenessMonitor is the single shared "awaiting any reply" timer.
//
// It is owned by one goroutine (the session loop): Arm, Clear and Expire
// must all be called from that goroutine. The timer itself only posts an
// expiry token on Expired(); the owner hands the token back to Expire so
// that a token raced by a Clear is recognised as stale and ignored.
type LivenessMonitor struct {
	window     time.Duration
	timer      *time.Timer
	generation uint64
	expired    chan uint64
	done       chan struct{}
	stopOnce   sync.Once
}

func NewLivenessMonitor(window time.Duration) *LivenessMonitor {
	return &LivenessMonitor{
		window:  window,
		expired: make(chan uint64),
		done:    make(chan struct{}),
	}
}

func (m *LivenessMonitor) Armed() bool {
	return m.timer != nil
}

// Arm starts the timer unless one is already running. It reports whether a
// new timer was started.
func (m *LivenessMonitor) Arm() bool {
	if m.timer != nil {
		return false
	}

	m.generation++
	gen := m.generation
	m.timer = time.AfterFunc(m.window, func() {
		select {
		case m.expired <- gen:
		case <-m.done:
		}
	})
	return true
}

// Clear cancels a running timer. It is a no-op when idle.
func (m *LivenessMonitor) Clear() {
	if m.timer == nil {
		return
	}
	m.timer.Stop()
	m.timer = nil
}

func (m *LivenessMonitor) Expired() <-chan uint64 {
	return m.expired
}

// Expire consumes a token received from Expired. It returns true, and moves
// the monitor back to idle, only if the token belongs to the timer that is
// currently armed.
func (m *LivenessMonitor) Expire(gen uint64) bool {
	if m.timer == nil || gen != m.generation {
		return false
	}
	m.timer = nil
	return true
}

// Stop cancels the timer and releases any pending timer callback.
func (m *LivenessMonitor) Stop() {
	m.stopOnce.Do(func() {
		m.Clear()
		close(m.done)
	})
}
