package core

import (
	"testing"
	"testing/synctest"
	"time"
)

func TestLivenessArmIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := NewLivenessMonitor(time.Second)
		defer m.Stop()

		if !m.Arm() {
			t.Fatal("Expected first Arm to start a timer")
		}
		if m.Arm() {
			t.Fatal("Expected second Arm to be a no-op")
		}

		gen := <-m.Expired()
		if !m.Expire(gen) {
			t.Fatal("Expected the armed timer's token to be current")
		}
		if m.Armed() {
			t.Fatal("Expected the monitor to be idle after expiry")
		}

		select {
		case extra := <-m.Expired():
			t.Fatal("Expected a single timer, got a second token", extra)
		case <-time.After(5 * time.Second):
		}
	})
}

func TestLivenessStaleTokenIgnored(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := NewLivenessMonitor(time.Second)
		defer m.Stop()

		m.Arm()
		time.Sleep(2 * time.Second)
		synctest.Wait()

		// The timer already fired and is waiting to hand over its token, but
		// a reply cleared the monitor and a new command re-armed it first.
		m.Clear()
		m.Arm()

		stale := <-m.Expired()
		if m.Expire(stale) {
			t.Fatal("Expected the stale token to be ignored")
		}
		if !m.Armed() {
			t.Fatal("Expected the new timer to stay armed")
		}

		current := <-m.Expired()
		if !m.Expire(current) {
			t.Fatal("Expected the current token to expire the monitor")
		}
	})
}

func TestLivenessStopReleasesTimer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := NewLivenessMonitor(time.Second)
		m.Arm()
		time.Sleep(2 * time.Second)
		// The callback is blocked handing over its token; Stop must free it
		// or the bubble would never drain.
		m.Stop()
		m.Stop()
	})
}
