package core

import (
	"encoding/json"
	"testing"
)

func TestDecodeMode(t *testing.T) {
	tests := map[int]Mode{
		0:  ModeRock,
		1:  ModeCustom,
		2:  ModeNone,
		3:  ModeUnknown,
		5:  ModeUnknown,
		-1: ModeUnknown,
	}
	for code, expected := range tests {
		if got := DecodeMode(code); got != expected {
			t.Errorf("DecodeMode(%d) = %v, expected %v", code, got, expected)
		}
	}
}

func TestModeCodeRoundTrip(t *testing.T) {
	for _, mode := range []Mode{ModeRock, ModeCustom, ModeNone} {
		code, err := mode.Code()
		if err != nil {
			t.Fatal("Unexpected error", err)
		}
		if DecodeMode(code) != mode {
			t.Errorf("Mode %v encoded as %d decodes to %v", mode, code, DecodeMode(code))
		}
	}
	if _, err := ModeUnknown.Code(); err != ErrInvalidMode {
		t.Fatal("Expected ErrInvalidMode, but got", err)
	}
}

func TestModeText(t *testing.T) {
	var mode Mode
	if err := mode.UnmarshalText([]byte("custom")); err != nil || mode != ModeCustom {
		t.Fatal("Expected custom, got", mode, err)
	}
	if err := mode.UnmarshalText([]byte("jazz")); err == nil {
		t.Fatal("Expected an error for an unknown mode")
	}

	payload, err := json.Marshal(State{Mode: ModeRock, Volume: 80, Tempo: 120, UptimeSeconds: 7})
	if err != nil {
		t.Fatal("Unexpected error", err)
	}
	expected := `{"mode":"rock","volume":80,"tempo":120,"uptimeSeconds":7}`
	if string(payload) != expected {
		t.Fatal("Expected", expected, ", but got", string(payload))
	}
}

func TestUptimeDecomposition(t *testing.T) {
	tests := []struct {
		seconds  int
		expected Uptime
		text     string
	}{
		{0, Uptime{0, 0, 0}, "0:00:00"},
		{59, Uptime{0, 0, 59}, "0:00:59"},
		{3725, Uptime{1, 2, 5}, "1:02:05"},
		{90061, Uptime{25, 1, 1}, "25:01:01"},
	}
	for _, tt := range tests {
		got := NewUptime(tt.seconds)
		if got != tt.expected || got.String() != tt.text {
			t.Errorf("NewUptime(%d) = %v (%s), expected %v (%s)", tt.seconds, got, got, tt.expected, tt.text)
		}
	}
}

func TestParseUptime(t *testing.T) {
	good := map[string]int{
		"3725 x":          3725,
		"3725":            3725,
		"  12.99   4.5\n": 12,
	}
	for payload, expected := range good {
		got, err := ParseUptime(payload)
		if err != nil || got != expected {
			t.Errorf("ParseUptime(%q) = %d, %v; expected %d", payload, got, err, expected)
		}
	}

	for _, payload := range []string{"", "   ", "abc 1", "-3 1", "NaN 0"} {
		if _, err := ParseUptime(payload); err == nil {
			t.Errorf("ParseUptime(%q) expected an error", payload)
		}
	}
}

func TestClamp(t *testing.T) {
	if ClampVolume(105) != 100 || ClampVolume(-5) != 0 || ClampVolume(55) != 55 {
		t.Fatal("Volume not clamped to [0,100]")
	}
	if ClampTempo(305) != 300 || ClampTempo(35) != 40 || ClampTempo(120) != 120 {
		t.Fatal("Tempo not clamped to [40,300]")
	}
}

func TestSoundValid(t *testing.T) {
	for _, sound := range Sounds {
		if !sound.Valid() {
			t.Error("Expected", sound, "to be valid")
		}
	}
	if Sound("cowbell").Valid() {
		t.Error("Expected cowbell to be rejected")
	}
}

func TestReplyKind(t *testing.T) {
	if (&Reply{Name: "uptime-reply"}).Kind() != ReplyUptime {
		t.Error("Expected uptime-reply to decode")
	}
	if (&Reply{Name: "Vol-Reply"}).Kind() != ReplyUnknown {
		t.Error("Expected reply names to be case-sensitive")
	}
}
