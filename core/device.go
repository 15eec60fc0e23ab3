package core

import "fmt"

// Outbound command names understood by the beatbox.
const (
	CommandReadUptime = "read-uptime"
	CommandVolume     = "vol"
	CommandBeat       = "beat"
	CommandTempo      = "bpm"
	CommandPlay       = "play"
	CommandQuit       = "quit"
)

// Inbound reply names sent by the beatbox.
const (
	ReplyNameVolume = "vol-reply"
	ReplyNameTempo  = "bpm-reply"
	ReplyNameBeat   = "beat-reply"
	ReplyNamePlay   = "play-reply"
	ReplyNameUptime = "uptime-reply"
	ReplyNameError  = "beatbox-error"
)

// QueryArgument asks the device to report a value without changing it.
const QueryArgument = "-1"

type Command struct {
	Name     string `json:"name"`
	Argument string `json:"arg,omitempty"`
}

func (c *Command) String() string {
	if c.Argument == "" {
		return c.Name
	}
	return c.Name + " " + c.Argument
}

func QueryCommand(name string) *Command {
	return &Command{Name: name, Argument: QueryArgument}
}

type Reply struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
}

// ReplyKind is the decoded form of a reply name.
type ReplyKind int

const (
	ReplyUnknown ReplyKind = iota
	ReplyVolume
	ReplyTempo
	ReplyBeat
	ReplyPlay
	ReplyUptime
	ReplyError
)

var replyKindsByName = map[string]ReplyKind{
	ReplyNameVolume: ReplyVolume,
	ReplyNameTempo:  ReplyTempo,
	ReplyNameBeat:   ReplyBeat,
	ReplyNamePlay:   ReplyPlay,
	ReplyNameUptime: ReplyUptime,
	ReplyNameError:  ReplyError,
}

func (r *Reply) Kind() ReplyKind {
	return replyKindsByName[r.Name]
}

// Mode is the beat pattern the device is playing.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeRock
	ModeCustom
	ModeNone
)

var modeNames = map[Mode]string{
	ModeUnknown: "unknown",
	ModeRock:    "rock",
	ModeCustom:  "custom",
	ModeNone:    "none",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return modeNames[ModeUnknown]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	for mode, name := range modeNames {
		if name == string(text) {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// DecodeMode maps the device's beat number to a Mode. Numbers outside the
// known range map to ModeUnknown.
func DecodeMode(code int) Mode {
	switch code {
	case 0:
		return ModeRock
	case 1:
		return ModeCustom
	case 2:
		return ModeNone
	default:
		return ModeUnknown
	}
}

// Code returns the beat number the device expects for m.
func (m Mode) Code() (int, error) {
	switch m {
	case ModeRock:
		return 0, nil
	case ModeCustom:
		return 1, nil
	case ModeNone:
		return 2, nil
	default:
		return 0, ErrInvalidMode
	}
}

// Sound is a single drum sample the device can play on demand.
type Sound string

const (
	SoundHiHat      Sound = "hi_hat"
	SoundSnare      Sound = "snare"
	SoundBaseDrum   Sound = "base_drum"
	SoundCymbalHard Sound = "cyn_hard"
	SoundSplashHard Sound = "splash_hard"
	SoundTomHiHard  Sound = "tom_hi_hard"
)

var Sounds = []Sound{
	SoundHiHat,
	SoundSnare,
	SoundBaseDrum,
	SoundCymbalHard,
	SoundSplashHard,
	SoundTomHiHard,
}

func (s Sound) Valid() bool {
	for _, known := range Sounds {
		if s == known {
			return true
		}
	}
	return false
}

// State mirrors what the device last reported about itself.
type State struct {
	Mode          Mode `json:"mode"`
	Volume        int  `json:"volume"`
	Tempo         int  `json:"tempo"`
	UptimeSeconds int  `json:"uptimeSeconds"`
}

func DefaultState() State {
	return State{
		Mode:   ModeUnknown,
		Volume: DefaultVolume,
		Tempo:  DefaultTempo,
	}
}

func (s State) Uptime() Uptime {
	return NewUptime(s.UptimeSeconds)
}

type Uptime struct {
	Hours   int
	Minutes int
	Seconds int
}

func NewUptime(seconds int) Uptime {
	return Uptime{
		Hours:   seconds / 3600,
		Minutes: (seconds / 60) % 60,
		Seconds: seconds % 60,
	}
}

func (u Uptime) String() string {
	return fmt.Sprintf("%d:%02d:%02d", u.Hours, u.Minutes, u.Seconds)
}
