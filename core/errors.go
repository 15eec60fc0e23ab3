package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnresponsive is reported when no reply of any kind arrived
	// within the liveness window after a command was sent.
	ErrDeviceUnresponsive = errors.New("unable to communicate with the beatbox: no reply from device. Is it running?")
	ErrInvalidMode        = errors.New("invalid beat mode")
	ErrSessionClosed      = errors.New("session is closed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session already exists")
)

// DeviceError is an error the beatbox reported about itself.
type DeviceError struct {
	Message string
}

func (e *DeviceError) Error() string {
	return e.Message
}

// ParseError describes a reply whose payload could not be decoded. These are
// logged and dropped; they never reach the user.
type ParseError struct {
	Reply   string
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s payload %q: %v", e.Reply, e.Payload, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
