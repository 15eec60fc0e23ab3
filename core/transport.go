package core

import "context"

// Transport is the duplex named-event channel between the client and one
// device. Implementations are expected to reconnect on their own; Emit is
// fire-and-forget and never waits for the device to answer.
type Transport interface {
	Emit(ctx context.Context, command *Command) error
	SubscribeToReplies() (<-chan *Reply, error)
}
