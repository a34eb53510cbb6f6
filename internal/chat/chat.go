// Package chat defines the transport-agnostic messaging contract and the
// dispatcher that serializes inbound messages per sender.
package chat

import "context"

// Sender delivers outbound text to a chat destination. Implementations wrap
// whatever transport the deployment uses; delivery failures are logged by
// callers and never fatal.
type Sender interface {
	// Send delivers text to a destination identity.
	Send(ctx context.Context, destination, text string) error
	// Connected reports whether the transport can currently deliver.
	Connected() bool
}

// Handler processes one inbound message and returns the reply to send, or
// an empty string for no reply.
type Handler interface {
	HandleMessage(ctx context.Context, senderID, text string) string
}
