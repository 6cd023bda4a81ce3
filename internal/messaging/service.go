// Package messaging connects text messaging channels to SGGuide sessions.
package messaging

import (
	"context"
	"errors"
	"time"
)

// Constants for channel-based services
const (
	// DefaultChannelBufferSize defines the default buffer size for the inbound message channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned by services after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

// InboundMessage is a message received from a user.
type InboundMessage struct {
	From string
	Body string
	Time time.Time
}

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing.
	Start(ctx context.Context) error

	// Stop stops background processing and closes Responses.
	Stop() error

	// Responses returns a channel of incoming user messages.
	Responses() <-chan InboundMessage
}
