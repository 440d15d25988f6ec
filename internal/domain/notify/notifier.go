package notify

import "context"

// Notifier delivers formatted text to a recipient over a messaging channel.
// Send is one call per message part, no implicit batching. Implementations
// own the channel-specific recipient address format, exposed through
// ValidateAddress so enrollment can reject malformed addresses up front.
type Notifier interface {
	Send(ctx context.Context, address, text string) error
	ValidateAddress(address string) error
}
