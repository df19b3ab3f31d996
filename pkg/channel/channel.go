package channel

import (
	"context"

	"aquabot/pkg/bus"
	"aquabot/pkg/directory"
)

// Sink accepts inbound events from a transport. *bus.MessageBus implements it.
type Sink interface {
	PublishInbound(ctx context.Context, evt bus.InboundEvent) bool
}

// Adapter bridges one external transport (Slack socket mode) into the bot.
type Adapter interface {
	Name() string
	// Connect performs the handshake and returns the bot's own user.
	Connect(ctx context.Context) (directory.UserRef, error)
	// Run forwards events to sink until ctx is cancelled or the connection is lost.
	Run(ctx context.Context, sink Sink) error
}
