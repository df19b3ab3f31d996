// Package outbound is the single path by which the bot posts messages.
package outbound

import (
	"context"
	"log/slog"

	"aquabot/pkg/bus"
	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
)

// Poster performs the platform post-message call.
type Poster interface {
	PostMessage(ctx context.Context, channelID string, text string) error
}

// Policy decides whether a channel accepts replies.
type Policy interface {
	IsReadonly(ch directory.ChannelRef) bool
}

// Gateway checks channel policy before every post.
type Gateway struct {
	policy Policy
	poster Poster
	bus    *bus.MessageBus
	log    *slog.Logger
}

// New builds a gateway. events may be nil.
func New(policy Policy, poster Poster, events *bus.MessageBus, log *slog.Logger) *Gateway {
	return &Gateway{
		policy: policy,
		poster: poster,
		bus:    events,
		log:    logger.Component(log, "outbound"),
	}
}

// Send posts text to channel and reports whether the platform accepted it.
//
// A read-only channel and a platform failure both return false; only the
// logs tell them apart.
func (g *Gateway) Send(ctx context.Context, text string, channel directory.ChannelRef) bool {
	if g.policy != nil && g.policy.IsReadonly(channel) {
		g.log.Info("Reply suppressed by channel policy", "channel", channel.Name, "channel_id", channel.ID)
		g.publish(ctx, bus.EventReplySuppressed, channel, "")
		return false
	}

	if channel.ID == "" {
		g.log.Warn("Reply has no target channel", "channel", channel.Name)
		g.publish(ctx, bus.EventReplyFailed, channel, "unresolved channel")
		return false
	}

	if err := g.poster.PostMessage(ctx, channel.ID, text); err != nil {
		g.log.Error("Sending message failed", "channel", channel.Name, "channel_id", channel.ID, "error", err)
		g.publish(ctx, bus.EventReplyFailed, channel, err.Error())
		return false
	}

	g.log.Debug("Message sent", "channel", channel.Name, "channel_id", channel.ID)
	g.publish(ctx, bus.EventReplySent, channel, "")
	return true
}

func (g *Gateway) publish(ctx context.Context, eventType bus.EventType, channel directory.ChannelRef, errText string) {
	g.bus.PublishEvent(ctx, bus.Event{
		Type:      eventType,
		ChannelID: channel.ID,
		Error:     errText,
	})
}
