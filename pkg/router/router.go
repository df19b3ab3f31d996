// Package router turns inbound Slack events into command dispatches.
package router

import (
	"context"
	"log/slog"

	"aquabot/pkg/bus"
	"aquabot/pkg/command"
	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
	"aquabot/pkg/parser"
)

// Identity is the bot's own user, resolved once after connecting.
type Identity struct {
	ID   string
	Name string
}

// Dispatcher runs the command table against an addressed message.
type Dispatcher interface {
	Dispatch(ctx context.Context, c command.Context) bool
}

// Router filters events, detects whether the bot is addressed, and dispatches.
type Router struct {
	self      Identity
	directory directory.Service
	commands  Dispatcher
	bus       *bus.MessageBus
	log       *slog.Logger
}

// New builds a router for the given bot identity. events may be nil.
func New(self Identity, dir directory.Service, commands Dispatcher, events *bus.MessageBus, log *slog.Logger) *Router {
	return &Router{
		self:      self,
		directory: dir,
		commands:  commands,
		bus:       events,
		log:       logger.Component(log, "router"),
	}
}

// Self returns the bot identity the router filters against.
func (r *Router) Self() Identity {
	return r.self
}

// HandleEvent processes one event. It returns false only for event types the
// router does not handle; everything else, including ignored messages, is true.
func (r *Router) HandleEvent(ctx context.Context, evt bus.InboundEvent) bool {
	if evt.Type != bus.EventTypeMessage {
		return false
	}

	r.log.Debug("Inbound payload", "event_id", evt.ID, "payload", evt)

	msg, ok := Normalize(evt)
	if !ok || msg.Text == "" {
		return true
	}

	if msg.AuthorID == r.self.ID {
		r.log.Debug("Message from bot itself", "event_id", evt.ID, "text", msg.Text)
		return true
	}

	r.bus.PublishEvent(ctx, bus.Event{
		Type:      bus.EventMessageReceived,
		EventID:   evt.ID,
		ChannelID: msg.ChannelID,
		UserID:    msg.AuthorID,
	})

	author, ok := r.directory.FindUser(ctx, msg.AuthorID)
	if !ok {
		author = directory.UserRef{ID: msg.AuthorID}
	}
	channel, _ := r.directory.FindChannel(ctx, msg.ChannelID)

	parsed := parser.Parse(msg.Text, r.self.ID)
	addressed := parsed.BotMentioned

	attrs := []any{
		"event_id", evt.ID,
		"channel", channel.Name,
		"channel_id", msg.ChannelID,
		"user", author.Name,
		"user_id", msg.AuthorID,
		"edited", msg.IsEdit,
		"text", msg.Text,
	}
	if parser.IsDirectMessage(channel.Name, msg.ChannelID, msg.AuthorID) {
		addressed = true
		r.log.Info("[DM]", attrs...)
	} else {
		r.log.Info("[Channel]", attrs...)
	}

	if !addressed {
		return true
	}

	r.commands.Dispatch(ctx, command.Context{
		Author:   author,
		Channel:  channel,
		Mentions: parsed.MentionIDs,
		Words:    parsed.Words,
		RawText:  msg.Text,
	})

	r.bus.PublishEvent(ctx, bus.Event{
		Type:      bus.EventMessageDispatched,
		EventID:   evt.ID,
		ChannelID: msg.ChannelID,
		UserID:    msg.AuthorID,
	})

	return true
}
