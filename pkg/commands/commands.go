// Package commands implements the bot's command handlers and the default binding table.
package commands

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"aquabot/pkg/command"
	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
)

// Sender delivers a reply. Handlers must not reach the platform any other way.
type Sender interface {
	Send(ctx context.Context, text string, channel directory.ChannelRef) bool
}

// Picker chooses an index in [0, n).
type Picker func(n int) int

const (
	HelpPattern     = `(^|.*\s+)(help)(\s+|$)`
	GreetingPattern = `(^|.*\s+)(hello|hi|greeting)(\s+|$)`

	HelpUsage     = "help\tShow usage information."
	GreetingUsage = "hello|hi|greeting\tGreeting :)"
)

// Register installs the default command table on reg. help is checked before greeting.
func Register(reg *command.Registry, sender Sender, log *slog.Logger) error {
	if err := reg.Register(HelpPattern, HelpUsage, Help(reg, sender)); err != nil {
		return err
	}
	return reg.Register(GreetingPattern, GreetingUsage, Greeting(sender, nil, log))
}

// Help replies with the registry's usage text.
func Help(reg *command.Registry, sender Sender) command.Handler {
	return func(ctx context.Context, c command.Context) bool {
		if c.Channel.IsZero() {
			return false
		}
		return sender.Send(ctx, reg.Usage(), c.Channel)
	}
}

// Greeting replies to the author with one of GreetingMessages. A nil pick uses math/rand.
func Greeting(sender Sender, pick Picker, log *slog.Logger) command.Handler {
	if pick == nil {
		pick = rand.IntN
	}
	log = logger.Component(log, "commands.greeting")

	return func(ctx context.Context, c command.Context) bool {
		reply := greetingReply(c.Author.ID, GreetingMessages[pick(len(GreetingMessages))])
		log.Info("Greeting", "to", c.Author.Name, "text", reply)
		return sender.Send(ctx, reply, c.Channel)
	}
}
