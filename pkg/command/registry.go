// Package command holds the ordered pattern table that routes addressed messages to handlers.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
)

// Context is what a handler sees of one addressed message. Handlers must not modify it.
type Context struct {
	Author   directory.UserRef
	Channel  directory.ChannelRef
	Mentions []string
	Words    []string
	RawText  string
}

// Handler runs one command and reports whether it succeeded.
//
// Handlers run synchronously on the message loop and are expected to return
// quickly; nothing enforces a timeout.
type Handler func(ctx context.Context, c Context) bool

// Binding pairs a start-anchored pattern with its handler.
type Binding struct {
	Pattern *regexp.Regexp
	Handler Handler
	Usage   string
}

// Registry is the ordered binding table. Earlier bindings take priority.
//
// A Registry is built once at startup and only read afterwards.
type Registry struct {
	bindings []Binding
	log      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: logger.Component(log, "command.registry")}
}

// Register appends a binding. pattern is matched against the start of the raw text.
func (r *Registry) Register(pattern string, usage string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("register %q: handler is required", pattern)
	}

	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return fmt.Errorf("register %q: %w", pattern, err)
	}

	r.bindings = append(r.bindings, Binding{
		Pattern: re,
		Handler: handler,
		Usage:   strings.TrimSpace(usage),
	})
	return nil
}

// MustRegister is Register for static tables; it panics on an invalid pattern.
func (r *Registry) MustRegister(pattern string, usage string, handler Handler) {
	if err := r.Register(pattern, usage, handler); err != nil {
		panic(err)
	}
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	return len(r.bindings)
}

// Bindings returns a copy of the binding table in priority order.
func (r *Registry) Bindings() []Binding {
	return append([]Binding(nil), r.bindings...)
}

// Dispatch runs the first binding whose pattern matches c.RawText.
//
// No match is not a failure and returns true. A handler returning false is
// logged and passed through.
func (r *Registry) Dispatch(ctx context.Context, c Context) bool {
	for _, binding := range r.bindings {
		groups := binding.Pattern.FindStringSubmatch(c.RawText)
		if groups == nil {
			continue
		}

		r.log.Info("Command matched",
			"pattern", binding.Pattern.String(),
			"groups", groups[1:],
			"user", c.Author.Name,
			"channel", c.Channel.Name,
		)

		if ok := binding.Handler(ctx, c); !ok {
			r.log.Warn("Command handler failed",
				"pattern", binding.Pattern.String(),
				"user_id", c.Author.ID,
				"channel_id", c.Channel.ID,
			)
			return false
		}
		return true
	}

	r.log.Debug("No command matched", "user_id", c.Author.ID, "channel_id", c.Channel.ID)
	return true
}
