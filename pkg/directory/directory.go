// Package directory resolves opaque user and channel identifiers to display names.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"aquabot/pkg/logger"
)

// ErrNotFound is returned by a Backend when a query matches nothing.
var ErrNotFound = errors.New("not found")

// UserRef is a resolved user. The zero value stands for an unresolved user.
type UserRef struct {
	ID   string
	Name string
}

// ChannelRef is a resolved channel. The zero value stands for an unresolved channel.
type ChannelRef struct {
	ID   string
	Name string
}

// IsZero reports whether the user could not be resolved.
func (u UserRef) IsZero() bool { return u == UserRef{} }

// IsZero reports whether the channel could not be resolved.
func (c ChannelRef) IsZero() bool { return c == ChannelRef{} }

// Backend queries the messaging platform. A query is either an id or a name.
type Backend interface {
	LookupUser(ctx context.Context, query string) (UserRef, error)
	LookupChannel(ctx context.Context, query string) (ChannelRef, error)
}

// Service is the lookup contract used by the router.
type Service interface {
	FindUser(ctx context.Context, query string) (UserRef, bool)
	FindChannel(ctx context.Context, query string) (ChannelRef, bool)
}

// Cache memoizes backend lookups by id and by name.
//
// Lookup failures are never cached and never returned as errors: callers get
// the zero reference and carry on.
type Cache struct {
	backend Backend
	log     *slog.Logger

	mu       sync.RWMutex
	users    map[string]UserRef
	channels map[string]ChannelRef
}

// NewCache wraps backend with an in-memory lookup cache.
func NewCache(backend Backend, log *slog.Logger) *Cache {
	return &Cache{
		backend:  backend,
		log:      logger.Component(log, "directory"),
		users:    make(map[string]UserRef),
		channels: make(map[string]ChannelRef),
	}
}

// FindUser resolves a user id or name. The boolean is false when nothing matched.
func (c *Cache) FindUser(ctx context.Context, query string) (UserRef, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return UserRef{}, false
	}

	c.mu.RLock()
	user, ok := c.users[query]
	c.mu.RUnlock()
	if ok {
		return user, true
	}

	user, err := c.backend.LookupUser(ctx, query)
	if err != nil {
		c.log.Debug("User lookup failed", "query", query, "error", err)
		return UserRef{}, false
	}
	if user.IsZero() {
		return UserRef{}, false
	}

	c.mu.Lock()
	c.users[query] = user
	c.users[user.ID] = user
	c.mu.Unlock()

	return user, true
}

// FindChannel resolves a channel id or name. The boolean is false when nothing matched.
func (c *Cache) FindChannel(ctx context.Context, query string) (ChannelRef, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ChannelRef{}, false
	}

	c.mu.RLock()
	channel, ok := c.channels[query]
	c.mu.RUnlock()
	if ok {
		return channel, true
	}

	channel, err := c.backend.LookupChannel(ctx, query)
	if err != nil {
		c.log.Debug("Channel lookup failed", "query", query, "error", err)
		return ChannelRef{}, false
	}
	if channel.IsZero() {
		return ChannelRef{}, false
	}

	c.mu.Lock()
	c.channels[query] = channel
	c.channels[channel.ID] = channel
	c.mu.Unlock()

	return channel, true
}
