// Package policy answers per-channel reply policy questions.
package policy

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
)

const readonlyKey = "readonly"

// Store holds the readonly channel set. It is immutable after construction.
type Store struct {
	readonly map[string]struct{}
	log      *slog.Logger
}

// New builds a store from channel ids or names. Blank entries are dropped.
func New(readonly []string, log *slog.Logger) *Store {
	set := make(map[string]struct{}, len(readonly))
	for _, value := range readonly {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}

	return &Store{
		readonly: set,
		log:      logger.Component(log, "policy"),
	}
}

// Load reads {"readonly": [...]} from path.
//
// A missing or unreadable file yields an empty store: replies are allowed everywhere.
func Load(path string, log *slog.Logger) *Store {
	log = logger.Component(log, "policy")

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("No channel policy file, all channels writable", "path", path)
		} else {
			log.Error("Cannot access channel policy file", "path", path, "error", err)
		}
		return New(nil, log)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		log.Error("Invalid channel policy file, all channels writable", "path", path, "error", err)
		return New(nil, log)
	}

	store := New(k.Strings(readonlyKey), log)
	log.Info("Channel policy loaded", "path", path, "readonly", len(store.readonly))
	return store
}

// IsReadonly reports whether replies to ch are suppressed. Either id or name may match.
func (s *Store) IsReadonly(ch directory.ChannelRef) bool {
	if s == nil || len(s.readonly) == 0 {
		return false
	}

	for _, candidate := range []string{ch.ID, ch.Name} {
		if candidate == "" {
			continue
		}
		if _, ok := s.readonly[candidate]; ok {
			s.log.Info("Channel is read-only", "channel", ch.Name, "channel_id", ch.ID)
			return true
		}
	}

	return false
}

// Channels returns the configured readonly entries in sorted order.
func (s *Store) Channels() []string {
	if s == nil {
		return nil
	}

	out := make([]string, 0, len(s.readonly))
	for value := range s.readonly {
		out = append(out, value)
	}
	slices.Sort(out)
	return out
}
