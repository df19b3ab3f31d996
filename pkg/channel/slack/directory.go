package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
)

var (
	userIDPattern    = regexp.MustCompile(`^[UW][A-Z0-9]+$`)
	channelIDPattern = regexp.MustCompile(`^[CDG][A-Z0-9]+$`)
)

// Directory resolves users and conversations through the Web API.
type Directory struct {
	api API
	log *slog.Logger
}

var _ directory.Backend = (*Directory)(nil)

func NewDirectory(api API, log *slog.Logger) *Directory {
	return &Directory{api: api, log: logger.Component(log, "channel.slack.directory")}
}

// LookupUser resolves an id with users.info and a name by scanning users.list.
func (d *Directory) LookupUser(ctx context.Context, query string) (directory.UserRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return directory.UserRef{}, directory.ErrNotFound
	}

	if userIDPattern.MatchString(query) {
		user, err := d.api.GetUserInfoContext(ctx, query)
		if err == nil {
			return directory.UserRef{ID: user.ID, Name: user.Name}, nil
		}
		if !isNotFound(err) {
			return directory.UserRef{}, fmt.Errorf("users.info %s: %w", query, err)
		}
	}

	users, err := d.api.GetUsersContext(ctx)
	if err != nil {
		return directory.UserRef{}, fmt.Errorf("users.list: %w", err)
	}
	for _, user := range users {
		if strings.EqualFold(user.Name, query) {
			return directory.UserRef{ID: user.ID, Name: user.Name}, nil
		}
	}

	return directory.UserRef{}, fmt.Errorf("user %q: %w", query, directory.ErrNotFound)
}

// LookupChannel resolves a conversation id with conversations.info.
//
// One-to-one conversations are named after the peer's user id.
func (d *Directory) LookupChannel(ctx context.Context, query string) (directory.ChannelRef, error) {
	query = strings.TrimSpace(query)
	if !channelIDPattern.MatchString(query) {
		return directory.ChannelRef{}, fmt.Errorf("channel %q: %w", query, directory.ErrNotFound)
	}

	ch, err := d.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: query})
	if err != nil {
		if isNotFound(err) {
			return directory.ChannelRef{}, fmt.Errorf("channel %q: %w", query, directory.ErrNotFound)
		}
		return directory.ChannelRef{}, fmt.Errorf("conversations.info %s: %w", query, err)
	}

	name := ch.Name
	if ch.IsIM {
		name = ch.User
	}
	return directory.ChannelRef{ID: ch.ID, Name: name}, nil
}

func isNotFound(err error) bool {
	var apiErr slack.SlackErrorResponse
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Err == "user_not_found" || apiErr.Err == "channel_not_found"
}
