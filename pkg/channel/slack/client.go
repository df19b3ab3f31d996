// Package slack connects the bot to Slack over socket mode and the Web API.
package slack

import (
	"context"
	"errors"
	"strings"

	"github.com/slack-go/slack"
)

// API is the subset of the Slack Web API the bot calls.
type API interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// NewClient validates both tokens and builds a Web API client able to open socket mode.
func NewClient(apiToken string, appToken string, debug bool) (*slack.Client, error) {
	apiToken = strings.TrimSpace(apiToken)
	appToken = strings.TrimSpace(appToken)

	if apiToken == "" {
		return nil, errors.New("api-token is required")
	}
	if !strings.HasPrefix(apiToken, "xoxb-") {
		return nil, errors.New("api-token must start with xoxb-")
	}
	if appToken == "" {
		return nil, errors.New("app-token is required for socket mode")
	}
	if !strings.HasPrefix(appToken, "xapp-") {
		return nil, errors.New("app-token must start with xapp-")
	}

	return slack.New(
		apiToken,
		slack.OptionDebug(debug),
		slack.OptionAppLevelToken(appToken),
	), nil
}
