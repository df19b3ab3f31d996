package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"aquabot/pkg/logger"
)

const messagePreviewLimit = 240

// Poster sends replies with chat.postMessage.
type Poster struct {
	api API
	log *slog.Logger
}

func NewPoster(api API, log *slog.Logger) *Poster {
	return &Poster{api: api, log: logger.Component(log, "channel.slack.poster")}
}

// PostMessage issues exactly one chat.postMessage call.
func (p *Poster) PostMessage(ctx context.Context, channelID string, text string) error {
	p.log.Info("Sending message", "channel_id", channelID, "text", previewText(text))

	if _, _, err := p.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("chat.postMessage %s: %w", channelID, err)
	}
	return nil
}

// previewText returns a bounded log-safe preview of message text, cut on a rune boundary.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	cut := messagePreviewLimit
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut] + "..."
}
