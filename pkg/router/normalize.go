package router

import "aquabot/pkg/bus"

// NormalizedMessage is the text, author and channel of a message event.
type NormalizedMessage struct {
	Text      string
	AuthorID  string
	ChannelID string
	IsEdit    bool
}

// Normalize extracts the message fields from evt. Edits read text and author
// from the nested message; the channel always comes from the top level.
//
// The boolean is false for an edit that carries no nested message.
func Normalize(evt bus.InboundEvent) (NormalizedMessage, bool) {
	if evt.Subtype == bus.SubtypeMessageChanged {
		if evt.Message == nil {
			return NormalizedMessage{}, false
		}
		return NormalizedMessage{
			Text:      evt.Message.Text,
			AuthorID:  evt.Message.User,
			ChannelID: evt.Channel,
			IsEdit:    true,
		}, true
	}

	return NormalizedMessage{
		Text:      evt.Text,
		AuthorID:  evt.User,
		ChannelID: evt.Channel,
	}, true
}
