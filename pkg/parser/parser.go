// Package parser splits Slack message text into user mentions and plain words.
package parser

import (
	"regexp"
	"strings"
)

// mentionPattern matches a whole token shaped like a Slack user mention, e.g. <@U0123ABCD>.
var mentionPattern = regexp.MustCompile(`^<@[A-Z0-9]+>$`)

// ParsedMessage is the tokenized form of one message.
//
// MentionIDs and Words together hold every whitespace-separated token of the
// source text exactly once, each keeping its relative order.
type ParsedMessage struct {
	MentionIDs   []string
	Words        []string
	BotMentioned bool
}

// MentionTag returns the mention token that addresses userID.
func MentionTag(userID string) string {
	return "<@" + userID + ">"
}

// IsMention reports whether token is a user mention tag.
func IsMention(token string) bool {
	return mentionPattern.MatchString(token)
}

// Parse tokenizes text on whitespace and checks whether botID is mentioned.
func Parse(text string, botID string) ParsedMessage {
	tokens := strings.Fields(text)
	parsed := ParsedMessage{
		MentionIDs: make([]string, 0, len(tokens)),
		Words:      make([]string, 0, len(tokens)),
	}

	botTag := MentionTag(botID)
	for _, token := range tokens {
		if !IsMention(token) {
			parsed.Words = append(parsed.Words, token)
			continue
		}

		parsed.MentionIDs = append(parsed.MentionIDs, token)
		if botID != "" && token == botTag {
			parsed.BotMentioned = true
		}
	}

	return parsed
}

// IsDirectMessage reports whether a conversation is one-to-one with the author.
//
// Slack names a direct conversation either after its own id or after the peer
// user id, so either equality is treated as a direct message.
func IsDirectMessage(channelName string, channelID string, authorID string) bool {
	return channelName == channelID || channelName == authorID
}
