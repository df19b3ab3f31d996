package commands

import "aquabot/pkg/parser"

// GreetingMessages is the fixed set a greeting reply is drawn from.
var GreetingMessages = []string{
	"女神アクアの祝福を！",
	"アクシズ教を！アクシズ教をお願いします！",
	"汝！もし私の信者ならば……お金を貸してくれると助かります！",
	"うっふふふふふ。まあ、それほどでも～、ありますけど",
}

func greetingReply(userID string, line string) string {
	return parser.MentionTag(userID) + " " + line
}
