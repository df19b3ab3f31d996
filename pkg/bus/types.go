package bus

// EventTypeMessage is the only inbound event type the router acts on.
const EventTypeMessage = "message"

// SubtypeMessageChanged marks an edit; the revised text lives in InboundEvent.Message.
const SubtypeMessageChanged = "message_changed"

// InboundEvent is one real-time event as received from Slack.
type InboundEvent struct {
	ID      string         `json:"-"`
	Type    string         `json:"type"`
	Subtype string         `json:"subtype,omitempty"`
	Text    string         `json:"text,omitempty"`
	User    string         `json:"user,omitempty"`
	Channel string         `json:"channel,omitempty"`
	Message *EditedMessage `json:"message,omitempty"`
}

// EditedMessage is the nested payload of a message_changed event.
type EditedMessage struct {
	Text string `json:"text,omitempty"`
	User string `json:"user,omitempty"`
}
