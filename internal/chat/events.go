package chat

import "time"

// Outbound event names.
const (
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventPublicMessage  = "publicMessage"
	EventPrivateMessage = "privateMessage"
)

// timestampLayout renders UTC times as ISO-8601 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Event is a single outbound notification. Data is either a display name
// (join/leave) or a Message.
type Event struct {
	Name string
	Data any
}

// Message is the payload of publicMessage and privateMessage events.
type Message struct {
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// NewMessage builds a Message stamped with t.
func NewMessage(sender, body string, t time.Time) Message {
	return Message{
		Sender:    sender,
		Body:      body,
		Timestamp: t.UTC().Format(timestampLayout),
	}
}
