package core

import "time"

// EventType is the coarse classification of a normalized update.
type EventType string

const (
	EventMessage       EventType = "message"
	EventEditedMessage EventType = "edited_message"
	EventCommand       EventType = "command"
	EventCallback      EventType = "callback"
	EventInlineQuery   EventType = "inline_query"
	EventJoin          EventType = "join"
	EventLeave         EventType = "leave"
)

// RawUpdate is one inbound payload as decoded from the Bot API.
// It is shared with handlers through Event.Raw and must not be mutated.
type RawUpdate map[string]any

// Event is the normalized form of a RawUpdate used for dispatch.
type Event struct {
	Type            EventType
	Name            string
	ChatID          int64
	UserID          int64
	Text            string
	ReplyTo         int64
	InlineQueryID   string
	CallbackQueryID string
	UpdateID        int64
	MessageID       int64
	Date            time.Time
	Raw             RawUpdate
}

// Key returns the most specific registration key for the event:
// "type:name" when the event has a name, "type" otherwise.
func (e Event) Key() string {
	if e.Name != "" {
		return string(e.Type) + ":" + e.Name
	}
	return string(e.Type)
}
