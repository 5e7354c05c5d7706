package core

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// Normalize classifies a raw update into an Event. The first matching shape
// wins: callback query, inline query, then message or edited message.
// Updates of any other shape return ok == false.
func Normalize(raw RawUpdate) (ev Event, ok bool) {
	if raw == nil {
		return Event{}, false
	}
	updateID, _ := intField(raw, "update_id")

	if cq, found := objectField(raw, "callback_query"); found {
		ev = normalizeCallback(cq)
	} else if iq, found := objectField(raw, "inline_query"); found {
		ev = normalizeInlineQuery(iq)
	} else if msg, found := objectField(raw, "message"); found {
		ev = normalizeMessage(msg, EventMessage)
	} else if msg, found := objectField(raw, "edited_message"); found {
		ev = normalizeMessage(msg, EventEditedMessage)
	} else {
		return Event{}, false
	}

	ev.UpdateID = updateID
	ev.Raw = raw
	return ev, true
}

func normalizeCallback(cq map[string]any) Event {
	ev := Event{
		Type:            EventCallback,
		Text:            stringField(cq, "data"),
		CallbackQueryID: stringField(cq, "id"),
		UserID:          nestedID(cq, "from", "id"),
	}
	// Callbacks from inline-mode messages carry no message and therefore no
	// chat. The embedded message's date is when the keyboard was sent, not
	// when it was pressed, so Date stays zero.
	if msg, found := objectField(cq, "message"); found {
		ev.ChatID = nestedID(msg, "chat", "id")
		ev.MessageID, _ = intField(msg, "message_id")
	}
	return ev
}

func normalizeInlineQuery(iq map[string]any) Event {
	return Event{
		Type:          EventInlineQuery,
		Text:          stringField(iq, "query"),
		InlineQueryID: stringField(iq, "id"),
		UserID:        nestedID(iq, "from", "id"),
	}
}

func normalizeMessage(msg map[string]any, kind EventType) Event {
	ev := Event{
		ChatID:  nestedID(msg, "chat", "id"),
		ReplyTo: nestedID(msg, "reply_to_message", "message_id"),
		Date:    unixField(msg, "date"),
	}
	ev.MessageID, _ = intField(msg, "message_id")
	if kind == EventEditedMessage {
		if edited := unixField(msg, "edit_date"); !edited.IsZero() {
			ev.Date = edited
		}
	}

	if members, found := msg["new_chat_members"].([]any); found && len(members) > 0 {
		ev.Type = EventJoin
		if first, isObj := members[0].(map[string]any); isObj {
			ev.UserID, _ = intField(first, "id")
		}
		return ev
	}

	if left, found := objectField(msg, "left_chat_member"); found {
		ev.Type = EventLeave
		ev.UserID, _ = intField(left, "id")
		return ev
	}

	ev.UserID = nestedID(msg, "from", "id")
	ev.Text = stringField(msg, "text")

	if strings.HasPrefix(ev.Text, "/") {
		ev.Type = EventCommand
		ev.Name = commandName(ev.Text)
		return ev
	}

	ev.Type = kind
	return ev
}

// commandName extracts the command word from text starting with "/".
// It handles "/cmd", "/cmd args" and "/cmd@botname args".
func commandName(text string) string {
	word := text[1:]
	if end := strings.IndexFunc(word, func(r rune) bool {
		return r == '@' || unicode.IsSpace(r)
	}); end != -1 {
		word = word[:end]
	}
	return strings.ToLower(word)
}

func objectField(m map[string]any, key string) (map[string]any, bool) {
	obj, ok := m[key].(map[string]any)
	return obj, ok
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// nestedID reads m[obj][key] as an integer, or zero when any step is missing.
func nestedID(m map[string]any, obj, key string) int64 {
	inner, ok := objectField(m, obj)
	if !ok {
		return 0
	}
	id, _ := intField(inner, key)
	return id
}

func unixField(m map[string]any, key string) time.Time {
	sec, ok := intField(m, key)
	if !ok || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// intField accepts the numeric representations produced by encoding/json
// (json.Number with UseNumber, float64 without) and by Go literals.
func intField(m map[string]any, key string) (int64, bool) {
	switch v := m[key].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}
